package totp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
)

func TestURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  totp.Params
		want    string
		wantErr error
	}{
		{
			name: "basic",
			params: totp.Params{
				Secret:      "JBSWY3DPEHPK3PXP",
				AccountName: "admin@example.com",
				Issuer:      "ClubManager",
			},
			want: "otpauth://totp/ClubManager:admin@example.com?secret=JBSWY3DPEHPK3PXP&issuer=ClubManager&algorithm=SHA1&digits=6&period=30",
		},
		{
			name: "escapes spaces and ampersands",
			params: totp.Params{
				Secret:      "JBSWY3DPEHPK3PXP",
				AccountName: "club admin",
				Issuer:      "Club & Co",
			},
			want: "otpauth://totp/Club%20&%20Co:club%20admin?secret=JBSWY3DPEHPK3PXP&issuer=Club+%26+Co&algorithm=SHA1&digits=6&period=30",
		},
		{
			name:    "missing secret",
			params:  totp.Params{AccountName: "a", Issuer: "b"},
			wantErr: totp.ErrMissingSecret,
		},
		{
			name:    "invalid secret",
			params:  totp.Params{Secret: "jbsw!", AccountName: "a", Issuer: "b"},
			wantErr: totp.ErrInvalidSecret,
		},
		{
			name:    "missing account",
			params:  totp.Params{Secret: "JBSWY3DP", Issuer: "b"},
			wantErr: totp.ErrMissingAccountName,
		},
		{
			name:    "missing issuer",
			params:  totp.Params{Secret: "JBSWY3DP", AccountName: "a"},
			wantErr: totp.ErrMissingIssuer,
		},
		{
			name:    "colon in label",
			params:  totp.Params{Secret: "JBSWY3DP", AccountName: "a:b", Issuer: "c"},
			wantErr: totp.ErrInvalidLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.URI(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
