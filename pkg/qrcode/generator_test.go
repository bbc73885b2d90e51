package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/qrcode"
)

const uri = "otpauth://totp/Acme:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Acme&algorithm=SHA1&digits=6&period=30"

func TestPNG(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		size     int
		wantSize int
		wantErr  error
	}{
		{name: "empty content", content: "", wantErr: qrcode.ErrEmptyContent},
		{name: "whitespace content", content: " \t\n", wantErr: qrcode.ErrEmptyContent},
		{name: "default size", content: uri, size: 0, wantSize: qrcode.DefaultSize},
		{name: "explicit size", content: uri, size: 300, wantSize: 300},
		{name: "clamped small", content: uri, size: 10, wantSize: qrcode.MinSize},
		{name: "clamped large", content: uri, size: 10000, wantSize: qrcode.MaxSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := qrcode.PNG(tt.content, tt.size)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, img)
				return
			}
			require.NoError(t, err)

			decoded, err := png.Decode(bytes.NewReader(img))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, decoded.Bounds().Dx())
			assert.Equal(t, tt.wantSize, decoded.Bounds().Dy())
		})
	}
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	got, err := qrcode.DataURI(uri, 128)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(got, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, prefix))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	_, err = qrcode.DataURI("", 128)
	require.ErrorIs(t, err, qrcode.ErrEmptyContent)
}
