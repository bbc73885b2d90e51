package vault_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/vault"
)

func TestHash(t *testing.T) {
	t.Parallel()
	v := newTestVault(t)

	h1, err := v.Hash("ABCD-1234")
	require.NoError(t, err)
	h2, err := v.Hash("ABCD-1234")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "salts must differ")
	assert.Len(t, strings.Split(h1, ":"), 2)
	assert.True(t, v.VerifyHash("ABCD-1234", h1))
	assert.True(t, v.VerifyHash("ABCD-1234", h2))
	assert.False(t, v.VerifyHash("ABCD-1235", h1))
}

func TestVerifyHash_Malformed(t *testing.T) {
	t.Parallel()
	v := newTestVault(t)

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"bad salt", "!!!:AAAA"},
		{"bad digest", "AAAA:!!!"},
		{"short digest", "AAAA:AAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, v.VerifyHash("value", tt.hash))
		})
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		visible int
		want    string
	}{
		{"last four", "sk_live_1234567890", 4, "**************7890"},
		{"nothing visible", "secret", 0, "******"},
		{"negative visible", "secret", -3, "******"},
		{"all visible", "abc", 3, "abc"},
		{"more than length", "abc", 10, "abc"},
		{"empty", "", 4, ""},
		{"unicode", "пароль", 2, "****ль"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, vault.Mask(tt.value, tt.visible))
		})
	}
}

func TestGenerateMasterKey(t *testing.T) {
	t.Parallel()

	a, err := vault.GenerateMasterKey()
	require.NoError(t, err)
	b, err := vault.GenerateMasterKey()
	require.NoError(t, err)

	assert.Len(t, a, 44)
	assert.NotEqual(t, a, b)
}
