package base32_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/base32"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"empty", []byte{}, ""},
		{"single byte", []byte("f"), "MY"},
		{"two bytes", []byte("fo"), "MZXQ"},
		{"three bytes", []byte("foo"), "MZXW6"},
		{"four bytes", []byte("foob"), "MZXW6YQ"},
		{"five bytes", []byte("fooba"), "MZXW6YTB"},
		{"six bytes", []byte("foobar"), "MZXW6YTBOI"},
		{"rfc seed", []byte("12345678901234567890"), "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, base32.Encode(tt.input))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"empty", "", []byte{}},
		{"upper case", "MZXW6YTBOI", []byte("foobar")},
		{"lower case", "mzxw6ytboi", []byte("foobar")},
		{"padding ignored", "MZXW6===", []byte("foo")},
		{"separators ignored", "mzxw-6ytb oi", []byte("foobar")},
		{"only garbage", "!!@@##", []byte{}},
		{"dangling bits dropped", "M", []byte{}},
		{"invalid digits skipped", "MZ01XQ89", []byte("fo")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, base32.Decode(tt.input))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 64; n++ {
		b := make([]byte, n)
		_, err := rand.Read(b)
		require.NoError(t, err)

		encoded := base32.Encode(b)
		assert.Regexp(t, `^[A-Z2-7]*$`, encoded)
		assert.Equal(t, b, base32.Decode(encoded), "length %d", n)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "JBSWY3DPEHPK3PXP", base32.Normalize("jbsw-y3dp ehpk-3pxp"))
	assert.Equal(t, "", base32.Normalize("-- 01 89 =="))
}
