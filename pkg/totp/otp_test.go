package totp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/base32"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

var rfcSeed = []byte("12345678901234567890")

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := totp.GenerateSecret()
	require.NoError(t, err)
	b, err := totp.GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, totp.SecretSize)
	assert.NotEqual(t, a, b)
}

func TestGenerateHOTP(t *testing.T) {
	t.Parallel()

	// RFC 4226 appendix D
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, code := range want {
		assert.Equal(t, code, totp.GenerateHOTP(rfcSeed, uint64(counter)), "counter %d", counter)
	}
}

func TestGenerate_RFC6238Vectors(t *testing.T) {
	t.Parallel()

	// RFC 6238 appendix B (SHA-1), truncated to 6 digits.
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, totp.Generate(rfcSeed, tt.unix), "unix %d", tt.unix)
	}
}

func TestGenerate_FromBase32(t *testing.T) {
	t.Parallel()

	key := base32.Decode("GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	assert.Equal(t, "287082", totp.Generate(key, 59))
}

func TestGenerate_SameStep(t *testing.T) {
	t.Parallel()

	assert.Equal(t, totp.Generate(rfcSeed, 30), totp.Generate(rfcSeed, 59))
	assert.NotEqual(t, totp.Generate(rfcSeed, 59), totp.Generate(rfcSeed, 60))
}

func TestCounter(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), totp.Counter(0))
	assert.Equal(t, uint64(0), totp.Counter(29))
	assert.Equal(t, uint64(1), totp.Counter(30))
	assert.Equal(t, uint64(37037036), totp.Counter(1111111109))
	assert.Equal(t, uint64(0), totp.Counter(-10))
}

func TestVerify_DriftTolerance(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecret()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name   string
		at     time.Time
		window int
		want   bool
	}{
		{"current step", now, 1, true},
		{"previous step", now.Add(-30 * time.Second), 1, true},
		{"next step", now.Add(30 * time.Second), 1, true},
		{"three steps behind", now.Add(-90 * time.Second), 1, false},
		{"previous step without window", now.Add(-30 * time.Second), 0, false},
		{"two steps behind with wider window", now.Add(-60 * time.Second), 2, true},
		{"negative window acts as zero", now, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code := totp.GenerateAt(secret, tt.at)
			assert.Equal(t, tt.want, totp.Verify(secret, code, now, tt.window))
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()
	now := time.Unix(59, 0)

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"wrong code", "000000"},
		{"too short", "28708"},
		{"too long", "2870820"},
		{"letters", "abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.False(t, totp.Verify(rfcSeed, tt.code, now, totp.DefaultWindow))
		})
	}
}

func TestVerify_NormalizesInput(t *testing.T) {
	t.Parallel()
	now := time.Unix(59, 0)

	assert.True(t, totp.Verify(rfcSeed, "287 082", now, totp.DefaultWindow))
	assert.True(t, totp.Verify(rfcSeed, "287-082", now, totp.DefaultWindow))
	assert.True(t, totp.Verify(rfcSeed, "２８７０８２", now, totp.DefaultWindow))
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "123456", totp.NormalizeCode(" 123 456 "))
	assert.Equal(t, "123456", totp.NormalizeCode("123-456"))
	assert.Equal(t, "123456", totp.NormalizeCode("１２３４５６"))
	assert.Equal(t, "", totp.NormalizeCode(""))
}
