package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	Digits        = 6  // Code length
	Period        = 30 // Seconds per time step
	Algorithm     = "SHA1"
	SecretSize    = 20 // 160-bit seed (RFC 4226 recommendation)
	DefaultWindow = 1  // Steps accepted on each side of now

	modulo = 1_000_000 // 10^Digits
)

// GenerateSecret returns a fresh random seed.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Join(ErrFailedToGenerateSecret, err)
	}
	return secret, nil
}

// GenerateHOTP implements RFC 4226 for the given counter.
func GenerateHOTP(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	hash := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 31-bit window.
	offset := hash[len(hash)-1] & 0x0f
	code := uint32(hash[offset]&0x7f)<<24 |
		uint32(hash[offset+1])<<16 |
		uint32(hash[offset+2])<<8 |
		uint32(hash[offset+3])

	return fmt.Sprintf("%0*d", Digits, code%modulo)
}

// Counter returns the time-step counter containing unix.
func Counter(unix int64) uint64 {
	if unix < 0 {
		return 0
	}
	return uint64(unix / Period)
}

// Generate returns the code for the time step containing unix seconds.
func Generate(key []byte, unix int64) string {
	return GenerateHOTP(key, Counter(unix))
}

// GenerateAt is Generate for a time.Time.
func GenerateAt(key []byte, t time.Time) string {
	return Generate(key, t.Unix())
}

// Verify reports whether code matches any time step in [now-window, now+window].
// Every candidate is compared so the running time does not depend on which
// step matched.
func Verify(key []byte, code string, now time.Time, window int) bool {
	if window < 0 {
		window = 0
	}

	submitted := []byte(NormalizeCode(code))
	unix := now.Unix()

	matched := 0
	for i := -window; i <= window; i++ {
		candidate := Generate(key, unix+int64(i*Period))
		matched |= subtle.ConstantTimeCompare([]byte(candidate), submitted)
	}

	return matched == 1
}
