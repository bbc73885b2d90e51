package backupcode

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"slices"
	"strings"

	"golang.org/x/text/width"
)

const (
	DefaultCount = 10
	CodeBytes    = 4 // 8 hex characters

	// maxAttempts bounds redraws per batch; collisions on 32 bits are rare.
	maxAttempts = 1000
)

// Generate returns count distinct codes formatted as XXXX-XXXX.
func Generate(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}

	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)
	for attempts := 0; len(codes) < count; attempts++ {
		if attempts >= maxAttempts {
			return nil, ErrTooManyCollisions
		}

		code, err := newCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

// Consume looks submitted up in codes. On a match it returns true and a copy
// of codes without that single entry; otherwise false and an unchanged copy.
// Every stored code is compared so timing does not reveal the match position.
func Consume(codes []string, submitted string) (bool, []string) {
	want := []byte(Normalize(submitted))

	match := -1
	for i, code := range codes {
		eq := subtle.ConstantTimeCompare([]byte(Normalize(code)), want)
		if eq == 1 && match < 0 && len(want) > 0 {
			match = i
		}
	}

	if match < 0 {
		return false, slices.Clone(codes)
	}

	remaining := make([]string, 0, len(codes)-1)
	remaining = append(remaining, codes[:match]...)
	remaining = append(remaining, codes[match+1:]...)

	return true, remaining
}

// Normalize folds width, upper-cases and strips separators so that
// "3f9a c01b" and "3F9A-C01B" compare equal.
func Normalize(code string) string {
	folded := width.Fold.String(code)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, folded)
}

func newCode() (string, error) {
	b := make([]byte, CodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrFailedToGenerateCode, err)
	}
	s := strings.ToUpper(hex.EncodeToString(b))
	return s[:4] + "-" + s[4:], nil
}
