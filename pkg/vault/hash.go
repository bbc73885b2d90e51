package vault

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashSaltSize = 16
	hashKeySize  = 64
)

// Hash returns a salted PBKDF2-HMAC-SHA-512 digest of value in the form
// base64(salt):base64(digest).
func (v *Vault) Hash(value string) (string, error) {
	salt := make([]byte, hashSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Join(ErrFailedToHash, err)
	}

	digest := pbkdf2.Key([]byte(value), salt, v.iterations, hashKeySize, sha512.New)

	return base64.StdEncoding.EncodeToString(salt) + separator +
		base64.StdEncoding.EncodeToString(digest), nil
}

// VerifyHash reports whether value matches a digest produced by Hash.
// Malformed digests never match.
func (v *Vault) VerifyHash(value, hash string) bool {
	saltPart, digestPart, ok := strings.Cut(hash, separator)
	if !ok {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) == 0 {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(digestPart)
	if err != nil || len(want) != hashKeySize {
		return false
	}

	got := pbkdf2.Key([]byte(value), salt, v.iterations, hashKeySize, sha512.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}
