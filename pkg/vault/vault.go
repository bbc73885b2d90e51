package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/semaphore"
)

const (
	SaltSize          = 32      // Per-envelope random salt
	NonceSize         = 16      // GCM nonce; larger than the 12-byte default on purpose
	TagSize           = 16      // GCM authentication tag
	KeySize           = 32      // AES-256
	DefaultIterations = 100_000 // PBKDF2 rounds for both encryption keys and hashes

	separator = ":"
	segments  = 4
)

// Vault seals and opens secret strings.
// It is safe for concurrent use.
type Vault struct {
	masterKey       []byte
	iterations      int
	concurrency     int
	legacyPlaintext bool
	slots           *semaphore.Weighted
}

// New creates a vault bound to the given master key.
func New(masterKey string, opts ...Option) (*Vault, error) {
	if masterKey == "" {
		return nil, ErrMissingMasterKey
	}

	v := &Vault{
		masterKey:       []byte(masterKey),
		iterations:      DefaultIterations,
		concurrency:     runtime.GOMAXPROCS(0),
		legacyPlaintext: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.slots = semaphore.NewWeighted(int64(v.concurrency))

	return v, nil
}

// Encrypt seals plaintext into an envelope. Empty input yields empty output.
func (v *Vault) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	key, err := v.deriveKey(ctx, salt)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	defer clear(key)

	aead, err := newAEAD(key)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	// Seal appends the tag to the ciphertext; the envelope stores them apart.
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, separator), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (v *Vault) Decrypt(ctx context.Context, envelope string) (string, error) {
	if envelope == "" {
		return "", nil
	}

	parts := strings.Split(envelope, separator)
	if len(parts) != segments {
		if v.legacyPlaintext {
			return envelope, nil
		}
		return "", errors.Join(ErrDecryptionFailed, ErrMalformedEnvelope)
	}

	salt, err := decodeSegment(parts[0], SaltSize)
	if err != nil {
		return "", err
	}
	nonce, err := decodeSegment(parts[1], NonceSize)
	if err != nil {
		return "", err
	}
	tag, err := decodeSegment(parts[2], TagSize)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, ErrMalformedEnvelope, err)
	}

	key, err := v.deriveKey(ctx, salt)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	defer clear(key)

	aead, err := newAEAD(key)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// IsEnvelope reports whether s has the four-segment envelope shape.
func IsEnvelope(s string) bool {
	return strings.Count(s, separator) == segments-1
}

// deriveKey runs PBKDF2 once a derivation slot is free.
func (v *Vault) deriveKey(ctx context.Context, salt []byte) ([]byte, error) {
	if err := v.slots.Acquire(ctx, 1); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	defer v.slots.Release(1)

	return pbkdf2.Key(v.masterKey, salt, v.iterations, KeySize, sha256.New), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

func decodeSegment(s string, size int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, ErrMalformedEnvelope, err)
	}
	if len(b) != size {
		return nil, errors.Join(ErrDecryptionFailed, ErrMalformedEnvelope)
	}
	return b, nil
}
