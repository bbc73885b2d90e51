package vault

import "errors"

var (
	ErrMissingMasterKey    = errors.New("vault master key not set")
	ErrEncryptionFailed    = errors.New("failed to encrypt value")
	ErrDecryptionFailed    = errors.New("failed to decrypt value")
	ErrMalformedEnvelope   = errors.New("malformed envelope")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	ErrFailedToGenerateKey = errors.New("failed to generate master key")
	ErrFailedToHash        = errors.New("failed to hash value")
)
