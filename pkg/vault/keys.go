package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// GenerateMasterKey returns 32 random bytes encoded as standard base64,
// suitable for the TWO_FACTOR_MASTER_KEY environment variable.
func GenerateMasterKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Join(ErrFailedToGenerateKey, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
