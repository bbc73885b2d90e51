// Package vault encrypts secret material at rest with a single master key.
//
// Every envelope carries its own random salt. The per-record AES-256 key is
// derived from the master key and that salt with PBKDF2-HMAC-SHA-256
// (100,000 iterations), and the payload is sealed with AES-256-GCM using a
// 16-byte random nonce. The stored form is four standard base64 segments:
//
//	base64(salt):base64(nonce):base64(tag):base64(ciphertext)
//
// Decrypt treats any string that does not split into exactly four segments
// as legacy plaintext and returns it unchanged. The fallback can be switched
// off with WithLegacyPlaintext(false), after which such input fails with
// ErrDecryptionFailed. An envelope that has the right shape but does not
// authenticate always fails with ErrDecryptionFailed; the vault never returns
// partial or substituted output.
//
// Key derivation is CPU bound, so concurrent derivations are limited by a
// weighted semaphore (GOMAXPROCS slots by default). Callers waiting for a
// slot are released when their context is done.
//
// The package also carries two helpers that never need reversal: Mask for
// display and Hash/VerifyHash (PBKDF2-HMAC-SHA-512) for one-way comparisons.
//
// # Usage
//
//	v, err := vault.New(cfg.MasterKey)
//	if err != nil {
//	    return err
//	}
//	envelope, err := v.Encrypt(ctx, "provider-api-key")
//	plain, err := v.Decrypt(ctx, envelope)
//	if errors.Is(err, vault.ErrDecryptionFailed) {
//	    // tampered data or wrong master key
//	}
//
// A fresh master key can be produced with `go run ./pkg/vault/cmd`.
package vault
