// Package totp generates and verifies RFC 6238 time-based one-time passwords
// and builds provisioning URIs for authenticator applications.
//
// Parameters are fixed for authenticator-app interoperability: a 30-second
// time step, 6 decimal digits and HMAC-SHA-1 as the PRF. Secrets are handled
// as raw bytes; the base32 text form shown to users lives in pkg/base32.
//
// # Usage
//
//	seed, _ := totp.GenerateSecret()
//
//	uri, _ := totp.URI(totp.Params{
//	    Secret:      base32.Encode(seed),
//	    AccountName: "admin@example.com",
//	    Issuer:      "Acme",
//	})
//
//	ok := totp.Verify(seed, "123456", time.Now(), totp.DefaultWindow)
//
// Verify accepts codes from DefaultWindow steps on either side of now to
// tolerate clock drift, compares every candidate in constant time and does
// not distinguish near misses from far ones.
//
// # See Also
//
//   - RFC 4226 – HMAC-Based One-Time Password (HOTP) Algorithm
//   - RFC 6238 – Time-Based One-Time Password (TOTP) Algorithm
//   - https://github.com/google/google-authenticator/wiki/Key-Uri-Format
package totp
