// Package base32 converts raw TOTP seeds to and from the RFC 4648 base32 text
// form that authenticator applications expect.
//
// Encoding never emits padding. Decoding is deliberately lenient because the
// text is often typed by hand: it is case-insensitive, skips every character
// outside the alphabet (spaces, dashes, '=' padding) and discards trailing
// bits that do not complete a byte. Decode never fails; garbage input yields
// a best-effort, possibly empty, result.
//
// # Usage
//
//	text := base32.Encode(seed)       // "JBSWY3DPEHPK3PXP"
//	raw := base32.Decode("jbsw y3dp") // dashes, spaces and case are ignored
package base32
