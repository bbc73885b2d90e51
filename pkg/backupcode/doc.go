// Package backupcode creates and consumes single-use recovery codes that
// stand in for a TOTP code when the authenticator device is unavailable.
//
// Codes look like "3F9A-C01B": eight upper-case hex characters drawn from
// crypto/rand, each code from its own read. A batch never contains duplicates.
//
// Consume is pure: it returns the reduced list and leaves persistence to the
// caller, which is expected to run it inside an atomic read-modify-write so
// that a code cannot be spent twice by concurrent requests.
//
//	codes, _ := backupcode.Generate(backupcode.DefaultCount)
//	ok, remaining := backupcode.Consume(codes, "3f9a c01b")
package backupcode
