package base32

import (
	stdbase32 "encoding/base32"
	"strings"
)

// Alphabet is the RFC 4648 base32 alphabet.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var encoding = stdbase32.StdEncoding.WithPadding(stdbase32.NoPadding)

// Encode returns the unpadded base32 text of b.
// A partial final group is zero padded on the low bits.
func Encode(b []byte) string {
	return encoding.EncodeToString(b)
}

// Decode returns the bytes encoded by s.
// Characters outside the alphabet are ignored and lower-case letters are
// accepted. Bits left over after the last full byte are dropped.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s)*5/8)

	var buffer uint32
	var bits uint
	for i := 0; i < len(s); i++ {
		v := decodeChar(s[i])
		if v < 0 {
			continue
		}
		buffer = buffer<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}

	return out
}

// Normalize upper-cases s and strips everything outside the alphabet.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if v := decodeChar(s[i]); v >= 0 {
			sb.WriteByte(Alphabet[v])
		}
	}
	return sb.String()
}

func decodeChar(c byte) int {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= 'a' && c <= 'z':
		return int(c - 'a')
	case c >= '2' && c <= '7':
		return int(c-'2') + 26
	default:
		return -1
	}
}
