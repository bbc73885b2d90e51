package totp

import (
	"strings"

	"golang.org/x/text/width"
)

// NormalizeCode folds full-width digits to ASCII and drops spaces and dashes,
// so "１２３ ４５６" and "123-456" both become "123456".
func NormalizeCode(code string) string {
	folded := width.Fold.String(code)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, folded)
}
