package vault

import "strings"

// Mask replaces every rune of value except the last visible ones with '*'.
func Mask(value string, visible int) string {
	runes := []rune(value)
	if visible >= len(runes) {
		return value
	}
	if visible < 0 {
		visible = 0
	}

	hidden := len(runes) - visible
	return strings.Repeat("*", hidden) + string(runes[hidden:])
}
