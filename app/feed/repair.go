package feed

import "strings"

// maximum length of a named entity we are willing to recognise, "&" and ";" included
const maxEntityLength = 34

// RepairMarkup escapes bare ampersands that do not start an entity reference and
// drops control characters XML forbids. Valid entities are left untouched.
func RepairMarkup(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '&':
			if n := entityLength(text[i:]); n > 0 {
				b.WriteString(text[i : i+n])
				i += n
				continue
			}
			b.WriteString("&amp;")
		case isForbiddenControl(c):
			// dropped
		default:
			b.WriteByte(c)
		}
		i++
	}

	return b.String()
}

// entityLength returns the length of the entity reference s starts with, or 0.
func entityLength(s string) int {
	if len(s) < 3 || s[0] != '&' {
		return 0
	}

	i := 1
	if s[i] == '#' {
		i++
		digit := isDecimal
		if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
			digit = isHex
			i++
		}
		start := i
		for i < len(s) && digit(s[i]) {
			i++
		}
		if i == start || i >= len(s) || s[i] != ';' {
			return 0
		}
		return i + 1
	}

	if !isLetter(s[i]) {
		return 0
	}
	for i < len(s) && i < maxEntityLength && (isLetter(s[i]) || isDecimal(s[i])) {
		i++
	}
	if i >= len(s) || s[i] != ';' {
		return 0
	}
	return i + 1
}

func isForbiddenControl(c byte) bool {
	return (c < 0x20 && c != '\t' && c != '\n' && c != '\r') || c == 0x7f
}

func isDecimal(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDecimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
