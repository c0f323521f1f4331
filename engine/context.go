package engine

import (
	"strings"
	"unicode"
)

// contextWidth is the approximate number of runes kept on each side of a
// match when deriving a selection context from the source text.
const contextWidth = 100

// SelectionContext returns a window of the source text around the rune
// span [start, end), expanded outward to whitespace boundaries. Engines
// whose service does not return a detection context use this to fill the
// selection-context of their text annotations.
func SelectionContext(text string, start int, end int) string {
	runes := []rune(text)
	if start < 0 || end > len(runes) || start >= end {
		return ""
	}

	lo := start - contextWidth
	if lo < 0 {
		lo = 0
	} else {
		for lo > 0 && !unicode.IsSpace(runes[lo]) {
			lo--
		}
	}

	hi := end + contextWidth
	if hi > len(runes) {
		hi = len(runes)
	} else {
		for hi < len(runes) && !unicode.IsSpace(runes[hi]) {
			hi++
		}
	}

	return strings.TrimSpace(string(runes[lo:hi]))
}
