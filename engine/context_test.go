package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectionContext(t *testing.T) {
	t.Run("Return whole short texts", func(t *testing.T) {
		text := "Berlin is the capital."
		assert.Equal(t, text, SelectionContext(text, 0, 6))
	})

	t.Run("Expand to whitespace boundaries", func(t *testing.T) {
		word := strings.Repeat("a", 20)
		text := strings.Repeat(word+" ", 20)
		// A match deep inside the text never starts mid-word.
		got := SelectionContext(text, 210, 215)
		assert.NotEmpty(t, got)
		for _, part := range strings.Fields(got) {
			assert.Len(t, part, 20)
		}
	})

	t.Run("Reject invalid spans", func(t *testing.T) {
		assert.Empty(t, SelectionContext("short", 3, 2))
		assert.Empty(t, SelectionContext("short", -1, 2))
		assert.Empty(t, SelectionContext("short", 2, 99))
	})

	t.Run("Count offsets in runes", func(t *testing.T) {
		text := "héllo wörld"
		assert.Equal(t, text, SelectionContext(text, 6, 11))
	})
}
