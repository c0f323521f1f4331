package vocab

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMustIRI(t *testing.T) {
	t.Run("Build valid iris", func(t *testing.T) {
		iri := MustIRI("http://example.org/term")
		assert.Equal(t, "http://example.org/term", iri.String())
	})

	t.Run("Panic on invalid input", func(t *testing.T) {
		assert.Panics(t, func() { MustIRI("not a valid iri") })
	})
}

func TestNewEnhancementIRI(t *testing.T) {
	a := NewEnhancementIRI()
	b := NewEnhancementIRI()
	assert.Contains(t, a.String(), "urn:enhancement-")
	assert.NotEqual(t, a, b)
}

func TestNewContentItemIRI(t *testing.T) {
	rid := uuid.New()
	iri := NewContentItemIRI(rid)
	assert.Equal(t, "urn:content-item-"+rid.String(), iri.String())
}
