package model

import (
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textgraph/enricher/vocab"
)

func TestNewContentItem(t *testing.T) {
	ci := NewContentItem("some text", "text/plain", "en")

	assert.NotEqual(t, [16]byte{}, [16]byte(ci.RID))
	assert.Contains(t, ci.URI, "urn:content-item-")
	assert.Equal(t, "some text", ci.Content)
	assert.NotNil(t, ci.Metadata)
	assert.Equal(t, ci.URI, ci.Subject().String())
}

func TestBaseMimeType(t *testing.T) {
	t.Run("Strip parameters", func(t *testing.T) {
		ci := &ContentItem{MimeType: "text/html; charset=utf-8"}
		assert.Equal(t, "text/html", ci.BaseMimeType())
	})

	t.Run("Lowercase", func(t *testing.T) {
		ci := &ContentItem{MimeType: "Text/Plain"}
		assert.Equal(t, "text/plain", ci.BaseMimeType())
	})
}

func TestPlainText(t *testing.T) {
	t.Run("Return raw content for text mime types", func(t *testing.T) {
		ci := NewContentItem("raw text", "text/plain", "en")
		assert.Equal(t, "raw text", ci.PlainText())
	})

	t.Run("Fall back to extracted text triples", func(t *testing.T) {
		ci := NewContentItem("", "application/pdf", "en")
		lit, err := rdf.NewLiteral("extracted text")
		require.NoError(t, err)
		ci.Metadata.Add(ci.Subject(), vocab.PlainTextContent, lit)
		assert.Equal(t, "extracted text", ci.PlainText())
	})

	t.Run("Return empty without text", func(t *testing.T) {
		ci := NewContentItem("", "application/pdf", "en")
		assert.Equal(t, "", ci.PlainText())

		ci.Metadata = nil
		assert.Equal(t, "", ci.PlainText())
	})
}

func TestMetadataLanguage(t *testing.T) {
	t.Run("Prefer the language field", func(t *testing.T) {
		ci := NewContentItem("text", "text/plain", "en")
		assert.Equal(t, "en", ci.MetadataLanguage())
	})

	t.Run("Fall back to the dc language triple", func(t *testing.T) {
		ci := NewContentItem("text", "text/plain", "")
		lit, err := rdf.NewLiteral("fr")
		require.NoError(t, err)
		ci.Metadata.Add(ci.Subject(), vocab.DCLanguage, lit)
		assert.Equal(t, "fr", ci.MetadataLanguage())
	})

	t.Run("Return empty without language", func(t *testing.T) {
		ci := NewContentItem("text", "text/plain", "")
		assert.Equal(t, "", ci.MetadataLanguage())
	})
}
