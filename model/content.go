package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/vocab"
)

// ContentItem is the unit of content being enhanced. Its Metadata graph
// is owned by the host pipeline; engines only append annotation triples
// to it.
type ContentItem struct {
	ID        int64        `json:"id"`
	RID       uuid.UUID    `json:"rid"`
	URI       string       `json:"uri"`
	MimeType  string       `json:"mime_type"`
	Language  string       `json:"language,omitempty"`
	Content   string       `json:"content,omitempty"`
	Metadata  *graph.Graph `json:"-" db:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewContentItem creates a content item with a fresh resource id, a
// minted urn URI and an empty metadata graph.
func NewContentItem(content string, mimeType string, language string) *ContentItem {
	rid := uuid.New()
	return &ContentItem{
		RID:      rid,
		URI:      vocab.NewContentItemIRI(rid).String(),
		MimeType: mimeType,
		Language: language,
		Content:  content,
		Metadata: graph.New(),
	}
}

// Subject returns the RDF term identifying this item in its metadata graph.
func (ci *ContentItem) Subject() rdf.IRI {
	return vocab.MustIRI(ci.URI)
}

// BaseMimeType returns the mime type without parameters, lowercased
// ("text/html; charset=utf-8" -> "text/html").
func (ci *ContentItem) BaseMimeType() string {
	base, _, _ := strings.Cut(ci.MimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// PlainText returns the text to analyze: the raw content for text mime
// types, otherwise the plain text attached to the metadata graph by an
// upstream extraction step. Returns "" when no text is available.
func (ci *ContentItem) PlainText() string {
	switch ci.BaseMimeType() {
	case "text/plain", "text/html":
		return ci.Content
	}
	if ci.Metadata == nil {
		return ""
	}
	var sb strings.Builder
	for _, t := range ci.Metadata.Filter(ci.Subject(), vocab.PlainTextContent, nil) {
		sb.WriteString(graph.LexicalForm(t.Obj))
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

// MetadataLanguage returns the language of the item: the Language field
// if set, otherwise the dc:language value from the metadata graph.
func (ci *ContentItem) MetadataLanguage() string {
	if ci.Language != "" {
		return ci.Language
	}
	if ci.Metadata == nil {
		return ""
	}
	if t, ok := ci.Metadata.First(ci.Subject(), vocab.DCLanguage, nil); ok {
		return graph.LexicalForm(t.Obj)
	}
	return ""
}
