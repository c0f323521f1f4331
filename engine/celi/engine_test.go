package celi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	enginepkg "github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/model"
)

const celiResponse = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <ner:namedEntityRecognitionResponse xmlns:ner="http://linguagrid.org/v20110204/ner">
      <ner:entity type="PER" from="0" to="12">
        <ner:label>Marie Curie</ner:label>
      </ner:entity>
      <ner:entity type="LOC" from="24" to="29"/>
      <ner:entity type="XYZ" from="50" to="49"/>
    </ner:namedEntityRecognitionResponse>
  </soapenv:Body>
</soapenv:Envelope>`

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestEngine(t *testing.T, serviceURL string) *Engine {
	t.Helper()
	e, err := New(Config{ServiceURL: serviceURL, AuthKey: "secret"}, testLogger())
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	t.Run("Fail without service URL", func(t *testing.T) {
		_, err := New(Config{}, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service URL")
	})

	t.Run("Apply default languages", func(t *testing.T) {
		e := newTestEngine(t, "http://localhost/ner")
		assert.Equal(t, defaultLanguages, e.languages)
	})
}

func TestCanEnhance(t *testing.T) {
	e := newTestEngine(t, "http://localhost/ner")

	t.Run("Accept supported language", func(t *testing.T) {
		ci := model.NewContentItem("un texte", "text/plain", "fr")
		capability, err := e.CanEnhance(ci)
		require.NoError(t, err)
		assert.Equal(t, enginepkg.EnhanceSynchronous, capability)
	})

	t.Run("Reject missing language", func(t *testing.T) {
		ci := model.NewContentItem("some text", "text/plain", "")
		capability, err := e.CanEnhance(ci)
		require.NoError(t, err)
		assert.Equal(t, enginepkg.CannotEnhance, capability)
	})

	t.Run("Reject unsupported mime type", func(t *testing.T) {
		ci := model.NewContentItem("texte", "application/pdf", "fr")
		capability, err := e.CanEnhance(ci)
		require.NoError(t, err)
		assert.Equal(t, enginepkg.CannotEnhance, capability)
	})
}

func TestEnhance(t *testing.T) {
	// Rune offsets: "Marie Curie " is 12 runes, "vécut à" contains
	// multi-byte runes, Paris spans runes 24..29.
	text := "Marie Curie vécut à Par Paris"

	t.Run("Create annotations from canned response", func(t *testing.T) {
		var gotBody string
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			_, _ = w.Write([]byte(celiResponse))
		}))
		defer srv.Close()

		e := newTestEngine(t, srv.URL)
		ci := model.NewContentItem(text, "text/plain", "fr")
		require.NoError(t, e.Enhance(context.Background(), ci))

		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Contains(t, gotBody, "<ner:lang>fr</ner:lang>")
		assert.Contains(t, gotBody, "namedEntityRecognition")

		annotations := enginepkg.CollectAnnotations(ci.Metadata, ci.RID)
		var texts []model.Annotation
		for _, a := range annotations {
			if a.Kind == model.KindText {
				texts = append(texts, a)
			}
		}
		// The out-of-range third entity is dropped.
		require.Len(t, texts, 2)

		byText := map[string]model.Annotation{}
		for _, a := range texts {
			byText[a.SelectedText] = a
		}

		// NER only mode selects the label over the matched term.
		curie, ok := byText["Marie Curie"]
		require.True(t, ok)
		assert.Equal(t, "http://dbpedia.org/ontology/Person", curie.TypeIRI)
		assert.Equal(t, 0, curie.Start)
		assert.Equal(t, 12, curie.End)
		assert.NotEmpty(t, curie.Context)
		assert.Equal(t, "celi-ner", curie.Engine)

		// No label: the matched span is both name and selected text.
		loc, ok := byText[string([]rune(text)[24:29])]
		require.True(t, ok)
		assert.Equal(t, "http://dbpedia.org/ontology/Place", loc.TypeIRI)
	})

	t.Run("Return error on service failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		e := newTestEngine(t, srv.URL)
		ci := model.NewContentItem(text, "text/plain", "fr")
		err := e.Enhance(context.Background(), ci)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("Return error on malformed response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{\"not\": \"xml\"}"))
		}))
		defer srv.Close()

		e := newTestEngine(t, srv.URL)
		ci := model.NewContentItem(text, "text/plain", "fr")
		assert.Error(t, e.Enhance(context.Background(), ci))
	})
}

func TestEntityType(t *testing.T) {
	t.Run("Map known tags", func(t *testing.T) {
		assert.Equal(t, "http://dbpedia.org/ontology/Organisation", entityType("ORG").String())
		assert.Equal(t, "http://dbpedia.org/ontology/Person", entityType("per").String())
	})

	t.Run("Fall back to linguagrid namespace", func(t *testing.T) {
		assert.Equal(t, LinguaGridNS+"PRODUCT", entityType("PRODUCT").String())
	})
}

func TestOccurrences(t *testing.T) {
	t.Run("Share entity id for repeated mentions", func(t *testing.T) {
		text := strings.Repeat("Oslo ", 3)
		entities := []nerEntity{
			{Type: "LOC", From: 0, To: 4, Label: "Oslo"},
			{Type: "LOC", From: 5, To: 9, Label: "Oslo"},
		}
		occs := occurrences(text, entities)
		require.Len(t, occs, 2)
		assert.Equal(t, occs[0].ID, occs[1].ID)
	})
}
