package enricher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

// markerEngine annotates the first occurrence of a fixed marker word.
type markerEngine struct {
	marker  string
	typeIRI rdf.IRI
	failing bool
}

func (e *markerEngine) Name() string  { return "marker-" + strings.ToLower(e.marker) }
func (e *markerEngine) Ordering() int { return engine.OrderingDefault }

func (e *markerEngine) CanEnhance(ci *model.ContentItem) (engine.Capability, error) {
	if strings.Contains(ci.PlainText(), e.marker) {
		return engine.EnhanceSynchronous, nil
	}
	return engine.CannotEnhance, nil
}

func (e *markerEngine) Enhance(ctx context.Context, ci *model.ContentItem) error {
	if e.failing {
		return errors.New("marker service unavailable")
	}
	text := ci.PlainText()
	offset := strings.Index(text, e.marker)
	occ := model.EntityOccurrence{
		ID:      vocab.MustIRI("urn:marker:" + e.marker),
		Type:    e.typeIRI,
		Name:    e.marker,
		Exact:   e.marker,
		Offset:  offset,
		Length:  len(e.marker),
		Context: text,
	}
	engine.WriteOccurrences(ci, e.Name(), []model.EntityOccurrence{occ}, false)
	return nil
}

func berlinEngine() *markerEngine {
	return &markerEngine{marker: "Berlin", typeIRI: vocab.MustIRI("http://dbpedia.org/ontology/Place")}
}

func initEnricher(t *testing.T, engines ...engine.Engine) *Enricher {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	e, err := NewEnricherWithRegistry(dbConfig, 4, prometheus.NewRegistry(), engines...)
	require.NoError(t, err, "failed to create enricher")
	require.NotNil(t, e, "expected enricher to be non-nil")

	t.Cleanup(func() {
		e.Close()
	})

	return e
}

func TestNewEnricher(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewEnricherWithRegistry", func(t *testing.T) {
		e, err := NewEnricherWithRegistry(dbConfig, 4, prometheus.NewRegistry(), berlinEngine())
		require.NoError(t, err, "Expected NewEnricherWithRegistry to not return an error")
		require.NotNil(t, e, "Expected NewEnricherWithRegistry to return a non-nil instance")
		assert.NotNil(t, e.DB, "Expected enricher to have a database instance")
		assert.NotNil(t, e.ContentItems, "Expected enricher to have content items handler")
		assert.NotNil(t, e.Annotations, "Expected enricher to have annotations handler")
		assert.NotNil(t, e.EntityIndex, "Expected enricher to have entity index handler")
		assert.Equal(t, []string{"marker-berlin"}, e.Engines())

		err = e.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Enricher with nil database handles Close gracefully", func(t *testing.T) {
		e := &Enricher{}
		err := e.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

func TestProcessAndStoreContentItem(t *testing.T) {
	t.Run("Process and store annotations", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		ci := model.NewContentItem("The conference takes place in Berlin.", "text/plain", "en")
		stored, err := e.ProcessAndStoreContentItem(context.Background(), ci)
		require.NoError(t, err)
		// One text annotation and one entity annotation for the marker.
		assert.Equal(t, 2, stored)

		annotations, err := e.Annotations.SelectAnnotationsByContent(ci.RID)
		require.NoError(t, err)
		require.Len(t, annotations, 2)

		var text, entity *model.Annotation
		for _, a := range annotations {
			switch a.Kind {
			case model.KindText:
				text = a
			case model.KindEntity:
				entity = a
			}
		}
		require.NotNil(t, text)
		require.NotNil(t, entity)
		assert.Equal(t, "Berlin", text.SelectedText)
		assert.Equal(t, 30, text.Start)
		assert.Equal(t, 36, text.End)
		assert.Equal(t, "marker-berlin", text.Engine)
		assert.Equal(t, "urn:marker:Berlin", entity.EntityReference)

		// The stored metadata graph round-trips.
		loaded, err := e.ContentItems.SelectContentItem(ci.RID)
		require.NoError(t, err)
		require.NotNil(t, loaded.Metadata)
		assert.Equal(t, ci.Metadata.Len(), loaded.Metadata.Len())
	})

	t.Run("Empty content rejected", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		ci := model.NewContentItem("", "text/plain", "en")
		_, err := e.ProcessAndStoreContentItem(context.Background(), ci)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "content is empty")
	})

	t.Run("Failing engine still stores item", func(t *testing.T) {
		failing := berlinEngine()
		failing.failing = true
		e := initEnricher(t, failing)

		ci := model.NewContentItem("Berlin again.", "text/plain", "en")
		stored, err := e.ProcessAndStoreContentItem(context.Background(), ci)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marker service unavailable")
		assert.Equal(t, 0, stored)

		loaded, err := e.ContentItems.SelectContentItem(ci.RID)
		require.NoError(t, err)
		assert.Equal(t, "Berlin again.", loaded.Content)
	})
}

func TestReprocess(t *testing.T) {
	t.Run("Reprocess replaces annotations", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		ci := model.NewContentItem("Back to Berlin.", "text/plain", "en")
		stored, err := e.ProcessAndStoreContentItem(context.Background(), ci)
		require.NoError(t, err)
		require.Equal(t, 2, stored)

		before, err := e.Annotations.SelectAnnotationsByContent(ci.RID)
		require.NoError(t, err)

		err = e.Reprocess(context.Background(), []uuid.UUID{ci.RID})
		require.NoError(t, err)

		after, err := e.Annotations.SelectAnnotationsByContent(ci.RID)
		require.NoError(t, err)
		require.Len(t, after, 2)
		// Fresh rows, same shape.
		assert.NotEqual(t, before[0].RID, after[0].RID)
		assert.Equal(t, before[0].SelectedText, after[0].SelectedText)
	})

	t.Run("Unknown content item", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		err := e.Reprocess(context.Background(), []uuid.UUID{uuid.New()})
		require.Error(t, err)
	})
}

func TestEnhanceText(t *testing.T) {
	t.Run("Ephemeral enhancement", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		annotations, err := e.EnhanceText(context.Background(), "Live from Berlin.", "text/plain", "en")
		require.NoError(t, err)
		require.Len(t, annotations, 2)

		// Nothing was stored.
		kinds := []model.AnnotationKind{annotations[0].Kind, annotations[1].Kind}
		assert.ElementsMatch(t, []model.AnnotationKind{model.KindText, model.KindEntity}, kinds)
	})

	t.Run("No matching engine yields no annotations", func(t *testing.T) {
		e := initEnricher(t, berlinEngine())

		annotations, err := e.EnhanceText(context.Background(), "Nothing to see here.", "text/plain", "en")
		require.NoError(t, err)
		assert.Empty(t, annotations)
	})
}
