package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

func mustLiteral(t *testing.T, v string) rdf.Literal {
	t.Helper()
	lit, err := rdf.NewLiteral(v)
	require.NoError(t, err)
	return lit
}

func TestContentItemsNewContentItemsDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewContentItemsDBHandler", func(t *testing.T) {
		handler, err := NewContentItemsDBHandler(database, true)
		assert.NoError(t, err, "Expected NewContentItemsDBHandler to not return an error")
		require.NotNil(t, handler, "Expected NewContentItemsDBHandler to return a non-nil instance")
		require.NotNil(t, handler.db, "Expected NewContentItemsDBHandler to have a non-nil database instance")
	})

	t.Run("Invalid call NewContentItemsDBHandler with nil database", func(t *testing.T) {
		_, err := NewContentItemsDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating ContentItemsDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil")
	})
}

func TestContentItemsInsert(t *testing.T) {
	database := initDB(t)

	handler, err := NewContentItemsDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Insert content item", func(t *testing.T) {
		ci := model.NewContentItem("Angela Merkel spoke in Berlin.", "text/plain", "en")
		err := handler.InsertContentItem(ci)
		assert.NoError(t, err)
		assert.Greater(t, ci.ID, int64(0))
		assert.False(t, ci.CreatedAt.IsZero())
	})

	t.Run("Insert content item with metadata graph", func(t *testing.T) {
		ci := model.NewContentItem("some text", "text/plain", "en")
		ci.Metadata.Add(ci.Subject(), vocab.DCLanguage, mustLiteral(t, "en"))
		err := handler.InsertContentItem(ci)
		assert.NoError(t, err)

		stored, err := handler.SelectContentItem(ci.RID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Metadata.Len())
	})

	t.Run("Reject duplicate uri", func(t *testing.T) {
		ci := model.NewContentItem("text", "text/plain", "en")
		require.NoError(t, handler.InsertContentItem(ci))

		dup := model.NewContentItem("text", "text/plain", "en")
		dup.URI = ci.URI
		assert.Error(t, handler.InsertContentItem(dup))
	})
}

func TestContentItemsSelect(t *testing.T) {
	database := initDB(t)

	handler, err := NewContentItemsDBHandler(database, true)
	require.NoError(t, err)

	ci := model.NewContentItem("stored text", "text/html", "fr")
	require.NoError(t, handler.InsertContentItem(ci))

	t.Run("Select content item by rid", func(t *testing.T) {
		stored, err := handler.SelectContentItem(ci.RID)
		require.NoError(t, err)
		assert.Equal(t, ci.URI, stored.URI)
		assert.Equal(t, "stored text", stored.Content)
		assert.Equal(t, "text/html", stored.MimeType)
		assert.Equal(t, "fr", stored.Language)
		require.NotNil(t, stored.Metadata)
	})

	t.Run("Select content item by uri", func(t *testing.T) {
		stored, err := handler.SelectContentItemByURI(ci.URI)
		require.NoError(t, err)
		assert.Equal(t, ci.RID, stored.RID)
	})

	t.Run("Select missing content item", func(t *testing.T) {
		_, err := handler.SelectContentItem(uuid.New())
		assert.Error(t, err)
	})

	t.Run("Select all content items with pagination", func(t *testing.T) {
		for range 3 {
			extra := model.NewContentItem("more text", "text/plain", "en")
			require.NoError(t, handler.InsertContentItem(extra))
		}

		items, err := handler.SelectAllContentItems(nil, 2)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		older, err := handler.SelectAllContentItems(&items[1].CreatedAt, 100)
		require.NoError(t, err)
		for _, item := range older {
			assert.True(t, item.CreatedAt.Before(items[1].CreatedAt))
		}
	})
}

func TestContentItemsUpdateMetadata(t *testing.T) {
	database := initDB(t)

	handler, err := NewContentItemsDBHandler(database, true)
	require.NoError(t, err)

	ci := model.NewContentItem("text", "text/plain", "en")
	require.NoError(t, handler.InsertContentItem(ci))

	t.Run("Update metadata graph", func(t *testing.T) {
		ci.Metadata.Add(ci.Subject(), vocab.DCLanguage, mustLiteral(t, "en"))
		err := handler.UpdateContentItemMetadata(ci)
		require.NoError(t, err)

		stored, err := handler.SelectContentItem(ci.RID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Metadata.Len())
		assert.True(t, stored.UpdatedAt.After(stored.CreatedAt) || stored.UpdatedAt.Equal(stored.CreatedAt))
	})
}

func TestContentItemsDelete(t *testing.T) {
	database := initDB(t)

	handler, err := NewContentItemsDBHandler(database, true)
	require.NoError(t, err)

	ci := model.NewContentItem("text", "text/plain", "en")
	require.NoError(t, handler.InsertContentItem(ci))

	t.Run("Delete content item", func(t *testing.T) {
		err := handler.DeleteContentItem(ci.RID)
		assert.NoError(t, err)

		_, err = handler.SelectContentItem(ci.RID)
		assert.Error(t, err)
	})

	t.Run("Delete missing content item", func(t *testing.T) {
		assert.NoError(t, handler.DeleteContentItem(uuid.New()))
	})
}
