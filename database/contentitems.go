// Package database provides one handler per table of the enricher
// schema. Handlers call the embedded SQL functions loaded by the sql
// package instead of issuing inline statements.
package database

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/sql"
)

// ContentItemsDBHandlerFunctions defines the interface for content item database operations.
type ContentItemsDBHandlerFunctions interface {
	InsertContentItem(ci *model.ContentItem) error
	SelectContentItem(rid uuid.UUID) (*model.ContentItem, error)
	SelectContentItemByURI(uri string) (*model.ContentItem, error)
	SelectAllContentItems(lastCreatedAt *time.Time, limit int) ([]*model.ContentItem, error)
	UpdateContentItemMetadata(ci *model.ContentItem) error
	DeleteContentItem(rid uuid.UUID) error
}

// ContentItemsDBHandler handles content item related database operations
type ContentItemsDBHandler struct {
	db *helper.Database
}

// NewContentItemsDBHandler creates a new content items database handler.
// It loads the content item SQL functions and ensures the table exists.
// If force is true, it will reload the SQL functions even if they already exist.
func NewContentItemsDBHandler(db *helper.Database, force bool) (*ContentItemsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	contentItemsDbHandler := &ContentItemsDBHandler{
		db: db,
	}

	err := sql.LoadContentItemsSql(contentItemsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load contentitems sql", err)
	}

	err = contentItemsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ContentItemsDBHandler")

	return contentItemsDbHandler, nil
}

// CreateTable creates the 'contentitems' table in the database.
// If the table already exists, it does not create it again.
func (h *ContentItemsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_contentitems();`)
	if err != nil {
		log.Panicf("error initializing contentitems table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table contentitems")

	return nil
}

// InsertContentItem inserts a new content item with its serialized
// metadata graph.
func (h *ContentItemsDBHandler) InsertContentItem(ci *model.ContentItem) error {
	metadata, err := encodeMetadata(ci.Metadata)
	if err != nil {
		return helper.NewError("encode metadata", err)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_contentitem($1, $2, $3, $4, $5, $6)`,
		ci.RID,
		ci.URI,
		ci.MimeType,
		ci.Language,
		ci.Content,
		metadata,
	)

	return scanContentItem(row, ci)
}

// SelectContentItem retrieves a content item by RID
func (h *ContentItemsDBHandler) SelectContentItem(rid uuid.UUID) (*model.ContentItem, error) {
	ci := &model.ContentItem{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_contentitem($1)`,
		rid,
	)

	err := scanContentItem(row, ci)
	if err != nil {
		return nil, err
	}

	return ci, nil
}

// SelectContentItemByURI retrieves a content item by its URI
func (h *ContentItemsDBHandler) SelectContentItemByURI(uri string) (*model.ContentItem, error) {
	ci := &model.ContentItem{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_contentitem_by_uri($1)`,
		uri,
	)

	err := scanContentItem(row, ci)
	if err != nil {
		return nil, err
	}

	return ci, nil
}

// SelectAllContentItems retrieves all content items with pagination
func (h *ContentItemsDBHandler) SelectAllContentItems(lastCreatedAt *time.Time, limit int) ([]*model.ContentItem, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_contentitems($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var items []*model.ContentItem
	for rows.Next() {
		ci := &model.ContentItem{}
		if err := scanContentItem(rows, ci); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return items, nil
}

// UpdateContentItemMetadata stores the current metadata graph of the item
func (h *ContentItemsDBHandler) UpdateContentItemMetadata(ci *model.ContentItem) error {
	metadata, err := encodeMetadata(ci.Metadata)
	if err != nil {
		return helper.NewError("encode metadata", err)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_contentitem_metadata($1, $2)`,
		ci.RID,
		metadata,
	)

	return scanContentItem(row, ci)
}

// DeleteContentItem deletes a content item and its annotations
func (h *ContentItemsDBHandler) DeleteContentItem(rid uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_contentitem($1)`,
		rid,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanContentItem(row scanner, ci *model.ContentItem) error {
	var metadata string
	err := row.Scan(
		&ci.ID,
		&ci.RID,
		&ci.URI,
		&ci.MimeType,
		&ci.Language,
		&ci.Content,
		&metadata,
		&ci.CreatedAt,
		&ci.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	ci.Metadata, err = decodeMetadata(metadata)
	if err != nil {
		return helper.NewError("decode metadata", err)
	}

	return nil
}

// encodeMetadata serializes a metadata graph as N-Triples for storage.
func encodeMetadata(g *graph.Graph) (string, error) {
	if g == nil || g.Len() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := g.Encode(&buf, rdf.NTriples); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func decodeMetadata(metadata string) (*graph.Graph, error) {
	if strings.TrimSpace(metadata) == "" {
		return graph.New(), nil
	}
	return graph.Decode(strings.NewReader(metadata), rdf.NTriples)
}
