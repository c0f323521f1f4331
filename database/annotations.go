package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/sql"
)

// AnnotationsDBHandlerFunctions defines the interface for annotation database operations.
type AnnotationsDBHandlerFunctions interface {
	InsertAnnotation(a *model.Annotation) error
	InsertAnnotations(annotations []model.Annotation) error
	SelectAnnotation(rid uuid.UUID) (*model.Annotation, error)
	SelectAnnotationsByContent(contentRID uuid.UUID) ([]*model.Annotation, error)
	SelectAnnotationsByEngine(engine string, limit int) ([]*model.Annotation, error)
	SelectAnnotationsByReference(reference string, limit int) ([]*model.Annotation, error)
	DeleteAnnotationsByContent(contentRID uuid.UUID) (int, error)
}

// AnnotationsDBHandler handles annotation-related database operations
type AnnotationsDBHandler struct {
	db *helper.Database
}

// NewAnnotationsDBHandler creates a new annotations database handler.
// It loads the annotation SQL functions and ensures the table exists.
// If force is true, it will reload the SQL functions even if they already exist.
func NewAnnotationsDBHandler(db *helper.Database, force bool) (*AnnotationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	annotationsDbHandler := &AnnotationsDBHandler{
		db: db,
	}

	err := sql.LoadAnnotationsSql(annotationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load annotations sql", err)
	}

	err = annotationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized AnnotationsDBHandler")

	return annotationsDbHandler, nil
}

// CreateTable creates the 'annotations' table in the database.
// The contentitems table must exist first (foreign key).
func (h *AnnotationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_annotations();`)
	if err != nil {
		log.Panicf("error initializing annotations table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table annotations")

	return nil
}

// InsertAnnotation inserts a new annotation
func (h *AnnotationsDBHandler) InsertAnnotation(a *model.Annotation) error {
	if a.Metadata == nil {
		a.Metadata = model.Metadata{}
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_annotation($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.RID,
		a.ContentRID,
		a.NodeIRI,
		a.Engine,
		a.Kind,
		a.TypeIRI,
		a.SelectedText,
		a.Start,
		a.End,
		a.Context,
		a.EntityReference,
		a.Relevance,
		a.Metadata,
	)

	return scanAnnotation(row, a)
}

// InsertAnnotations inserts all annotations of one enhancement run
func (h *AnnotationsDBHandler) InsertAnnotations(annotations []model.Annotation) error {
	for i := range annotations {
		if err := h.InsertAnnotation(&annotations[i]); err != nil {
			return err
		}
	}
	return nil
}

// SelectAnnotation retrieves an annotation by RID
func (h *AnnotationsDBHandler) SelectAnnotation(rid uuid.UUID) (*model.Annotation, error) {
	a := &model.Annotation{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_annotation($1)`,
		rid,
	)

	err := scanAnnotation(row, a)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// SelectAnnotationsByContent retrieves all annotations of a content item
func (h *AnnotationsDBHandler) SelectAnnotationsByContent(contentRID uuid.UUID) ([]*model.Annotation, error) {
	return h.selectAnnotations(
		`SELECT * FROM select_annotations_by_content($1)`,
		contentRID,
	)
}

// SelectAnnotationsByEngine retrieves the latest annotations of an engine
func (h *AnnotationsDBHandler) SelectAnnotationsByEngine(engine string, limit int) ([]*model.Annotation, error) {
	return h.selectAnnotations(
		`SELECT * FROM select_annotations_by_engine($1, $2)`,
		engine,
		limit,
	)
}

// SelectAnnotationsByReference retrieves annotations referencing an entity
func (h *AnnotationsDBHandler) SelectAnnotationsByReference(reference string, limit int) ([]*model.Annotation, error) {
	return h.selectAnnotations(
		`SELECT * FROM select_annotations_by_reference($1, $2)`,
		reference,
		limit,
	)
}

// DeleteAnnotationsByContent deletes all annotations of a content item
// and returns how many rows were removed.
func (h *AnnotationsDBHandler) DeleteAnnotationsByContent(contentRID uuid.UUID) (int, error) {
	var deleted int
	err := h.db.Instance.QueryRow(
		`SELECT delete_annotations_by_content($1)`,
		contentRID,
	).Scan(&deleted)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return deleted, nil
}

func (h *AnnotationsDBHandler) selectAnnotations(query string, args ...any) ([]*model.Annotation, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var annotations []*model.Annotation
	for rows.Next() {
		a := &model.Annotation{}
		if err := scanAnnotation(rows, a); err != nil {
			return nil, err
		}
		annotations = append(annotations, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return annotations, nil
}

func scanAnnotation(row scanner, a *model.Annotation) error {
	err := row.Scan(
		&a.ID,
		&a.RID,
		&a.ContentRID,
		&a.NodeIRI,
		&a.Engine,
		&a.Kind,
		&a.TypeIRI,
		&a.SelectedText,
		&a.Start,
		&a.End,
		&a.Context,
		&a.EntityReference,
		&a.Relevance,
		&a.Metadata,
		&a.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}
