package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/sql"
)

// EntityIndexDBHandlerFunctions defines the interface for entity index database operations.
type EntityIndexDBHandlerFunctions interface {
	UpsertEntity(e *model.IndexedEntity) error
	SelectEntity(reference string) (*model.IndexedEntity, error)
	SelectEntitiesBySimilarity(embedding []float32, typeIRI string, limit int) ([]*model.SimilarEntity, error)
	SearchEntities(term string, limit int) ([]*model.IndexedEntity, error)
	DeleteEntity(reference string) error
}

// EntityIndexDBHandler handles entity index related database operations
type EntityIndexDBHandler struct {
	db        *helper.Database
	dimension int
}

// NewEntityIndexDBHandler creates a new entity index database handler.
// dimension is the embedding vector size of the index (must match the
// embedder feeding it). If force is true, it will reload the SQL
// functions even if they already exist.
func NewEntityIndexDBHandler(db *helper.Database, dimension int, force bool) (*EntityIndexDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dimension <= 0 {
		return nil, helper.NewError("dimension validation", fmt.Errorf("embedding dimension must be positive"))
	}

	entityIndexDbHandler := &EntityIndexDBHandler{
		db:        db,
		dimension: dimension,
	}

	err := sql.LoadEntityIndexSql(entityIndexDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entityindex sql", err)
	}

	err = entityIndexDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntityIndexDBHandler")

	return entityIndexDbHandler, nil
}

// CreateTable creates the 'entityindex' table in the database with the
// configured embedding dimension.
func (h *EntityIndexDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entityindex($1);`, h.dimension)
	if err != nil {
		log.Panicf("error initializing entityindex table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entityindex")

	return nil
}

// UpsertEntity inserts or updates an index entry keyed by its reference
func (h *EntityIndexDBHandler) UpsertEntity(e *model.IndexedEntity) error {
	if e.Fields == nil {
		e.Fields = model.Metadata{}
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6)`,
		e.Reference,
		e.Label,
		e.TypeIRI,
		e.Score,
		e.Fields,
		pgvector.NewVector(e.Embedding),
	)

	return scanIndexedEntity(row, e)
}

// SelectEntity retrieves an index entry by its reference
func (h *EntityIndexDBHandler) SelectEntity(reference string) (*model.IndexedEntity, error) {
	e := &model.IndexedEntity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		reference,
	)

	err := scanIndexedEntity(row, e)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// SelectEntitiesBySimilarity retrieves the index entries closest to the
// given embedding, optionally restricted to one entity type. An empty
// typeIRI matches all types.
func (h *EntityIndexDBHandler) SelectEntitiesBySimilarity(embedding []float32, typeIRI string, limit int) ([]*model.SimilarEntity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		typeIRI,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.SimilarEntity
	for rows.Next() {
		e := &model.SimilarEntity{}
		var vec pgvector.Vector
		err := rows.Scan(
			&e.ID,
			&e.RID,
			&e.Reference,
			&e.Label,
			&e.TypeIRI,
			&e.Score,
			&e.Fields,
			&vec,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		e.Embedding = vec.Slice()

		entities = append(entities, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SearchEntities searches index entries by label substring
func (h *EntityIndexDBHandler) SearchEntities(term string, limit int) ([]*model.IndexedEntity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.IndexedEntity
	for rows.Next() {
		e := &model.IndexedEntity{}
		if err := scanIndexedEntity(rows, e); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// DeleteEntity removes an index entry by its reference
func (h *EntityIndexDBHandler) DeleteEntity(reference string) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		reference,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

func scanIndexedEntity(row scanner, e *model.IndexedEntity) error {
	var vec pgvector.Vector
	err := row.Scan(
		&e.ID,
		&e.RID,
		&e.Reference,
		&e.Label,
		&e.TypeIRI,
		&e.Score,
		&e.Fields,
		&vec,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}
	e.Embedding = vec.Slice()

	return nil
}
