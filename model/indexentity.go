package model

import (
	"time"

	"github.com/google/uuid"
)

// IndexedEntity is one entry of the entity index: a known entity with
// its canonical label, normalized score, mapped fields and the label
// embedding used for similarity lookup.
type IndexedEntity struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Reference string    `json:"reference"`
	Label     string    `json:"label"`
	TypeIRI   string    `json:"type_iri,omitempty"`
	Score     float64   `json:"score"`
	Fields    Metadata  `json:"fields,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SimilarEntity is an index entry returned from a similarity lookup.
type SimilarEntity struct {
	IndexedEntity
	Similarity float64 `json:"similarity"`
}
