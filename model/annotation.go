package model

import (
	"time"

	"github.com/google/uuid"
)

// AnnotationKind distinguishes the two annotation structures engines emit.
type AnnotationKind string

const (
	// KindText marks a text annotation: a selected span of the content.
	KindText AnnotationKind = "text"
	// KindEntity marks an entity annotation: a reference to a recognized
	// entity, related to one or more text annotations.
	KindEntity AnnotationKind = "entity"
)

// Annotation is the stored form of one annotation node from a content
// item's metadata graph. The graph stays the source of truth; rows exist
// so annotations survive the enhancement run and can be queried.
type Annotation struct {
	ID              int64          `json:"id"`
	RID             uuid.UUID      `json:"rid"`
	ContentRID      uuid.UUID      `json:"content_rid"`
	NodeIRI         string         `json:"node_iri"`
	Engine          string         `json:"engine"`
	Kind            AnnotationKind `json:"kind"`
	TypeIRI         string         `json:"type_iri,omitempty"`
	SelectedText    string         `json:"selected_text,omitempty"`
	Start           int            `json:"start"`
	End             int            `json:"end"`
	Context         string         `json:"context,omitempty"`
	EntityReference string         `json:"entity_reference,omitempty"`
	Relevance       *float64       `json:"relevance,omitempty"`
	Metadata        Metadata       `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
