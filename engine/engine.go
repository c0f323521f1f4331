// Package engine defines the enhancement engine contract and the chain
// that runs engines against a content item. Engines derive entity
// occurrences from the item's text and append annotation triples to its
// metadata graph; the shared emission logic lives here so every engine
// produces the same annotation structures.
package engine

import (
	"context"

	"github.com/textgraph/enricher/model"
)

// Capability is the result of asking an engine whether it can enhance a
// content item.
type Capability int

const (
	// CannotEnhance means the engine will not process the item
	// (unsupported mime type or language, no text).
	CannotEnhance Capability = iota
	// EnhanceSynchronous means the engine processes the item inline.
	EnhanceSynchronous
)

// Chain ordering values. Higher orderings run earlier; engines that feed
// on the output of others (entity linking after NER) use lower values.
const (
	OrderingContentExtraction     = 100
	OrderingExtractionEnhancement = 10
	OrderingDefault               = 0
	OrderingPostProcessing        = -100
)

// Engine is a pluggable unit that annotates a content item with derived
// metadata. Implementations must be safe for concurrent Enhance calls on
// distinct content items; the chain itself never runs an engine twice
// concurrently for the same item.
type Engine interface {
	// Name identifies the engine in logs, metrics and dc:creator triples.
	Name() string
	// Ordering determines the position in the chain (higher runs first).
	Ordering() int
	// CanEnhance checks mime type, language and text availability.
	CanEnhance(ci *model.ContentItem) (Capability, error)
	// Enhance appends annotation triples to ci.Metadata.
	Enhance(ctx context.Context, ci *model.ContentItem) error
}
