package model

import "github.com/knakk/rdf"

// EntityOccurrence is one mention of a named entity found by an engine:
// who was found (ID, Type, Name), where (Offset, Length, Exact, Context)
// and how certain the service is (Relevance, when reported).
//
// ID is the entity resource reported by the vendor, post-disambiguation
// when the service offers one. It is discarded after the annotation
// triples have been emitted.
type EntityOccurrence struct {
	ID        rdf.Term
	Type      rdf.IRI
	Name      string
	Exact     string
	Offset    int
	Length    int
	Context   string
	Relevance *float64
}

// Complete reports whether all required fields are populated. Incomplete
// occurrences are skipped during annotation emission.
func (o *EntityOccurrence) Complete() bool {
	return o.ID != nil &&
		o.Type.String() != "" &&
		o.Name != "" &&
		o.Exact != "" &&
		o.Length > 0 &&
		o.Offset >= 0
}
