// Package graph provides an appendable in-memory RDF triple graph.
//
// Term and triple handling, as well as parsing of serialized RDF
// (RDF/XML, Turtle, N-Triples), is delegated to github.com/knakk/rdf.
// The graph only adds what the enhancement engines need on top: append,
// merge and wildcard pattern filtering.
package graph

import (
	"io"

	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/helper"
)

// Graph is a mutable, unordered collection of RDF triples. Engines only
// ever append to it; removal is intentionally not supported.
type Graph struct {
	triples []rdf.Triple
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// Decode parses serialized RDF from r into a new graph.
func Decode(r io.Reader, format rdf.Format) (*Graph, error) {
	dec := rdf.NewTripleDecoder(r, format)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, helper.NewError("decode rdf", err)
	}
	return &Graph{triples: triples}, nil
}

// Add appends a triple built from the given terms.
func (g *Graph) Add(s rdf.Subject, p rdf.Predicate, o rdf.Object) {
	g.triples = append(g.triples, rdf.Triple{Subj: s, Pred: p, Obj: o})
}

// AddTriple appends an existing triple.
func (g *Graph) AddTriple(t rdf.Triple) {
	g.triples = append(g.triples, t)
}

// Merge appends all triples of other.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	g.triples = append(g.triples, other.triples...)
}

// Len returns the number of triples in the graph.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns the underlying triple slice. Callers must not modify it.
func (g *Graph) Triples() []rdf.Triple {
	return g.triples
}

// Filter returns all triples matching the given pattern. A nil term acts
// as a wildcard. The response graphs the engines query are small, so a
// linear scan is sufficient.
func (g *Graph) Filter(s rdf.Subject, p rdf.Predicate, o rdf.Object) []rdf.Triple {
	var result []rdf.Triple
	for _, t := range g.triples {
		if s != nil && !TermEq(t.Subj, s) {
			continue
		}
		if p != nil && !TermEq(t.Pred, p) {
			continue
		}
		if o != nil && !TermEq(t.Obj, o) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// First returns the first triple matching the pattern.
func (g *Graph) First(s rdf.Subject, p rdf.Predicate, o rdf.Object) (rdf.Triple, bool) {
	for _, t := range g.triples {
		if s != nil && !TermEq(t.Subj, s) {
			continue
		}
		if p != nil && !TermEq(t.Pred, p) {
			continue
		}
		if o != nil && !TermEq(t.Obj, o) {
			continue
		}
		return t, true
	}
	return rdf.Triple{}, false
}

// Objects returns the objects of all triples with the given subject and
// predicate.
func (g *Graph) Objects(s rdf.Subject, p rdf.Predicate) []rdf.Object {
	var result []rdf.Object
	for _, t := range g.Filter(s, p, nil) {
		result = append(result, t.Obj)
	}
	return result
}

// Subjects returns the distinct subjects of all triples with the given
// predicate and object.
func (g *Graph) Subjects(p rdf.Predicate, o rdf.Object) []rdf.Subject {
	var result []rdf.Subject
	seen := map[string]bool{}
	for _, t := range g.Filter(nil, p, o) {
		key := t.Subj.Serialize(rdf.NTriples)
		if !seen[key] {
			seen[key] = true
			result = append(result, t.Subj)
		}
	}
	return result
}

// Encode writes the graph to w in the given serialization format.
func (g *Graph) Encode(w io.Writer, format rdf.Format) error {
	enc := rdf.NewTripleEncoder(w, format)
	for _, t := range g.triples {
		if err := enc.Encode(t); err != nil {
			return helper.NewError("encode triple", err)
		}
	}
	if err := enc.Close(); err != nil {
		return helper.NewError("close encoder", err)
	}
	return nil
}

// TermEq reports whether two terms are equal, comparing their N-Triples
// serialization so literals with differing datatypes or language tags
// stay distinct.
func TermEq(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type() == b.Type() && a.Serialize(rdf.NTriples) == b.Serialize(rdf.NTriples)
}

// LexicalForm returns the plain string value of a term: the value of a
// literal, or the IRI/blank node identifier otherwise.
func LexicalForm(t rdf.Term) string {
	if t == nil {
		return ""
	}
	return t.String()
}
