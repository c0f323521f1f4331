package opencalais

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

// Predicates of the OpenCalais response vocabulary.
var (
	predName      = vocab.MustIRI(vocab.CalaisPredNS + "name")
	predSubject   = vocab.MustIRI(vocab.CalaisPredNS + "subject")
	predOffset    = vocab.MustIRI(vocab.CalaisPredNS + "offset")
	predLength    = vocab.MustIRI(vocab.CalaisPredNS + "length")
	predExact     = vocab.MustIRI(vocab.CalaisPredNS + "exact")
	predDetection = vocab.MustIRI(vocab.CalaisPredNS + "detection")
	predRelevance = vocab.MustIRI(vocab.CalaisPredNS + "relevance")
)

// acceptedTypes is the fixed set of entity types extracted from a
// response; everything else in the Calais graph (events, relations,
// social tags) is ignored.
var acceptedTypes = func() map[string]bool {
	m := map[string]bool{}
	for _, name := range []string{
		"Person", "City", "Continent", "Country", "ProvinceOrState",
		"Region", "Company", "Facility", "Organization",
	} {
		m[vocab.CalaisTypeNS+name] = true
	}
	return m
}()

// bracketReplacer strips the square brackets Calais puts around the
// matched term inside the detection context.
var bracketReplacer = strings.NewReplacer("[", "", "]", "")

// queryOccurrences runs the fixed occurrence query against a parsed
// response graph: entity nodes (p:name + accepted rdf:type) joined with
// their instance-info nodes (p:subject back-reference carrying offset,
// length, exact and detection), with optional relevance scores and
// optional disambiguated entity references.
func (e *Engine) queryOccurrences(g *graph.Graph) []model.EntityOccurrence {
	var result []model.EntityOccurrence

	for _, nameTriple := range g.Filter(nil, predName, nil) {
		id := nameTriple.Subj
		idObj, ok := id.(rdf.Object)
		if !ok {
			continue
		}
		name := graph.LexicalForm(nameTriple.Obj)

		vendorType, ok := acceptedType(g, id)
		if !ok {
			continue
		}

		// Nodes referencing this entity via p:subject: instance infos,
		// relevance carriers and disambiguated entities all use it.
		refs := g.Subjects(predSubject, idObj)

		relevance := findRelevance(g, refs)
		// Any named, typed node referencing the entity counts as its
		// disambiguation; the match is not restricted to nodes whose
		// p:name equals the surface entity's name.
		disambiguated, disambiguatedType, disambiguatedName := findDisambiguation(g, refs)

		occID := rdf.Term(id)
		occType := vendorType
		occName := name
		if disambiguated != nil {
			occID = disambiguated
			if disambiguatedName != "" {
				occName = disambiguatedName
			}
			// NER-only mode keeps the vendor type; the disambiguated type
			// replaces it otherwise.
			if !e.nerOnly && disambiguatedType.String() != "" {
				occType = disambiguatedType
			}
		}
		if mapped, ok := e.typeMap[occType.String()]; ok {
			occType = mapped
		}

		for _, ref := range refs {
			offsetTriple, ok := g.First(ref, predOffset, nil)
			if !ok {
				continue // not an instance info node
			}
			occ := model.EntityOccurrence{
				ID:        occID,
				Type:      occType,
				Name:      occName,
				Relevance: relevance,
			}
			occ.Offset, _ = strconv.Atoi(graph.LexicalForm(offsetTriple.Obj))
			if t, ok := g.First(ref, predLength, nil); ok {
				occ.Length, _ = strconv.Atoi(graph.LexicalForm(t.Obj))
			}
			if t, ok := g.First(ref, predExact, nil); ok {
				occ.Exact = graph.LexicalForm(t.Obj)
			}
			if t, ok := g.First(ref, predDetection, nil); ok {
				occ.Context = bracketReplacer.Replace(graph.LexicalForm(t.Obj))
			}
			result = append(result, occ)
		}
	}

	e.log.Info("OpenCalais occurrences extracted", slog.Int("count", len(result)))
	return result
}

// acceptedType returns the first rdf:type of id within the accepted
// entity type set.
func acceptedType(g *graph.Graph, id rdf.Subject) (rdf.IRI, bool) {
	for _, t := range g.Filter(id, vocab.RDFType, nil) {
		if iri, ok := t.Obj.(rdf.IRI); ok && acceptedTypes[iri.String()] {
			return iri, true
		}
	}
	return rdf.IRI{}, false
}

// findRelevance returns the relevance score carried by any of the nodes
// referencing the entity, or nil when none reports one.
func findRelevance(g *graph.Graph, refs []rdf.Subject) *float64 {
	for _, ref := range refs {
		if t, ok := g.First(ref, predRelevance, nil); ok {
			if score, err := strconv.ParseFloat(graph.LexicalForm(t.Obj), 64); err == nil {
				return &score
			}
		}
	}
	return nil
}

// findDisambiguation returns the disambiguated entity node among refs:
// a node that itself has a p:name and an rdf:type.
func findDisambiguation(g *graph.Graph, refs []rdf.Subject) (rdf.Term, rdf.IRI, string) {
	for _, ref := range refs {
		nameTriple, ok := g.First(ref, predName, nil)
		if !ok {
			continue
		}
		typeTriple, ok := g.First(ref, vocab.RDFType, nil)
		if !ok {
			continue
		}
		dtype, _ := typeTriple.Obj.(rdf.IRI)
		return ref, dtype, graph.LexicalForm(nameTriple.Obj)
	}
	return nil, rdf.IRI{}, ""
}
