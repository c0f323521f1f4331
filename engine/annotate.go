package engine

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

// WriteOccurrences appends the annotation structures for the given
// occurrences to the content item's metadata graph.
//
// Every occurrence yields a text annotation (selected text, offsets,
// selection context, dc:type). Occurrences sharing an entity id share
// one entity annotation carrying label, type and reference, related to
// each of its text annotations via dc:relation.
//
// In nerOnly mode no entity annotations are created (a downstream
// entity-linking engine is expected to do its own); the canonical name
// is used as selected text instead of the matched term, which may be a
// pronoun, and later occurrences of an entity link to the first text
// annotation with that id.
//
// Incomplete occurrences are skipped. Returns the number of text
// annotations written and the number of occurrences skipped.
func WriteOccurrences(ci *model.ContentItem, engineName string, occs []model.EntityOccurrence, nerOnly bool) (written int, skipped int) {
	g := ci.Metadata
	entityAnnotations := map[string]rdf.IRI{}

	for _, occ := range occs {
		if !occ.Complete() {
			skipped++
			continue
		}

		ta := NewTextAnnotation(ci, engineName)
		g.Add(ta, vocab.DCType, occ.Type)
		selected := occ.Exact
		if nerOnly {
			selected = occ.Name
		}
		g.Add(ta, vocab.SelectedText, stringLiteral(selected))
		g.Add(ta, vocab.Start, intLiteral(occ.Offset))
		g.Add(ta, vocab.End, intLiteral(occ.Offset+occ.Length))
		if occ.Context != "" {
			g.Add(ta, vocab.SelectionContext, stringLiteral(occ.Context))
		}
		if occ.Relevance != nil {
			g.Add(ta, vocab.Confidence, doubleLiteral(*occ.Relevance))
		}
		written++

		key := occ.ID.Serialize(rdf.NTriples)
		if prev, ok := entityAnnotations[key]; ok {
			g.Add(prev, vocab.DCRelation, ta)
			continue
		}
		if nerOnly {
			entityAnnotations[key] = ta
			continue
		}

		ea := NewEntityAnnotation(ci, engineName)
		entityAnnotations[key] = ea
		g.Add(ea, vocab.DCRelation, ta)
		g.Add(ea, vocab.EntityLabel, stringLiteral(occ.Name))
		g.Add(ea, vocab.EntityType, occ.Type)
		if ref, ok := occ.ID.(rdf.Object); ok {
			g.Add(ea, vocab.EntityReference, ref)
		}
		if occ.Relevance != nil {
			g.Add(ea, vocab.Confidence, doubleLiteral(*occ.Relevance))
		}
	}
	return written, skipped
}

// NewTextAnnotation mints a text annotation node and attaches the
// standard provenance triples.
func NewTextAnnotation(ci *model.ContentItem, engineName string) rdf.IRI {
	return newAnnotation(ci, engineName, vocab.TextAnnotation)
}

// NewEntityAnnotation mints an entity annotation node and attaches the
// standard provenance triples.
func NewEntityAnnotation(ci *model.ContentItem, engineName string) rdf.IRI {
	return newAnnotation(ci, engineName, vocab.EntityAnnotation)
}

func newAnnotation(ci *model.ContentItem, engineName string, class rdf.IRI) rdf.IRI {
	node := vocab.NewEnhancementIRI()
	g := ci.Metadata
	g.Add(node, vocab.RDFType, class)
	g.Add(node, vocab.ExtractedFrom, ci.Subject())
	g.Add(node, vocab.DCCreated, rdf.NewTypedLiteral(time.Now().UTC().Format(time.RFC3339), vocab.XSDDateTime))
	g.Add(node, vocab.DCCreator, stringLiteral(engineName))
	return node
}

// CollectAnnotations extracts the annotation nodes of a metadata graph
// into storable rows.
func CollectAnnotations(g *graph.Graph, contentRID uuid.UUID) []model.Annotation {
	var result []model.Annotation

	for _, subj := range g.Subjects(vocab.RDFType, vocab.TextAnnotation) {
		a := model.Annotation{
			RID:        uuid.New(),
			ContentRID: contentRID,
			NodeIRI:    subj.String(),
			Kind:       model.KindText,
		}
		fillCommon(g, subj, &a)
		a.SelectedText = objectValue(g, subj, vocab.SelectedText)
		a.Context = objectValue(g, subj, vocab.SelectionContext)
		a.Start, _ = strconv.Atoi(objectValue(g, subj, vocab.Start))
		a.End, _ = strconv.Atoi(objectValue(g, subj, vocab.End))
		result = append(result, a)
	}

	for _, subj := range g.Subjects(vocab.RDFType, vocab.EntityAnnotation) {
		a := model.Annotation{
			RID:        uuid.New(),
			ContentRID: contentRID,
			NodeIRI:    subj.String(),
			Kind:       model.KindEntity,
		}
		fillCommon(g, subj, &a)
		a.TypeIRI = objectValue(g, subj, vocab.EntityType)
		a.SelectedText = objectValue(g, subj, vocab.EntityLabel)
		a.EntityReference = objectValue(g, subj, vocab.EntityReference)
		if relations := g.Objects(subj, vocab.DCRelation); len(relations) > 0 {
			targets := make([]interface{}, 0, len(relations))
			for _, r := range relations {
				targets = append(targets, r.String())
			}
			a.Metadata = model.Metadata{"relations": targets}
		}
		result = append(result, a)
	}

	return result
}

func fillCommon(g *graph.Graph, subj rdf.Subject, a *model.Annotation) {
	a.Engine = objectValue(g, subj, vocab.DCCreator)
	if a.TypeIRI == "" {
		a.TypeIRI = objectValue(g, subj, vocab.DCType)
	}
	if v := objectValue(g, subj, vocab.Confidence); v != "" {
		if score, err := strconv.ParseFloat(v, 64); err == nil {
			a.Relevance = &score
		}
	}
}

func objectValue(g *graph.Graph, subj rdf.Subject, pred rdf.Predicate) string {
	if t, ok := g.First(subj, pred, nil); ok {
		return graph.LexicalForm(t.Obj)
	}
	return ""
}

func stringLiteral(v string) rdf.Literal {
	return rdf.NewTypedLiteral(v, vocab.XSDString)
}

func intLiteral(v int) rdf.Literal {
	return rdf.NewTypedLiteral(strconv.Itoa(v), vocab.XSDInt)
}

func doubleLiteral(v float64) rdf.Literal {
	return rdf.NewTypedLiteral(strconv.FormatFloat(v, 'f', -1, 64), vocab.XSDDouble)
}
