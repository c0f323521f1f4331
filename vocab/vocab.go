// Package vocab defines the RDF vocabulary used by the enhancement
// engines: the enhancer annotation ontology, the Dublin Core and NIE
// properties referenced by it, XSD datatypes and the vendor namespaces
// of the remote services.
package vocab

import "github.com/knakk/rdf"

// Namespace prefixes.
const (
	EnhancerNS = "http://fise.iks-project.eu/ontology/"
	DCTermsNS  = "http://purl.org/dc/terms/"
	RDFNS      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNS      = "http://www.w3.org/2001/XMLSchema#"
	NIENS      = "http://www.semanticdesktop.org/ontologies/2007/01/19/nie#"
	DBpediaNS  = "http://dbpedia.org/ontology/"

	// OpenCalais response namespaces.
	CalaisPredNS = "http://s.opencalais.com/1/pred/"
	CalaisTypeNS = "http://s.opencalais.com/1/type/em/e/"

	// Namespace for UIMA feature structure features carried over as literals.
	UIMANS = "http://uima.apache.org/ontology/"
)

// Annotation classes.
var (
	TextAnnotation   = MustIRI(EnhancerNS + "TextAnnotation")
	EntityAnnotation = MustIRI(EnhancerNS + "EntityAnnotation")
)

// Enhancer properties.
var (
	ExtractedFrom    = MustIRI(EnhancerNS + "extracted-from")
	SelectedText     = MustIRI(EnhancerNS + "selected-text")
	SelectionContext = MustIRI(EnhancerNS + "selection-context")
	Start            = MustIRI(EnhancerNS + "start")
	End              = MustIRI(EnhancerNS + "end")
	Confidence       = MustIRI(EnhancerNS + "confidence")
	EntityLabel      = MustIRI(EnhancerNS + "entity-label")
	EntityReference  = MustIRI(EnhancerNS + "entity-reference")
	EntityType       = MustIRI(EnhancerNS + "entity-type")
)

// Dublin Core and related properties.
var (
	DCType     = MustIRI(DCTermsNS + "type")
	DCLanguage = MustIRI(DCTermsNS + "language")
	DCRelation = MustIRI(DCTermsNS + "relation")
	DCCreated  = MustIRI(DCTermsNS + "created")
	DCCreator  = MustIRI(DCTermsNS + "creator")

	RDFType = MustIRI(RDFNS + "type")

	// Plain text content attached to the metadata graph by upstream
	// text extraction for non-text mime types.
	PlainTextContent = MustIRI(NIENS + "plainTextContent")
)

// XSD datatypes.
var (
	XSDString   = MustIRI(XSDNS + "string")
	XSDInt      = MustIRI(XSDNS + "int")
	XSDDouble   = MustIRI(XSDNS + "double")
	XSDDateTime = MustIRI(XSDNS + "dateTime")
)

// DBpedia ontology classes used as the common target of vendor type maps.
var (
	DBpediaPerson       = MustIRI(DBpediaNS + "Person")
	DBpediaOrganisation = MustIRI(DBpediaNS + "Organisation")
	DBpediaPlace        = MustIRI(DBpediaNS + "Place")
	DBpediaCountry      = MustIRI(DBpediaNS + "Country")
	DBpediaCity         = MustIRI(DBpediaNS + "City")
	DBpediaContinent    = MustIRI(DBpediaNS + "Continent")
	DBpediaRegion       = MustIRI(DBpediaNS + "Region")
)

// MustIRI builds an IRI and panics on invalid input. It is meant for
// vocabulary constants and other IRIs known valid at compile time.
func MustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}
