package vocab

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/knakk/rdf"
)

// NewEnhancementIRI mints a fresh IRI for an annotation node. Every
// text or entity annotation created by an engine gets its own urn.
func NewEnhancementIRI() rdf.IRI {
	return MustIRI(fmt.Sprintf("urn:enhancement-%s", uuid.NewString()))
}

// NewContentItemIRI mints an IRI for a content item from its resource id.
func NewContentItemIRI(rid uuid.UUID) rdf.IRI {
	return MustIRI(fmt.Sprintf("urn:content-item-%s", rid.String()))
}
