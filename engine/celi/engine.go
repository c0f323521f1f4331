// Package celi implements an enhancement engine backed by a
// CELI/LinguaGrid named entity recognition service. The content item's
// text is wrapped in a SOAP envelope, the entity list of the XML
// response is mapped to entity occurrences, and the occurrences are
// written back as annotations.
package celi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/knakk/rdf"
	"github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

const defaultTimeout = 30 * time.Second

// LinguaGridNS is the namespace of entity types the service reports
// that have no DBpedia mapping.
const LinguaGridNS = "http://linguagrid.org/ontology/"

var supportedMimeTypes = []string{"text/plain", "text/html"}

// defaultLanguages are the languages the CELI NER models cover.
var defaultLanguages = []string{"fr", "it", "da", "sv", "ru"}

// nerTypeMap maps the service's entity type tags to ontology classes.
var nerTypeMap = map[string]rdf.IRI{
	"PER": vocab.DBpediaPerson,
	"ORG": vocab.DBpediaOrganisation,
	"LOC": vocab.DBpediaPlace,
	"GPE": vocab.DBpediaPlace,
}

// Config holds the engine settings. ServiceURL is required. AuthKey, if
// set, is sent as a bearer token. Languages overrides the default
// language whitelist.
type Config struct {
	ServiceURL string        `yaml:"service_url"`
	AuthKey    string        `yaml:"auth_key"`
	Languages  []string      `yaml:"languages"`
	NEROnly    *bool         `yaml:"ner_only"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Engine is the CELI NER enhancement engine.
type Engine struct {
	serviceURL string
	authKey    string
	languages  []string
	nerOnly    bool
	client     *http.Client
	log        *slog.Logger
}

// New validates the configuration and creates the engine.
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(config.ServiceURL) == "" {
		return nil, helper.NewError("configure celi engine",
			fmt.Errorf("service URL must be set"))
	}
	if _, err := url.Parse(config.ServiceURL); err != nil {
		return nil, helper.NewError("configure celi engine", err)
	}

	languages := config.Languages
	if len(languages) == 0 {
		languages = defaultLanguages
	}
	nerOnly := true
	if config.NEROnly != nil {
		nerOnly = *config.NEROnly
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Engine{
		serviceURL: config.ServiceURL,
		authKey:    config.AuthKey,
		languages:  languages,
		nerOnly:    nerOnly,
		client:     &http.Client{Timeout: timeout},
		log:        logger,
	}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "celi-ner" }

// Ordering implements engine.Engine.
func (e *Engine) Ordering() int { return engine.OrderingExtractionEnhancement }

// CanEnhance accepts text mime types whose language is covered by the
// configured models. Unlike OpenCalais the service has no language
// identification of its own, so an item without a language is rejected.
func (e *Engine) CanEnhance(ci *model.ContentItem) (engine.Capability, error) {
	if !slices.Contains(supportedMimeTypes, ci.BaseMimeType()) {
		return engine.CannotEnhance, nil
	}
	lang := ci.MetadataLanguage()
	if lang == "" || !slices.Contains(e.languages, lang) {
		return engine.CannotEnhance, nil
	}
	return engine.EnhanceSynchronous, nil
}

// Enhance posts the text to the service and writes the returned
// entities as annotations.
func (e *Engine) Enhance(ctx context.Context, ci *model.ContentItem) error {
	text := ci.PlainText()
	if text == "" {
		e.log.Warn("No text found on content item", slog.String("content", ci.RID.String()))
		return nil
	}

	entities, err := e.recognize(ctx, text, ci.MetadataLanguage())
	if err != nil {
		return err
	}

	occs := occurrences(text, entities)
	written, skipped := engine.WriteOccurrences(ci, e.Name(), occs, e.nerOnly)
	e.log.Info("CELI enhancement finished",
		slog.String("content", ci.RID.String()),
		slog.Int("entities", len(entities)),
		slog.Int("annotations", written),
		slog.Int("skipped", skipped))
	return nil
}

// recognize performs the SOAP round trip.
func (e *Engine) recognize(ctx context.Context, text string, lang string) ([]nerEntity, error) {
	body, err := marshalRequest(text, lang)
	if err != nil {
		return nil, helper.NewError("build soap request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL, strings.NewReader(body))
	if err != nil {
		return nil, helper.NewError("build request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "namedEntityRecognition")
	if e.authKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.authKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, helper.NewError("post to celi", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, helper.NewError("post to celi",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	entities, err := parseResponse(resp.Body)
	if err != nil {
		return nil, helper.NewError("parse celi response", err)
	}
	return entities, nil
}

// occurrences converts the service entities to entity occurrences. The
// from/to values of the service are rune offsets into the posted text.
func occurrences(text string, entities []nerEntity) []model.EntityOccurrence {
	runes := []rune(text)
	var result []model.EntityOccurrence
	for _, ent := range entities {
		if ent.From < 0 || ent.To > len(runes) || ent.From >= ent.To {
			continue
		}
		exact := string(runes[ent.From:ent.To])
		name := ent.Label
		if name == "" {
			name = exact
		}
		result = append(result, model.EntityOccurrence{
			ID:      entityID(ent.Type, name),
			Type:    entityType(ent.Type),
			Name:    name,
			Exact:   exact,
			Offset:  ent.From,
			Length:  ent.To - ent.From,
			Context: engine.SelectionContext(text, ent.From, ent.To),
		})
	}
	return result
}

// entityType maps a service type tag to an ontology class, falling back
// to a LinguaGrid namespace IRI for unknown tags.
func entityType(tag string) rdf.IRI {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if iri, ok := nerTypeMap[tag]; ok {
		return iri
	}
	return vocab.MustIRI(LinguaGridNS + url.PathEscape(tag))
}

// entityID mints a stable per-document identifier so occurrences of the
// same entity share one entity annotation.
func entityID(tag string, name string) rdf.IRI {
	return vocab.MustIRI("urn:celi-entity:" + url.PathEscape(strings.ToUpper(tag)) + ":" + url.PathEscape(name))
}
