// Package opencalais implements an enhancement engine backed by the
// OpenCalais REST service. The text of a content item is posted to the
// service with a paramsXML directive block, the RDF/XML response is
// parsed into a graph, and a fixed occurrence query over that graph
// yields the entity occurrences that are written back as annotations.
package opencalais

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
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
)

// DefaultServiceURL is the OpenCalais REST endpoint.
const DefaultServiceURL = "http://api.opencalais.com/enlighten/rest/"

const defaultTimeout = 30 * time.Second

// Mime types sent to the service directly. Other mime types rely on
// plain text attached to the metadata graph by upstream extraction.
var supportedMimeTypes = []string{"text/plain", "text/html"}

// Languages the service accepts. An item without a language value is
// sent anyway; the service runs its own language identification.
var supportedLanguages = []string{"en", "fr", "es"}

// Config holds the engine settings. LicenseKey is required; ServiceURL
// defaults to DefaultServiceURL. TypeMapFile optionally points to a
// type map overriding the embedded default. NEROnly (default true)
// suppresses vendor entity annotations so a downstream entity-linking
// engine can do its own tagging.
type Config struct {
	LicenseKey  string        `yaml:"license_key"`
	ServiceURL  string        `yaml:"service_url"`
	TypeMapFile string        `yaml:"type_map_file"`
	NEROnly     *bool         `yaml:"ner_only"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Engine is the OpenCalais enhancement engine.
type Engine struct {
	serviceURL string
	licenseKey string
	nerOnly    bool
	typeMap    map[string]rdf.IRI
	client     *http.Client
	log        *slog.Logger
}

// New validates the configuration and creates the engine. A missing
// license key or an unreadable type map file is a configuration error.
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(config.LicenseKey) == "" {
		return nil, helper.NewError("configure opencalais engine",
			fmt.Errorf("license key must be set"))
	}
	serviceURL := config.ServiceURL
	if serviceURL == "" {
		serviceURL = DefaultServiceURL
	}
	if _, err := url.Parse(serviceURL); err != nil {
		return nil, helper.NewError("configure opencalais engine", err)
	}

	typeMap, err := LoadTypeMap(config.TypeMapFile)
	if err != nil {
		return nil, helper.NewError("load type map", err)
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
		serviceURL: serviceURL,
		licenseKey: config.LicenseKey,
		nerOnly:    nerOnly,
		typeMap:    typeMap,
		client:     &http.Client{Timeout: timeout},
		log:        logger,
	}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "opencalais" }

// Ordering places the engine just after content extraction and language
// identification.
func (e *Engine) Ordering() int { return engine.OrderingExtractionEnhancement + 10 }

// CanEnhance accepts text mime types in a supported language, and any
// item whose metadata graph carries plain text content.
func (e *Engine) CanEnhance(ci *model.ContentItem) (engine.Capability, error) {
	if slices.Contains(supportedMimeTypes, ci.BaseMimeType()) {
		if lang := ci.MetadataLanguage(); lang != "" && !slices.Contains(supportedLanguages, lang) {
			e.log.Debug("Unsupported language for opencalais", slog.String("language", lang))
			return engine.CannotEnhance, nil
		}
		return engine.EnhanceSynchronous, nil
	}
	if ci.PlainText() != "" {
		return engine.EnhanceSynchronous, nil
	}
	return engine.CannotEnhance, nil
}

// Enhance sends the item's text to the service and writes the resulting
// occurrences to the metadata graph.
func (e *Engine) Enhance(ctx context.Context, ci *model.ContentItem) error {
	mimeType := ci.BaseMimeType()
	if !slices.Contains(supportedMimeTypes, mimeType) {
		mimeType = "text/plain"
	}
	text := ci.PlainText()
	if text == "" {
		e.log.Warn("No text found on content item", slog.String("content", ci.RID.String()))
		return nil
	}

	respGraph, err := e.analyze(ctx, text, mimeType)
	if err != nil {
		return err
	}

	occs := e.queryOccurrences(respGraph)
	written, skipped := engine.WriteOccurrences(ci, e.Name(), occs, e.nerOnly)
	e.log.Info("OpenCalais enhancement finished",
		slog.String("content", ci.RID.String()),
		slog.Int("occurrences", len(occs)),
		slog.Int("annotations", written),
		slog.Int("skipped", skipped))
	return nil
}

// analyze posts the text and parses the RDF/XML response into a graph.
func (e *Engine) analyze(ctx context.Context, text string, mimeType string) (*graph.Graph, error) {
	if mimeType == "text/plain" {
		mimeType = "text/raw"
	}

	form := url.Values{
		"licenseID": {e.licenseKey},
		"content":   {text},
		"paramsXML": {paramsXML(mimeType)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, helper.NewError("build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, helper.NewError("post to opencalais", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, helper.NewError("post to opencalais",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	g, err := graph.Decode(resp.Body, rdf.RDFXML)
	if err != nil {
		return nil, helper.NewError("parse opencalais response", err)
	}
	e.log.Debug("OpenCalais response parsed", slog.Int("triples", g.Len()))
	return g, nil
}

// paramsXML builds the processing directives block of the request. The
// original text is omitted from the response and no relevance scores are
// requested; scores still present are carried through when returned.
func paramsXML(contentType string) string {
	return `<c:params xmlns:c="http://s.opencalais.com/1/pred/" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<c:processingDirectives c:contentType="` + contentType + `" ` +
		`c:outputFormat="rdf/xml" ` +
		`c:calculateRelevanceScore="false" ` +
		`c:omitOutputtingOriginalText="true">` +
		`</c:processingDirectives>` +
		`</c:params>`
}
