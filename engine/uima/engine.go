// Package uima implements an enhancement engine backed by a remote
// UIMA annotation service. The content item's text is posted to the
// service, the XMI response is parsed into feature structures, and the
// structures matching the configured type mappings are written back as
// text annotations.
package uima

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

const defaultTimeout = 60 * time.Second

var supportedMimeTypes = []string{"text/plain", "text/html"}

// Mapping selects a feature structure type of the remote pipeline and
// describes how it becomes an annotation. Require lists feature values
// the structure must carry to match, Emit lists the features copied to
// the annotation as literals.
type Mapping struct {
	SourceType string            `yaml:"source_type"`
	Require    map[string]string `yaml:"require"`
	Emit       []string          `yaml:"emit"`
	TargetType string            `yaml:"target_type"`
}

// Config holds the engine settings. ServiceURL and at least one
// mapping are required.
type Config struct {
	ServiceURL string        `yaml:"service_url"`
	Mappings   []Mapping     `yaml:"mappings"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Engine is the remote UIMA enhancement engine.
type Engine struct {
	serviceURL string
	mappings   []mapping
	client     *http.Client
	log        *slog.Logger
}

// mapping is a Mapping with the target IRI parsed.
type mapping struct {
	sourceType string
	require    map[string]string
	emit       []string
	targetType rdf.IRI
}

// New validates the configuration and creates the engine.
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(config.ServiceURL) == "" {
		return nil, helper.NewError("configure uima engine",
			fmt.Errorf("service URL must be set"))
	}
	if _, err := url.Parse(config.ServiceURL); err != nil {
		return nil, helper.NewError("configure uima engine", err)
	}
	if len(config.Mappings) == 0 {
		return nil, helper.NewError("configure uima engine",
			fmt.Errorf("at least one type mapping must be set"))
	}

	mappings := make([]mapping, 0, len(config.Mappings))
	for i, m := range config.Mappings {
		if strings.TrimSpace(m.SourceType) == "" {
			return nil, helper.NewError("configure uima engine",
				fmt.Errorf("mapping %d: source type must be set", i))
		}
		target, err := rdf.NewIRI(m.TargetType)
		if err != nil {
			return nil, helper.NewError("configure uima engine",
				fmt.Errorf("mapping %d: invalid target type %q: %w", i, m.TargetType, err))
		}
		mappings = append(mappings, mapping{
			sourceType: m.SourceType,
			require:    m.Require,
			emit:       m.Emit,
			targetType: target,
		})
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Engine{
		serviceURL: config.ServiceURL,
		mappings:   mappings,
		client:     &http.Client{Timeout: timeout},
		log:        logger,
	}, nil
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "uima-remote" }

// Ordering implements engine.Engine.
func (e *Engine) Ordering() int { return engine.OrderingExtractionEnhancement }

// CanEnhance accepts any text content item. Language coverage is the
// remote pipeline's concern.
func (e *Engine) CanEnhance(ci *model.ContentItem) (engine.Capability, error) {
	if !slices.Contains(supportedMimeTypes, ci.BaseMimeType()) && ci.PlainText() == "" {
		return engine.CannotEnhance, nil
	}
	return engine.EnhanceSynchronous, nil
}

// Enhance posts the text to the service and writes one text annotation
// per feature structure that matches a configured mapping.
func (e *Engine) Enhance(ctx context.Context, ci *model.ContentItem) error {
	text := ci.PlainText()
	if text == "" {
		e.log.Warn("No text found on content item", slog.String("content", ci.RID.String()))
		return nil
	}

	structures, err := e.analyze(ctx, text)
	if err != nil {
		return err
	}

	written := e.writeAnnotations(ci, text, structures)
	e.log.Info("UIMA enhancement finished",
		slog.String("content", ci.RID.String()),
		slog.Int("structures", len(structures)),
		slog.Int("annotations", written))
	return nil
}

// analyze performs the service round trip.
func (e *Engine) analyze(ctx context.Context, text string) ([]featureStructure, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL, strings.NewReader(text))
	if err != nil {
		return nil, helper.NewError("build request", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, helper.NewError("post to uima service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, helper.NewError("post to uima service",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	structures, err := parseXMI(resp.Body)
	if err != nil {
		return nil, helper.NewError("parse uima response", err)
	}
	return structures, nil
}

// writeAnnotations emits a text annotation for every structure that
// matches a mapping. Offsets of the service are rune offsets into the
// posted text.
func (e *Engine) writeAnnotations(ci *model.ContentItem, text string, structures []featureStructure) int {
	runes := []rune(text)
	g := ci.Metadata
	written := 0

	for _, fs := range structures {
		m, ok := e.match(fs)
		if !ok {
			continue
		}
		if fs.Begin < 0 || fs.End > len(runes) || fs.Begin >= fs.End {
			continue
		}

		ta := engine.NewTextAnnotation(ci, e.Name())
		g.Add(ta, vocab.DCType, m.targetType)
		g.Add(ta, vocab.SelectedText, stringLiteral(string(runes[fs.Begin:fs.End])))
		g.Add(ta, vocab.Start, intLiteral(fs.Begin))
		g.Add(ta, vocab.End, intLiteral(fs.End))
		g.Add(ta, vocab.SelectionContext, stringLiteral(engine.SelectionContext(text, fs.Begin, fs.End)))
		for _, feature := range m.emit {
			if value, ok := fs.Features[feature]; ok {
				g.Add(ta, featureIRI(feature), stringLiteral(value))
			}
		}
		written++
	}
	return written
}

// match returns the first mapping the structure satisfies.
func (e *Engine) match(fs featureStructure) (mapping, bool) {
	for _, m := range e.mappings {
		if m.sourceType != fs.Type {
			continue
		}
		satisfied := true
		for feature, want := range m.require {
			if fs.Features[feature] != want {
				satisfied = false
				break
			}
		}
		if satisfied {
			return m, true
		}
	}
	return mapping{}, false
}

// featureIRI names the predicate a feature literal is attached with.
func featureIRI(feature string) rdf.IRI {
	return vocab.MustIRI(vocab.UIMANS + url.PathEscape(feature))
}

func stringLiteral(v string) rdf.Literal {
	return rdf.NewTypedLiteral(v, vocab.XSDString)
}

func intLiteral(v int) rdf.Literal {
	return rdf.NewTypedLiteral(fmt.Sprintf("%d", v), vocab.XSDInt)
}
