// Package localner implements an enhancement engine running a local
// NER model through hugot token classification. It needs no external
// service and acts as the fallback engine when no remote adapter
// covers an item.
package localner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/knakk/rdf"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	"github.com/textgraph/enricher/vocab"
)

// DefaultModel is the NER model loaded when the configuration names
// none.
const DefaultModel = "KnightsAnalytics/distilbert-NER"

var supportedMimeTypes = []string{"text/plain", "text/html"}

// The model is trained on English corpora. Items without a language
// are accepted so the engine stays usable as a fallback.
var supportedLanguages = []string{"en", ""}

// nerTypeMap maps the model's normalized labels to ontology classes.
var nerTypeMap = map[string]rdf.IRI{
	"PER":  vocab.DBpediaPerson,
	"ORG":  vocab.DBpediaOrganisation,
	"LOC":  vocab.DBpediaPlace,
	"MISC": vocab.MustIRI("http://www.w3.org/2002/07/owl#Thing"),
}

// Config holds the engine settings. All fields are optional.
type Config struct {
	Model    string `yaml:"model"`
	OnnxFile string `yaml:"onnx_file"`
	NEROnly  *bool  `yaml:"ner_only"`
}

// Engine is the local NER enhancement engine.
type Engine struct {
	session   *hugot.Session
	recognize func(text string) ([]pipelines.Entity, error)
	nerOnly   bool
	log       *slog.Logger
}

// New downloads the model if needed and creates the engine with a
// ready token classification pipeline. Close must be called when the
// engine is no longer used.
func New(config Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	modelName := config.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	onnxFile := config.OnnxFile
	if onnxFile == "" {
		// The default model repository ships its export under onnx/.
		onnxFile = "onnx/model.onnx"
	}

	modelPath, err := helper.PrepareModel(modelName, onnxFile)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	pipelineConfig := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "localner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, pipelineConfig)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create ner pipeline",
				fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewError("create ner pipeline", err)
	}

	nerOnly := true
	if config.NEROnly != nil {
		nerOnly = *config.NEROnly
	}

	return &Engine{
		session: session,
		recognize: func(text string) ([]pipelines.Entity, error) {
			result, err := nerPipeline.RunPipeline([]string{text})
			if err != nil {
				return nil, err
			}
			if len(result.Entities) == 0 {
				return nil, nil
			}
			return result.Entities[0], nil
		},
		nerOnly: nerOnly,
		log:     logger,
	}, nil
}

// Close releases the model session.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Destroy()
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "local-ner" }

// Ordering implements engine.Engine.
func (e *Engine) Ordering() int { return engine.OrderingDefault }

// CanEnhance implements engine.Engine.
func (e *Engine) CanEnhance(ci *model.ContentItem) (engine.Capability, error) {
	if !slices.Contains(supportedMimeTypes, ci.BaseMimeType()) && ci.PlainText() == "" {
		return engine.CannotEnhance, nil
	}
	if !slices.Contains(supportedLanguages, ci.MetadataLanguage()) {
		return engine.CannotEnhance, nil
	}
	return engine.EnhanceSynchronous, nil
}

// Enhance runs the model on the item's text and writes the detected
// entities as annotations.
func (e *Engine) Enhance(ctx context.Context, ci *model.ContentItem) error {
	text := ci.PlainText()
	if text == "" {
		e.log.Warn("No text found on content item", slog.String("content", ci.RID.String()))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entities, err := e.recognize(text)
	if err != nil {
		return helper.NewError("run ner pipeline", err)
	}

	occs := occurrences(text, entities)
	written, skipped := engine.WriteOccurrences(ci, e.Name(), occs, e.nerOnly)
	e.log.Info("Local NER enhancement finished",
		slog.String("content", ci.RID.String()),
		slog.Int("entities", len(entities)),
		slog.Int("annotations", written),
		slog.Int("skipped", skipped))
	return nil
}

// occurrences converts the pipeline entities to entity occurrences.
// Start and end are rune offsets into the input text.
func occurrences(text string, entities []pipelines.Entity) []model.EntityOccurrence {
	runes := []rune(text)
	var result []model.EntityOccurrence
	for _, ent := range entities {
		start, end := int(ent.Start), int(ent.End)
		if start < 0 || end > len(runes) || start >= end {
			continue
		}
		name := strings.TrimSpace(ent.Word)
		if name == "" {
			name = string(runes[start:end])
		}
		tag := normalizeLabel(ent.Entity)
		score := float64(ent.Score)
		result = append(result, model.EntityOccurrence{
			ID:        entityID(tag, name),
			Type:      entityType(tag),
			Name:      name,
			Exact:     string(runes[start:end]),
			Offset:    start,
			Length:    end - start,
			Context:   engine.SelectionContext(text, start, end),
			Relevance: &score,
		})
	}
	return result
}

// normalizeLabel strips the BIO tagging prefix from a model label.
func normalizeLabel(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

// entityType maps a normalized label to an ontology class.
func entityType(tag string) rdf.IRI {
	if iri, ok := nerTypeMap[strings.ToUpper(tag)]; ok {
		return iri
	}
	return vocab.MustIRI("urn:ner-type:" + strings.ToUpper(tag))
}

// entityID mints a stable per-document identifier so occurrences of
// the same entity share one entity annotation.
func entityID(tag string, name string) rdf.IRI {
	escaped := strings.ReplaceAll(name, " ", "_")
	return vocab.MustIRI("urn:local-ner:" + strings.ToUpper(tag) + ":" + escaped)
}
