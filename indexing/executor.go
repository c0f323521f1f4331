package indexing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knights-analytics/hugot"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
)

// EmbedFunc produces the embedding vector of a text.
type EmbedFunc func(text string) ([]float32, error)

// EntityRecord is one raw entity read from the pipeline source: its
// reference IRI, raw popularity score, type and labels by language.
type EntityRecord struct {
	Reference string            `json:"reference"`
	Type      string            `json:"type,omitempty"`
	Score     float64           `json:"score"`
	Labels    map[string]string `json:"labels"`
}

// EntityUpserter is the index destination. Satisfied by
// database.EntityIndexDBHandler.
type EntityUpserter interface {
	UpsertEntity(e *model.IndexedEntity) error
}

// Executor runs one configured indexing pipeline.
type Executor struct {
	config *Config
	chain  NormalizerChain
	embed  EmbedFunc
	index  EntityUpserter
	log    *slog.Logger
}

// NewExecutor wires a pipeline configuration to an embedder and an
// index destination.
func NewExecutor(config *Config, embed EmbedFunc, index EntityUpserter, logger *slog.Logger) (*Executor, error) {
	if config == nil {
		return nil, helper.NewError("create indexing executor", fmt.Errorf("config is nil"))
	}
	if embed == nil || index == nil {
		return nil, helper.NewError("create indexing executor", fmt.Errorf("embedder and index must be set"))
	}
	chain, err := BuildNormalizerChain(config.Normalizers)
	if err != nil {
		return nil, err
	}
	return &Executor{
		config: config,
		chain:  chain,
		embed:  embed,
		index:  index,
		log:    logger,
	}, nil
}

// Run indexes the given records. Records excluded by the normalizer
// chain or without a usable label are skipped. Returns how many
// records were indexed and skipped.
func (e *Executor) Run(ctx context.Context, records []EntityRecord) (indexed int, skipped int, err error) {
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return indexed, skipped, err
		}

		score := e.chain.Normalize(record.Score)
		if score < 0 {
			skipped++
			continue
		}

		label := e.primaryLabel(record)
		if label == "" {
			skipped++
			e.log.Debug("No label in configured languages", slog.String("reference", record.Reference))
			continue
		}

		embedding, err := e.embed(label)
		if err != nil {
			return indexed, skipped, helper.NewError("embed label", err)
		}

		entry := &model.IndexedEntity{
			Reference: record.Reference,
			Label:     label,
			TypeIRI:   record.Type,
			Score:     score,
			Fields:    e.mapFields(record, score),
			Embedding: embedding,
		}
		if err := e.index.UpsertEntity(entry); err != nil {
			return indexed, skipped, helper.NewError("upsert entity", err)
		}
		indexed++
	}

	e.log.Info("Indexing run finished",
		slog.String("pipeline", e.config.Name),
		slog.Int("indexed", indexed),
		slog.Int("skipped", skipped))
	return indexed, skipped, nil
}

// primaryLabel returns the label the entry is embedded under: the
// first label matching a label field mapping's language filter.
func (e *Executor) primaryLabel(record EntityRecord) string {
	for _, f := range e.config.Fields {
		if f.Source != "label" {
			continue
		}
		if label := pickLabel(record.Labels, f.Languages); label != "" {
			return label
		}
	}
	return ""
}

// mapFields builds the stored field document of an index entry.
func (e *Executor) mapFields(record EntityRecord, score float64) model.Metadata {
	fields := model.Metadata{}
	for _, f := range e.config.Fields {
		switch f.Source {
		case "label":
			if label := pickLabel(record.Labels, f.Languages); label != "" {
				fields[f.Target] = label
			}
		case "type":
			fields[f.Target] = record.Type
		case "score":
			fields[f.Target] = score
		case "reference":
			fields[f.Target] = record.Reference
		}
	}
	return fields
}

// pickLabel selects a label matching the language filter. An empty
// filter accepts any language, preferring English for determinism.
func pickLabel(labels map[string]string, languages []string) string {
	if len(languages) == 0 {
		if label, ok := labels["en"]; ok {
			return label
		}
		for _, label := range labels {
			return label
		}
		return ""
	}
	for _, lang := range languages {
		if label, ok := labels[lang]; ok {
			return label
		}
	}
	return ""
}

// Default embedding model. The hub repository ships its ONNX export
// under onnx/, not at the repository root.
const (
	DefaultEmbeddingModel    = "sentence-transformers/all-MiniLM-L6-v2"
	defaultEmbeddingOnnxPath = "onnx/model.onnx"
)

// DefaultEmbedder creates an embedder using the all-MiniLM-L6-v2
// sentence transformer, which produces 384-dimensional vectors.
func DefaultEmbedder() (EmbedFunc, error) {
	modelPath, err := helper.PrepareModel(DefaultEmbeddingModel, defaultEmbeddingOnnxPath)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewError("create hugot session", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewError("create sentence pipeline",
				fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewError("create sentence pipeline", err)
	}

	return func(text string) ([]float32, error) {
		result, err := sentencePipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, helper.NewError("generate embedding", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, helper.NewError("generate embedding", fmt.Errorf("no embedding generated"))
		}
		return result.Embeddings[0], nil
	}, nil
}
