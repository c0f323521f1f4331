package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/textgraph/enricher/database"
	"github.com/textgraph/enricher/engine"
	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
	loadSql "github.com/textgraph/enricher/sql"
)

// Enricher ties the enhancement chain to the content store: it runs the
// chain on content items and persists metadata graphs and annotation
// rows.
type Enricher struct {
	DB           *helper.Database
	ContentItems *database.ContentItemsDBHandler
	Annotations  *database.AnnotationsDBHandler
	EntityIndex  *database.EntityIndexDBHandler
	Chain        *engine.Chain
	Metrics      *engine.Metrics
	// Logging
	log *slog.Logger
}

// NewEnricher creates an Enricher with all handlers initialized and the
// given engines ordered into a chain. embeddingDim sizes the entity
// index vector column. Metrics register with the default Prometheus
// registry; use NewEnricherWithRegistry to supply a custom one.
func NewEnricher(config *helper.DatabaseConfiguration, embeddingDim int, engines ...engine.Engine) (*Enricher, error) {
	return NewEnricherWithRegistry(config, embeddingDim, prometheus.DefaultRegisterer, engines...)
}

// NewEnricherWithRegistry is NewEnricher with an explicit metrics
// registerer. A nil registerer disables instrumentation.
func NewEnricherWithRegistry(config *helper.DatabaseConfiguration, embeddingDim int, reg prometheus.Registerer, engines ...engine.Engine) (*Enricher, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("enricher", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create handlers in dependency order (content items first, the
	// annotations table references them). force=false to not reload if
	// functions already exist.
	contentItems, err := database.NewContentItemsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create content items handler", err)
	}

	annotations, err := database.NewAnnotationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create annotations handler", err)
	}

	entityIndex, err := database.NewEntityIndexDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create entity index handler", err)
	}

	metrics, err := engine.NewMetrics(reg)
	if err != nil {
		return nil, helper.NewError("register metrics", err)
	}

	return &Enricher{
		DB:           db,
		ContentItems: contentItems,
		Annotations:  annotations,
		EntityIndex:  entityIndex,
		Chain:        engine.NewChain(logger, metrics, engines...),
		Metrics:      metrics,
		log:          logger,
	}, nil
}

// Close closes the database connection.
func (e *Enricher) Close() error {
	if e.DB != nil && e.DB.Instance != nil {
		return e.DB.Instance.Close()
	}
	return nil
}

// Engines returns the chain's engine names in execution order.
func (e *Enricher) Engines() []string {
	return e.Chain.Engines()
}

// ProcessAndStoreContentItem processes a content item by:
// 1. Inserting the item with its content
// 2. Running the enhancement chain over it
// 3. Storing the enriched metadata graph and the annotation rows
// A partial chain failure still stores what the remaining engines
// produced; the joined engine errors are returned alongside the count.
// Returns the number of annotations stored.
func (e *Enricher) ProcessAndStoreContentItem(ctx context.Context, ci *model.ContentItem) (int, error) {
	if ci.Content == "" {
		return 0, helper.NewError("process content item", fmt.Errorf("content is empty"))
	}

	if err := e.ContentItems.InsertContentItem(ci); err != nil {
		return 0, helper.NewError("insert content item", err)
	}

	e.log.Info("Inserted content item", slog.String("content_id", ci.RID.String()), slog.String("uri", ci.URI))

	chainErr := e.Chain.Run(ctx, ci)

	stored, err := e.storeResults(ci)
	if err != nil {
		return 0, err
	}

	e.log.Info("Enhanced content item",
		slog.String("content_id", ci.RID.String()),
		slog.Int("num_annotations", stored))

	return stored, chainErr
}

// Reprocess re-runs the chain on stored content items. Each item gets a
// fresh metadata graph; its previous annotations are replaced.
func (e *Enricher) Reprocess(ctx context.Context, rids []uuid.UUID) error {
	for _, rid := range rids {
		ci, err := e.ContentItems.SelectContentItem(rid)
		if err != nil {
			return helper.NewError(fmt.Sprintf("select content item %s", rid), err)
		}

		ci.Metadata = graph.New()
		chainErr := e.Chain.Run(ctx, ci)
		if chainErr != nil {
			e.log.Warn("Chain reported engine failures",
				slog.String("content_id", rid.String()),
				slog.String("error", chainErr.Error()))
		}

		removed, err := e.Annotations.DeleteAnnotationsByContent(rid)
		if err != nil {
			return helper.NewError(fmt.Sprintf("delete annotations for %s", rid), err)
		}

		stored, err := e.storeResults(ci)
		if err != nil {
			return err
		}

		e.log.Info("Reprocessed content item",
			slog.String("content_id", rid.String()),
			slog.Int("removed_annotations", removed),
			slog.Int("num_annotations", stored))
	}
	return nil
}

// EnhanceText runs the chain on an ephemeral content item and returns
// the collected annotations without storing anything.
func (e *Enricher) EnhanceText(ctx context.Context, text, mimeType, language string) ([]model.Annotation, error) {
	ci := model.NewContentItem(text, mimeType, language)
	if err := e.Chain.Run(ctx, ci); err != nil {
		return nil, err
	}
	return engine.CollectAnnotations(ci.Metadata, ci.RID), nil
}

// storeResults persists the enriched metadata graph and its annotation
// rows for an already inserted content item.
func (e *Enricher) storeResults(ci *model.ContentItem) (int, error) {
	if err := e.ContentItems.UpdateContentItemMetadata(ci); err != nil {
		return 0, helper.NewError("update content item metadata", err)
	}

	annotations := engine.CollectAnnotations(ci.Metadata, ci.RID)
	if err := e.Annotations.InsertAnnotations(annotations); err != nil {
		return 0, helper.NewError("insert annotations", err)
	}

	return len(annotations), nil
}
