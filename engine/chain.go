package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/textgraph/enricher/graph"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
)

// Chain runs a fixed, ordered set of engines against content items.
// Engines are sorted by descending Ordering (ties broken by name), so
// extraction engines run before post-processing ones.
type Chain struct {
	engines []Engine
	metrics *Metrics
	log     *slog.Logger
}

// NewChain creates a chain over the given engines. metrics may be nil to
// disable instrumentation.
func NewChain(logger *slog.Logger, metrics *Metrics, engines ...Engine) *Chain {
	sorted := make([]Engine, len(engines))
	copy(sorted, engines)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ordering() != sorted[j].Ordering() {
			return sorted[i].Ordering() > sorted[j].Ordering()
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return &Chain{
		engines: sorted,
		metrics: metrics,
		log:     logger,
	}
}

// Engines returns the engine names in execution order.
func (c *Chain) Engines() []string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return names
}

// Run executes the chain on a content item. A failing engine does not
// stop the chain: its error is logged, counted and joined into the
// returned error, and the remaining engines still run. There is no
// retry; an engine that fails has abandoned its enhancement step for
// this item.
func (c *Chain) Run(ctx context.Context, ci *model.ContentItem) error {
	if ci.Metadata == nil {
		ci.Metadata = graph.New()
	}

	var errs []error
	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		capability, err := e.CanEnhance(ci)
		if err != nil {
			c.metrics.Count(e.Name(), StatusError)
			c.log.Warn("Engine capability check failed",
				slog.String("engine", e.Name()),
				slog.String("content", ci.RID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, helper.NewError(e.Name(), err))
			continue
		}
		if capability != EnhanceSynchronous {
			c.metrics.Count(e.Name(), StatusSkipped)
			c.log.Debug("Engine skipped content item",
				slog.String("engine", e.Name()),
				slog.String("content", ci.RID.String()))
			continue
		}

		start := time.Now()
		err = e.Enhance(ctx, ci)
		c.metrics.Observe(e.Name(), time.Since(start))
		if err != nil {
			c.metrics.Count(e.Name(), StatusError)
			c.log.Warn("Engine enhancement failed",
				slog.String("engine", e.Name()),
				slog.String("content", ci.RID.String()),
				slog.String("error", err.Error()))
			errs = append(errs, helper.NewError(e.Name(), err))
			continue
		}
		c.metrics.Count(e.Name(), StatusSuccess)
	}
	return errors.Join(errs...)
}
