package engine

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textgraph/enricher/model"
)

// stubEngine records its invocations.
type stubEngine struct {
	name       string
	ordering   int
	capability Capability
	canErr     error
	enhanceErr error
	calls      *[]string
}

func (s *stubEngine) Name() string  { return s.name }
func (s *stubEngine) Ordering() int { return s.ordering }
func (s *stubEngine) CanEnhance(*model.ContentItem) (Capability, error) {
	return s.capability, s.canErr
}
func (s *stubEngine) Enhance(_ context.Context, _ *model.ContentItem) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	return s.enhanceErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewChain(t *testing.T) {
	t.Run("Sort by descending ordering", func(t *testing.T) {
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "post", ordering: OrderingPostProcessing},
			&stubEngine{name: "extract", ordering: OrderingContentExtraction},
			&stubEngine{name: "enhance", ordering: OrderingExtractionEnhancement},
		)
		assert.Equal(t, []string{"extract", "enhance", "post"}, chain.Engines())
	})

	t.Run("Break ties by name", func(t *testing.T) {
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "beta", ordering: OrderingDefault},
			&stubEngine{name: "alpha", ordering: OrderingDefault},
		)
		assert.Equal(t, []string{"alpha", "beta"}, chain.Engines())
	})
}

func TestChainRun(t *testing.T) {
	t.Run("Run engines in order", func(t *testing.T) {
		var calls []string
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "second", ordering: 1, capability: EnhanceSynchronous, calls: &calls},
			&stubEngine{name: "first", ordering: 2, capability: EnhanceSynchronous, calls: &calls},
		)
		ci := model.NewContentItem("text", "text/plain", "en")
		require.NoError(t, chain.Run(context.Background(), ci))
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("Continue past a failing engine", func(t *testing.T) {
		var calls []string
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "broken", ordering: 2, capability: EnhanceSynchronous,
				enhanceErr: fmt.Errorf("service down"), calls: &calls},
			&stubEngine{name: "working", ordering: 1, capability: EnhanceSynchronous, calls: &calls},
		)
		ci := model.NewContentItem("text", "text/plain", "en")
		err := chain.Run(context.Background(), ci)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service down")
		assert.Equal(t, []string{"broken", "working"}, calls)
	})

	t.Run("Skip engines that cannot enhance", func(t *testing.T) {
		var calls []string
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "skipped", ordering: 2, capability: CannotEnhance, calls: &calls},
			&stubEngine{name: "working", ordering: 1, capability: EnhanceSynchronous, calls: &calls},
		)
		ci := model.NewContentItem("text", "text/plain", "en")
		require.NoError(t, chain.Run(context.Background(), ci))
		assert.Equal(t, []string{"working"}, calls)
	})

	t.Run("Join capability check errors", func(t *testing.T) {
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "broken", canErr: fmt.Errorf("no content access")},
		)
		ci := model.NewContentItem("text", "text/plain", "en")
		err := chain.Run(context.Background(), ci)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no content access")
	})

	t.Run("Stop on cancelled context", func(t *testing.T) {
		var calls []string
		chain := NewChain(testLogger(), nil,
			&stubEngine{name: "never", capability: EnhanceSynchronous, calls: &calls},
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ci := model.NewContentItem("text", "text/plain", "en")
		err := chain.Run(ctx, ci)
		require.Error(t, err)
		assert.Empty(t, calls)
	})

	t.Run("Initialize missing metadata graph", func(t *testing.T) {
		chain := NewChain(testLogger(), nil)
		ci := model.NewContentItem("text", "text/plain", "en")
		ci.Metadata = nil
		require.NoError(t, chain.Run(context.Background(), ci))
		assert.NotNil(t, ci.Metadata)
	})
}

func TestMetrics(t *testing.T) {
	t.Run("Count outcomes per engine", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics, err := NewMetrics(reg)
		require.NoError(t, err)

		chain := NewChain(testLogger(), metrics,
			&stubEngine{name: "working", capability: EnhanceSynchronous},
			&stubEngine{name: "skipped", capability: CannotEnhance},
		)
		ci := model.NewContentItem("text", "text/plain", "en")
		require.NoError(t, chain.Run(context.Background(), ci))

		successes := testutil.ToFloat64(metrics.enhancements.WithLabelValues("working", StatusSuccess))
		assert.Equal(t, 1.0, successes)
		skips := testutil.ToFloat64(metrics.enhancements.WithLabelValues("skipped", StatusSkipped))
		assert.Equal(t, 1.0, skips)
	})

	t.Run("Nil metrics are valid", func(t *testing.T) {
		metrics, err := NewMetrics(nil)
		require.NoError(t, err)
		require.Nil(t, metrics)
		metrics.Count("any", StatusSuccess)
		metrics.Observe("any", 0)
	})
}
