package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Enhancement outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Metrics holds the Prometheus instruments of the engine chain. A nil
// *Metrics is valid and disables instrumentation.
type Metrics struct {
	enhancements *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics creates and registers the chain metrics with the given
// registerer. A nil registerer disables metrics.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		enhancements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "enricher",
			Subsystem: "engine",
			Name:      "enhancements_total",
			Help:      "Total number of enhancement attempts per engine and outcome",
		}, []string{"engine", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "enricher",
			Subsystem: "engine",
			Name:      "enhancement_duration_seconds",
			Help:      "Enhancement duration in seconds per engine",
			Buckets:   []float64{0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"engine"}),
	}

	for _, c := range []prometheus.Collector{m.enhancements, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Count increments the outcome counter for an engine.
func (m *Metrics) Count(engine string, status string) {
	if m == nil {
		return
	}
	m.enhancements.WithLabelValues(engine, status).Inc()
}

// Observe records the duration of an Enhance call.
func (m *Metrics) Observe(engine string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(engine).Observe(d.Seconds())
}
