package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "globe"

// Metrics holds the Prometheus collectors for globe sessions.
type Metrics struct {
	SessionsActive prometheus.Gauge
	Mounts         *prometheus.CounterVec // labels: outcome={mounted,unavailable,full}
	Unmounts       *prometheus.CounterVec // labels: reason={client,idle,stream,shutdown}

	// Redraw metrics.
	Redraws        *prometheus.CounterVec // labels: cause={mount,tick,drag}
	RedrawDuration prometheus.Histogram
	DragEvents     prometheus.Counter
	PatchesSent    prometheus.Counter
}

// NewMetrics creates and registers all globe metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SessionsActive,
		m.Mounts,
		m.Unmounts,
		m.Redraws,
		m.RedrawDuration,
		m.DragEvents,
		m.PatchesSent,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// can create as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of mounted globe widgets.",
		}),
		Mounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mounts_total",
			Help:      "Mount attempts by outcome.",
		}, []string{"outcome"}),
		Unmounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmounts_total",
			Help:      "Widget teardowns by reason.",
		}, []string{"reason"}),
		Redraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redraws_total",
			Help:      "Surface redraws by cause.",
		}, []string{"cause"}),
		RedrawDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redraw_duration_seconds",
			Help:      "Time spent re-projecting the globe for one redraw.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		DragEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drag_events_total",
			Help:      "Pointer drag deltas applied to a projection.",
		}),
		PatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_sent_total",
			Help:      "Element patches streamed to browsers.",
		}),
	}
}
