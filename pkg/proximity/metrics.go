package proximity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "locus"
	metricsSubsystem = "proximity"
)

// Metrics are the Prometheus collectors of an Engine.
type Metrics struct {
	// CyclesTotal counts evaluation cycles.
	// Labels: trigger (periodic, activity, manual), outcome
	CyclesTotal *prometheus.CounterVec

	// NotificationsTotal counts grouped notifications posted.
	NotificationsTotal prometheus.Counter

	// NotifiedNotesTotal counts notes included in posted notifications.
	NotifiedNotesTotal prometheus.Counter

	// NearbyNotes is the size of the latest nearby set.
	NearbyNotes prometheus.Gauge

	// PositionSeconds measures position fetch latency.
	// Labels: result (ok, absent)
	PositionSeconds *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cycles_total",
			Help:      "Evaluation cycles by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "notifications_total",
			Help:      "Grouped notifications posted",
		}),
		NotifiedNotesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "notified_notes_total",
			Help:      "Notes included in posted notifications",
		}),
		NearbyNotes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "nearby_notes",
			Help:      "Notes within the proximity threshold at the last located cycle",
		}),
		PositionSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "position_seconds",
			Help:      "Position fetch latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"result"}),
	}
}
