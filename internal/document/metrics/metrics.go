package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics provides observability for the document lifecycle engine.
// Methods are safe to call on a nil *Metrics.
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	Archived         *prometheus.CounterVec
	EventsDropped    prometheus.Counter
}

// New registers the document metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "middleoffice_document_operations_total",
			Help: "Document operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "middleoffice_document_operation_duration_seconds",
			Help:    "Duration of document operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		Archived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "middleoffice_document_archived_total",
			Help: "Records copied out of the active partition, by partition",
		}, []string{"partition"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "middleoffice_document_events_dropped_total",
			Help: "Lifecycle events that could not be published",
		}),
	}
}

// Observe records one operation. Call with time.Now() taken at the start.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementArchived counts a record moved to "history" or "deleted".
func (m *Metrics) IncrementArchived(partition string) {
	if m == nil {
		return
	}
	m.Archived.WithLabelValues(partition).Inc()
}

// IncrementEventsDropped counts a lifecycle event lost to a publish failure.
func (m *Metrics) IncrementEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
