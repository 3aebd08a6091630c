package auditlog

import (
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRowsRecorded     = "auditlog_rows_recorded_total"
	MetricEventsSkipped    = "auditlog_events_skipped_total"
	MetricFailures         = "auditlog_failures_total"
	MetricRecordDuration   = "auditlog_record_duration_seconds"
	MetricUnresolvedModels = "auditlog_unresolved_models_total"
)

const (
	skipReasonContext   = "context"
	skipReasonDisabled  = "watcher_disabled"
	skipReasonNoChanges = "no_changes"
)

// Metrics holds the Prometheus collectors of a Handler and its Registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rowsRecorded     *prometheus.CounterVec
	eventsSkipped    *prometheus.CounterVec
	failures         *prometheus.CounterVec
	recordDuration   *prometheus.HistogramVec
	unresolvedModels *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		rowsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRowsRecorded,
				Help: "Total number of audit rows written",
			},
			[]string{"model", "action"},
		),
		eventsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEventsSkipped,
				Help: "Total number of lifecycle events that produced no audit row",
			},
			[]string{"model", "action", "reason"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFailures,
				Help: "Total number of lifecycle events that failed to produce an audit row",
			},
			[]string{"model", "action", "kind"},
		),
		recordDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRecordDuration,
				Help:    "Time spent building and persisting an audit row in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"action"},
		),
		unresolvedModels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricUnresolvedModels,
				Help: "Configured models that matched no registered entity type",
			},
			[]string{"model"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rowsRecorded,
		m.eventsSkipped,
		m.failures,
		m.recordDuration,
		m.unresolvedModels,
	}
}

func (m *Metrics) incRecorded(model, action string) {
	if m == nil {
		return
	}
	m.rowsRecorded.WithLabelValues(model, action).Inc()
}

func (m *Metrics) incSkipped(model, action, reason string) {
	if m == nil {
		return
	}
	m.eventsSkipped.WithLabelValues(model, action, reason).Inc()
}

func (m *Metrics) incFailure(model, action, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(model, action, kind).Inc()
}

func (m *Metrics) observeDuration(action string, seconds float64) {
	if m == nil {
		return
	}
	m.recordDuration.WithLabelValues(action).Observe(seconds)
}

func (m *Metrics) incUnresolved(model string) {
	if m == nil {
		return
	}
	m.unresolvedModels.WithLabelValues(model).Inc()
}

// failureKind maps an error to the "kind" label of MetricFailures.
func failureKind(err error) string {
	var perr *PersistError
	var jerr *json.UnsupportedTypeError
	switch {
	case errors.As(err, &perr):
		return "persist"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrInconsistentSnapshot):
		return "inconsistent_snapshot"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.As(err, &jerr):
		return "encode"
	default:
		return "other"
	}
}
