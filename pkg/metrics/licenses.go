package metrics

import "github.com/prometheus/client_golang/prometheus"

// SweepMetrics counts license expiry sweep outcomes per threshold.
type SweepMetrics struct {
	outcomes *prometheus.CounterVec
	checked  prometheus.Counter
}

// Sweep outcome labels.
const (
	SweepOutcomeNotified = "notified"
	SweepOutcomeSkipped  = "skipped"
	SweepOutcomeFailed   = "failed"
)

// NewSweepMetrics registers the sweep counters on reg. A nil registerer yields
// a no-op recorder.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "license_notifications_total",
		Help:      "License expiry notifications by outcome and threshold.",
	}, []string{"outcome", "threshold"})
	checked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "license_entities_checked_total",
		Help:      "License holders inspected by the expiry sweep.",
	})
	reg.MustRegister(outcomes, checked)
	return &SweepMetrics{outcomes: outcomes, checked: checked}
}

// AddChecked adds n inspected entities.
func (m *SweepMetrics) AddChecked(n int) {
	if m == nil || m.checked == nil || n <= 0 {
		return
	}
	m.checked.Add(float64(n))
}

// Observe counts one entity outcome.
func (m *SweepMetrics) Observe(outcome, threshold string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome), normalizeLabel(threshold)).Inc()
}
