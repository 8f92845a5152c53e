package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReferralMetrics tracks state machine activity and audit integrity.
type ReferralMetrics struct {
	transitions   *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
	followUp      *prometheus.GaugeVec
}

// NewReferralMetrics registers referral metrics on reg. A nil registerer
// yields a no-op recorder.
func NewReferralMetrics(reg prometheus.Registerer) *ReferralMetrics {
	if reg == nil {
		return &ReferralMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "referral_transitions_total",
		Help:      "Referral status transitions by target status and result.",
	}, []string{"status", "result"})
	auditFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Audit entries that failed to persist after a committed mutation.",
	}, []string{"action"})
	followUp := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "referrals_follow_up_required",
		Help:      "Open referrals currently flagged for follow-up, by reason.",
	}, []string{"reason"})
	reg.MustRegister(transitions, auditFailures, followUp)
	return &ReferralMetrics{
		transitions:   transitions,
		auditFailures: auditFailures,
		followUp:      followUp,
	}
}

// ObserveTransition counts a transition attempt. result is "ok" or an error code.
func (m *ReferralMetrics) ObserveTransition(status, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(result)).Inc()
}

// IncAuditFailure counts an audit write that did not land.
func (m *ReferralMetrics) IncAuditFailure(action string) {
	if m == nil || m.auditFailures == nil {
		return
	}
	m.auditFailures.WithLabelValues(normalizeLabel(action)).Inc()
}

// SetFollowUp publishes the current follow-up set size for reason.
func (m *ReferralMetrics) SetFollowUp(reason string, count int) {
	if m == nil || m.followUp == nil {
		return
	}
	m.followUp.WithLabelValues(normalizeLabel(reason)).Set(float64(count))
}
