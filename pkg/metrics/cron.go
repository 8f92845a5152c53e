package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "partnerhub"

// Job run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	OutcomePanic   = "panic"
)

// CronJobMetrics tracks scheduled job runs. A zero value records nothing.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	skipped     prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of cron job runs.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "cycle_skipped_total",
			Help:      "Cycles skipped because another worker held the lock.",
		}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.skipped)
	return m
}

// ObserveRun records one finished job run.
func (c *CronJobMetrics) ObserveRun(job, outcome string, elapsed time.Duration, finishedAt time.Time) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		c.lastSuccess.WithLabelValues(job).Set(float64(finishedAt.Unix()))
	}
}

func (c *CronJobMetrics) IncSkipped() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
