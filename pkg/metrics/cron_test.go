package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "license-expiry"
	finished := time.Date(2026, 5, 20, 3, 0, 0, 0, time.UTC)
	metrics.ObserveRun(job, OutcomeSuccess, 250*time.Millisecond, finished)
	metrics.ObserveRun(job, OutcomeFailure, time.Second, finished.Add(time.Hour))
	metrics.IncSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "partnerhub_cron_job_runs_total")
	if runs == nil || len(runs.GetMetric()) != 2 {
		t.Fatalf("expected one series per outcome")
	}
	for _, m := range runs.GetMetric() {
		if !matchesLabel(m.GetLabel(), "job", job) || m.GetCounter().GetValue() != 1 {
			t.Fatalf("unexpected run series %v", m)
		}
	}

	if got, err := fetchHistogramSum(mfs, "partnerhub_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1.25 {
		t.Fatalf("expected duration sum 1.25, got %f", got)
	}

	last := findMetricFamily(mfs, "partnerhub_cron_job_last_success_timestamp_seconds")
	if last == nil || last.GetMetric()[0].GetGauge().GetValue() != float64(finished.Unix()) {
		t.Fatalf("failures must not move the last success timestamp")
	}

	skipped := findMetricFamily(mfs, "partnerhub_cron_cycle_skipped_total")
	if skipped == nil || skipped.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one skipped cycle")
	}
}

func TestSweepMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepMetrics(reg)
	m.AddChecked(3)
	m.Observe(SweepOutcomeNotified, "30_DAYS")
	m.Observe(SweepOutcomeNotified, "30_DAYS")
	m.Observe(SweepOutcomeFailed, "EXPIRED")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "partnerhub_license_notifications_total", "threshold", "30_DAYS"); err != nil || got != 2 {
		t.Fatalf("expected 2 notified at 30_DAYS, got %f err=%v", got, err)
	}
	checked := findMetricFamily(mfs, "partnerhub_license_entities_checked_total")
	if checked == nil || checked.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 checked entities")
	}
}

func TestReferralMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReferralMetrics(reg)
	m.ObserveTransition("WON", "ok")
	m.IncAuditFailure("referral.advance")
	m.SetFollowUp("ack_overdue", 4)
	m.SetFollowUp("ack_overdue", 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "partnerhub_audit_write_failures_total", "action", "referral.advance"); err != nil || got != 1 {
		t.Fatalf("expected one audit failure, got %f err=%v", got, err)
	}
	gauge := findMetricFamily(mfs, "partnerhub_referrals_follow_up_required")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 2 {
		t.Fatalf("expected follow-up gauge to hold the latest value")
	}
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/referrals", 201, 40*time.Millisecond)
	m.Observe("POST", "/api/v1/referrals", 201, 10*time.Millisecond)
	m.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "partnerhub_http_requests_total", "route", "/api/v1/referrals"); err != nil || got != 2 {
		t.Fatalf("expected 2 referral requests, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "partnerhub_http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("expected unmatched route label, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "partnerhub_http_request_duration_seconds", "route", "/api/v1/referrals"); err != nil || got <= 0 {
		t.Fatalf("expected latency recorded, got %f err=%v", got, err)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveRun("x", OutcomeSuccess, time.Second, time.Now())
	NewSweepMetrics(nil).Observe(SweepOutcomeSkipped, "")
	NewReferralMetrics(nil).IncAuditFailure("")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
