package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/partnerhub-backend/internal/referrals"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

const followUpJobName = "referral-follow-up"

type overdueDetector interface {
	DetectOverdue(ctx context.Context) ([]referrals.FollowUpAlert, error)
}

type followUpGauge interface {
	SetFollowUp(reason string, count int)
}

// NewFollowUpJob recomputes the derived follow-up set each cycle and
// publishes its size per reason.
func NewFollowUpJob(logg *logger.Logger, detector overdueDetector, gauge followUpGauge) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if detector == nil {
		return nil, fmt.Errorf("overdue detector required")
	}
	if gauge == nil {
		return nil, fmt.Errorf("follow-up gauge required")
	}
	return &followUpJob{logg: logg, detector: detector, gauge: gauge}, nil
}

type followUpJob struct {
	logg     *logger.Logger
	detector overdueDetector
	gauge    followUpGauge
}

func (j *followUpJob) Name() string { return followUpJobName }

func (j *followUpJob) Run(ctx context.Context) error {
	alerts, err := j.detector.DetectOverdue(ctx)
	if err != nil {
		return err
	}
	counts := map[referrals.FollowUpReason]int{
		referrals.FollowUpAckOverdue:  0,
		referrals.FollowUpStatusStale: 0,
	}
	for _, alert := range alerts {
		counts[alert.Reason]++
	}
	for reason, count := range counts {
		j.gauge.SetFollowUp(string(reason), count)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ack_overdue":  counts[referrals.FollowUpAckOverdue],
		"status_stale": counts[referrals.FollowUpStatusStale],
	})
	j.logg.Info(logCtx, "follow-up scan complete")
	return nil
}
