package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/partnerhub-backend/internal/licenses"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

const licenseExpiryJobName = "license-expiry"

type licenseSweeper interface {
	Sweep(ctx context.Context) (*licenses.SweepSummary, error)
}

// NewLicenseExpiryJob schedules the license expiry sweep.
func NewLicenseExpiryJob(logg *logger.Logger, sweeper licenseSweeper) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("license monitor required")
	}
	return &licenseExpiryJob{logg: logg, sweeper: sweeper}, nil
}

type licenseExpiryJob struct {
	logg    *logger.Logger
	sweeper licenseSweeper
}

func (j *licenseExpiryJob) Name() string { return licenseExpiryJobName }

// Run sweeps once. Delivery failures are retried by the next cycle and do
// not fail the job; only a store failure does.
func (j *licenseExpiryJob) Run(ctx context.Context) error {
	summary, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":  summary.Checked,
		"notified": summary.Notified,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	})
	if summary.Failed > 0 {
		j.logg.Warn(logCtx, "license sweep finished with delivery failures")
		return nil
	}
	j.logg.Info(logCtx, "license sweep complete")
	return nil
}
