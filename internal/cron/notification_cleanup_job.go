package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

const defaultNotificationRetention = 30 * 24 * time.Hour

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob removes read inbox rows older than retention.
// Unread rows are never purged.
func NewNotificationCleanupJob(logg *logger.Logger, repo notificationPurger, retention time.Duration) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if retention <= 0 {
		retention = defaultNotificationRetention
	}
	return &notificationCleanupJob{
		logg:      logg,
		repo:      repo,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationPurger
	retention time.Duration
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
