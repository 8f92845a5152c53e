package licenses

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	"github.com/angelmondragon/partnerhub-backend/pkg/db"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
)

const (
	defaultSweepWorkers = 4
	expiringLicenseLink = "/admin/licenses/expiring"
)

// Per-entity sweep outcomes.
const (
	OutcomeNotified        = "notified"
	OutcomeAlreadyNotified = "already_notified"
	OutcomeOutsideWindow   = "outside_window"
	OutcomeFailed          = "failed"
)

type monitorStore interface {
	ListHolders(ctx context.Context, before *time.Time) ([]Holder, error)
	NotificationExists(ctx context.Context, entityID uuid.UUID, threshold enums.LicenseThreshold, expiry time.Time) (bool, error)
	InsertNotification(ctx context.Context, row *models.LicenseNotification) error
}

// SweepDetail describes what happened to one license holder.
type SweepDetail struct {
	EntityType enums.LicenseHolder    `json:"entityType"`
	EntityID   uuid.UUID              `json:"entityId"`
	Name       string                 `json:"name"`
	ExpiryDate time.Time              `json:"expiryDate"`
	Threshold  enums.LicenseThreshold `json:"threshold,omitempty"`
	Outcome    string                 `json:"outcome"`
	Error      string                 `json:"error,omitempty"`
}

// SweepSummary aggregates one sweep. Skipped covers holders outside the
// notification window and holders already notified for the same expiry date.
type SweepSummary struct {
	Checked  int           `json:"checked"`
	Notified int           `json:"notified"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Details  []SweepDetail `json:"details"`
}

// MonitorParams wires the expiry monitor.
type MonitorParams struct {
	Store   monitorStore
	Sender  notifications.Sender
	Workers int
	Metrics *metrics.SweepMetrics
	Logger  *logger.Logger
}

// Monitor sends at most one notification per (holder, threshold, expiry date).
type Monitor struct {
	store   monitorStore
	sender  notifications.Sender
	workers int
	metrics *metrics.SweepMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewMonitor validates dependencies and applies the default worker count.
func NewMonitor(params MonitorParams) (*Monitor, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("license store required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultSweepWorkers
	}
	return &Monitor{
		store:   params.Store,
		sender:  params.Sender,
		workers: workers,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Sweep runs one pass over every license holder. Transport failures are
// counted and retried on the next sweep; a store failure aborts the pass.
func (m *Monitor) Sweep(ctx context.Context) (*SweepSummary, error) {
	now := m.now().UTC()
	holders, err := m.store.ListHolders(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load license holders")
	}

	summary := &SweepSummary{Checked: len(holders), Details: make([]SweepDetail, 0, len(holders))}
	m.metrics.AddChecked(len(holders))

	var mu sync.Mutex
	record := func(detail SweepDetail) {
		mu.Lock()
		defer mu.Unlock()
		switch detail.Outcome {
		case OutcomeNotified:
			summary.Notified++
			m.metrics.Observe(metrics.SweepOutcomeNotified, detail.Threshold.String())
		case OutcomeFailed:
			summary.Failed++
			m.metrics.Observe(metrics.SweepOutcomeFailed, detail.Threshold.String())
		default:
			summary.Skipped++
			m.metrics.Observe(metrics.SweepOutcomeSkipped, detail.Threshold.String())
		}
		summary.Details = append(summary.Details, detail)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for _, holder := range holders {
		g.Go(func() error {
			detail, err := m.process(gctx, holder, now)
			if err != nil {
				return err
			}
			record(detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "license sweep aborted")
	}
	sort.SliceStable(summary.Details, func(i, j int) bool {
		a, b := summary.Details[i], summary.Details[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		return a.EntityID.String() < b.EntityID.String()
	})

	m.logg.Info(m.logg.WithFields(ctx, map[string]any{
		"checked":  summary.Checked,
		"notified": summary.Notified,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	}), "license expiry sweep complete")
	return summary, nil
}

func (m *Monitor) process(ctx context.Context, holder Holder, now time.Time) (SweepDetail, error) {
	detail := SweepDetail{
		EntityType: holder.EntityType,
		EntityID:   holder.EntityID,
		Name:       holder.Name,
		ExpiryDate: holder.ExpiryDate,
	}
	expiry := holder.ExpiryDate
	threshold, ok := NotificationThreshold(&expiry, now)
	if !ok {
		detail.Outcome = OutcomeOutsideWindow
		return detail, nil
	}
	detail.Threshold = threshold

	exists, err := m.store.NotificationExists(ctx, holder.EntityID, threshold, holder.ExpiryDate)
	if err != nil {
		return detail, fmt.Errorf("check notification for %s %s: %w", holder.EntityType, holder.EntityID, err)
	}
	if exists {
		detail.Outcome = OutcomeAlreadyNotified
		return detail, nil
	}

	logCtx := m.logg.WithFields(ctx, map[string]any{
		"entity_type": holder.EntityType.String(),
		"entity_id":   holder.EntityID.String(),
		"threshold":   threshold.String(),
	})

	if err := m.sender.Send(ctx, buildMessage(holder, threshold, now)); err != nil {
		m.logg.Warn(m.logg.WithField(logCtx, "error", err.Error()), "license notification send failed, retrying next sweep")
		detail.Outcome = OutcomeFailed
		detail.Error = err.Error()
		return detail, nil
	}

	row := &models.LicenseNotification{
		EntityType:        holder.EntityType,
		EntityID:          holder.EntityID,
		Threshold:         threshold,
		LicenseExpiryDate: holder.ExpiryDate,
		SentAt:            now,
	}
	if err := m.store.InsertNotification(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			m.logg.Info(logCtx, "license notification recorded concurrently")
			detail.Outcome = OutcomeAlreadyNotified
			return detail, nil
		}
		return detail, fmt.Errorf("record notification for %s %s: %w", holder.EntityType, holder.EntityID, err)
	}

	detail.Outcome = OutcomeNotified
	return detail, nil
}

func buildMessage(holder Holder, threshold enums.LicenseThreshold, now time.Time) notifications.Message {
	expiry := holder.ExpiryDate.Format(time.DateOnly)
	var title, body string
	if threshold == enums.LicenseThresholdExpired {
		title = fmt.Sprintf("License expired: %s", holder.Name)
		body = fmt.Sprintf("The %s license of %s expired on %s.", holder.EntityType, holder.Name, expiry)
	} else {
		title = fmt.Sprintf("License expires in %d days: %s", threshold.Days(), holder.Name)
		body = fmt.Sprintf("The %s license of %s expires on %s (%d days left).",
			holder.EntityType, holder.Name, expiry, DaysUntil(holder.ExpiryDate, now))
	}
	return notifications.Message{
		Audience: enums.UserRoleAdmin,
		Type:     enums.NotificationTypeLicenseExpiry,
		Title:    title,
		Body:     body,
		Link:     expiringLicenseLink,
		Attributes: map[string]string{
			"entity_type": holder.EntityType.String(),
			"entity_id":   holder.EntityID.String(),
			"threshold":   threshold.String(),
			"expiry_date": expiry,
		},
	}
}
