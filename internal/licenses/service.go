package licenses

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

// DefaultExpiringDays is the look-ahead used when the caller omits days.
const DefaultExpiringDays = 90

type holderReader interface {
	ListHolders(ctx context.Context, before *time.Time) ([]Holder, error)
}

type sweeper interface {
	Sweep(ctx context.Context) (*SweepSummary, error)
}

// ExpiringLicense is a holder enriched with its derived status.
type ExpiringLicense struct {
	Holder
	DaysUntilExpiry int                   `json:"daysUntilExpiry"`
	Category        enums.LicenseCategory `json:"category"`
}

// Service exposes the license read model and the on-demand sweep.
type Service interface {
	GetExpiring(ctx context.Context, actor access.Actor, days int) ([]ExpiringLicense, error)
	CheckExpirations(ctx context.Context, actor access.Actor) (*SweepSummary, error)
}

type service struct {
	holders   holderReader
	monitor   sweeper
	daysLimit int
	now       func() time.Time
}

// NewService wires the license service. daysLimit caps GetExpiring look-ahead.
func NewService(holders holderReader, monitor sweeper, daysLimit int) (Service, error) {
	if holders == nil {
		return nil, fmt.Errorf("license holder reader required")
	}
	if monitor == nil {
		return nil, fmt.Errorf("license monitor required")
	}
	if daysLimit <= 0 {
		daysLimit = 365
	}
	return &service{holders: holders, monitor: monitor, daysLimit: daysLimit, now: time.Now}, nil
}

// GetExpiring lists licenses expiring within days, including ones already
// expired, soonest first.
func (s *service) GetExpiring(ctx context.Context, actor access.Actor, days int) ([]ExpiringLicense, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	if days == 0 {
		days = DefaultExpiringDays
	}
	if days < 1 || days > s.daysLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days out of range").
			WithDetails(map[string]any{"days": days, "min": 1, "max": s.daysLimit})
	}

	now := s.now().UTC()
	before := dayStart(now).AddDate(0, 0, days+1)
	holders, err := s.holders.ListHolders(ctx, &before)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expiring licenses")
	}

	out := make([]ExpiringLicense, 0, len(holders))
	for _, h := range holders {
		expiry := h.ExpiryDate
		out = append(out, ExpiringLicense{
			Holder:          h,
			DaysUntilExpiry: DaysUntil(expiry, now),
			Category:        Classify(&expiry, now),
		})
	}
	return out, nil
}

// CheckExpirations runs the sweep immediately on behalf of an admin.
func (s *service) CheckExpirations(ctx context.Context, actor access.Actor) (*SweepSummary, error) {
	if err := access.Require(actor, access.Admins...); err != nil {
		return nil, err
	}
	return s.monitor.Sweep(ctx)
}
