package licenses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

type stubSweeper struct {
	calls int
}

func (s *stubSweeper) Sweep(context.Context) (*SweepSummary, error) {
	s.calls++
	return &SweepSummary{Checked: 1}, nil
}

func newTestService(t *testing.T) (*service, *stubSweeper) {
	t.Helper()
	db := openTestDB(t)
	seedBuyer(t, db, "Soon", true, dateIn(10))
	seedBuyer(t, db, "Past", true, dateIn(-2))
	seedBuyer(t, db, "Later", true, dateIn(120))
	seedPartner(t, db, "Edge", enums.PartnerStatusApproved, dateIn(90))

	sweeper := &stubSweeper{}
	svc, err := NewService(NewRepository(db), sweeper, 365)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return sweepNow }
	return impl, sweeper
}

func TestGetExpiringDefaultWindow(t *testing.T) {
	svc, _ := newTestService(t)
	manager := access.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}

	got, err := svc.GetExpiring(context.Background(), manager, 0)
	if err != nil {
		t.Fatalf("GetExpiring: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 licenses within 90 days, got %d", len(got))
	}
	if got[0].Name != "Past" || got[0].Category != enums.LicenseCategoryExpired || got[0].DaysUntilExpiry != -2 {
		t.Fatalf("expected expired license first, got %+v", got[0])
	}
	if got[2].Name != "Edge" || got[2].Category != enums.LicenseCategoryExpiring {
		t.Fatalf("expected 90-day boundary included, got %+v", got[2])
	}
}

func TestGetExpiringValidatesDaysAndRole(t *testing.T) {
	svc, _ := newTestService(t)
	admin := access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	for _, days := range []int{-1, 366} {
		if _, err := svc.GetExpiring(context.Background(), admin, days); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("days=%d: expected validation error, got %v", days, err)
		}
	}

	got, err := svc.GetExpiring(context.Background(), admin, 365)
	if err != nil || len(got) != 4 {
		t.Fatalf("expected all 4 licenses within a year, got %d err=%v", len(got), err)
	}

	partner := access.Actor{UserID: uuid.New(), Role: enums.UserRolePartner}
	if _, err := svc.GetExpiring(context.Background(), partner, 30); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for partners, got %v", err)
	}
}

func TestCheckExpirationsIsAdminOnly(t *testing.T) {
	svc, sweeper := newTestService(t)
	manager := access.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}
	if _, err := svc.CheckExpirations(context.Background(), manager); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	admin := access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	summary, err := svc.CheckExpirations(context.Background(), admin)
	if err != nil || summary.Checked != 1 || sweeper.calls != 1 {
		t.Fatalf("unexpected sweep result %+v err=%v calls=%d", summary, err, sweeper.calls)
	}
}
