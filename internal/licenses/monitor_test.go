package licenses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

var sweepNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migrate.AutoMigrateModels(conn))
	return conn
}

type recordingSender struct {
	mu       sync.Mutex
	messages []notifications.Message
	failFor  map[string]bool
}

func (s *recordingSender) Send(_ context.Context, msg notifications.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[msg.Attributes["entity_id"]] {
		return errors.New("smtp unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestMonitor(t *testing.T, store monitorStore, sender notifications.Sender) *Monitor {
	t.Helper()
	m, err := NewMonitor(MonitorParams{Store: store, Sender: sender, Workers: 4, Logger: logger.Nop()})
	require.NoError(t, err)
	m.now = func() time.Time { return sweepNow }
	return m
}

func dateIn(days int) *time.Time {
	d := dayStart(sweepNow).AddDate(0, 0, days)
	return &d
}

func seedBuyer(t *testing.T, db *gorm.DB, name string, active bool, expiry *time.Time) models.Buyer {
	t.Helper()
	buyer := models.Buyer{ID: uuid.New(), CompanyName: name, Active: active, LicenseExpiryDate: expiry}
	require.NoError(t, db.Create(&buyer).Error)
	return buyer
}

func seedPartner(t *testing.T, db *gorm.DB, name string, status enums.PartnerStatus, expiry *time.Time) models.Partner {
	t.Helper()
	partner := models.Partner{ID: uuid.New(), CompanyName: name, Status: status, LicenseExpiryDate: expiry}
	require.NoError(t, db.Create(&partner).Error)
	return partner
}

func TestSweepNotifiesThirtyDayBuyerExactlyOnce(t *testing.T) {
	db := openTestDB(t)
	buyer := seedBuyer(t, db, "Acme", true, dateIn(30))
	sender := &recordingSender{}
	monitor := newTestMonitor(t, NewRepository(db), sender)

	first, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Checked)
	require.Equal(t, 1, first.Notified)
	require.Equal(t, enums.LicenseThreshold30Days, first.Details[0].Threshold)

	for i := 0; i < 3; i++ {
		again, err := monitor.Sweep(context.Background())
		require.NoError(t, err)
		require.Equal(t, 0, again.Notified)
		require.Equal(t, 1, again.Skipped)
		require.Equal(t, OutcomeAlreadyNotified, again.Details[0].Outcome)
	}
	require.Equal(t, 1, sender.count())

	var rows []models.LicenseNotification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, buyer.ID, rows[0].EntityID)
	require.Equal(t, enums.LicenseThreshold30Days, rows[0].Threshold)
}

func TestSweepFiltersHoldersAndThresholds(t *testing.T) {
	db := openTestDB(t)
	seedBuyer(t, db, "Inactive", false, dateIn(10))
	seedBuyer(t, db, "NoDate", true, nil)
	seedBuyer(t, db, "Far", true, dateIn(200))
	seedBuyer(t, db, "Sixty", true, dateIn(45))
	seedPartner(t, db, "Expired", enums.PartnerStatusApproved, dateIn(-3))
	seedPartner(t, db, "Pending", enums.PartnerStatusPending, dateIn(5))

	sender := &recordingSender{}
	summary, err := newTestMonitor(t, NewRepository(db), sender).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Checked)
	require.Equal(t, 2, summary.Notified)
	require.Equal(t, 1, summary.Skipped)

	byName := map[string]SweepDetail{}
	for _, d := range summary.Details {
		byName[d.Name] = d
	}
	require.Equal(t, enums.LicenseThreshold60Days, byName["Sixty"].Threshold)
	require.Equal(t, enums.LicenseThresholdExpired, byName["Expired"].Threshold)
	require.Equal(t, OutcomeOutsideWindow, byName["Far"].Outcome)
}

func TestSweepRetriesAfterSendFailure(t *testing.T) {
	db := openTestDB(t)
	failing := seedBuyer(t, db, "Flaky", true, dateIn(60))
	seedBuyer(t, db, "Fine", true, dateIn(90))

	sender := &recordingSender{failFor: map[string]bool{failing.ID.String(): true}}
	monitor := newTestMonitor(t, NewRepository(db), sender)

	summary, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Notified)

	var count int64
	require.NoError(t, db.Model(&models.LicenseNotification{}).Where("entity_id = ?", failing.ID).Count(&count).Error)
	require.Zero(t, count)

	sender.mu.Lock()
	sender.failFor = nil
	sender.mu.Unlock()

	retry, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, retry.Notified)
	require.Equal(t, 1, retry.Skipped)
	require.Equal(t, 2, sender.count())
}

func TestSweepNotifiesAgainWhenExpiryChanges(t *testing.T) {
	db := openTestDB(t)
	buyer := seedBuyer(t, db, "Renewed", true, dateIn(20))
	sender := &recordingSender{}
	monitor := newTestMonitor(t, NewRepository(db), sender)

	_, err := monitor.Sweep(context.Background())
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Buyer{}).Where("id = ?", buyer.ID).Update("license_expiry_date", *dateIn(25)).Error)
	summary, err := monitor.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Notified)
	require.Equal(t, 2, sender.count())
}

type brokenStore struct {
	listErr   error
	insertErr error
	holders   []Holder
}

func (b *brokenStore) ListHolders(context.Context, *time.Time) ([]Holder, error) {
	return b.holders, b.listErr
}

func (b *brokenStore) NotificationExists(context.Context, uuid.UUID, enums.LicenseThreshold, time.Time) (bool, error) {
	return false, nil
}

func (b *brokenStore) InsertNotification(context.Context, *models.LicenseNotification) error {
	return b.insertErr
}

func TestSweepStoreFailureIsFatal(t *testing.T) {
	monitor := newTestMonitor(t, &brokenStore{listErr: errors.New("connection refused")}, &recordingSender{})
	_, err := monitor.Sweep(context.Background())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	holder := Holder{EntityType: enums.LicenseHolderBuyer, EntityID: uuid.New(), Name: "X", ExpiryDate: *dateIn(5)}
	monitor = newTestMonitor(t, &brokenStore{holders: []Holder{holder}, insertErr: errors.New("disk full")}, &recordingSender{})
	_, err = monitor.Sweep(context.Background())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestSweepTreatsUniqueViolationAsAlreadyNotified(t *testing.T) {
	holder := Holder{EntityType: enums.LicenseHolderPartner, EntityID: uuid.New(), Name: "Race", ExpiryDate: *dateIn(0)}
	store := &brokenStore{holders: []Holder{holder}, insertErr: errors.New("UNIQUE constraint failed: license_notifications.entity_id")}
	summary, err := newTestMonitor(t, store, &recordingSender{}).Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, OutcomeAlreadyNotified, summary.Details[0].Outcome)
}

func TestBuildMessage(t *testing.T) {
	holder := Holder{EntityType: enums.LicenseHolderBuyer, EntityID: uuid.New(), Name: "Acme", ExpiryDate: *dateIn(30)}
	msg := buildMessage(holder, enums.LicenseThreshold30Days, sweepNow)
	require.Equal(t, "License expires in 30 days: Acme", msg.Title)
	require.Equal(t, enums.UserRoleAdmin, msg.Audience)
	require.Equal(t, "2026-03-31", msg.Attributes["expiry_date"])

	expired := buildMessage(holder, enums.LicenseThresholdExpired, sweepNow)
	require.Equal(t, "License expired: Acme", expired.Title)
}
