package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/migrate"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migrate.AutoMigrateModels(conn))
	return conn
}

func TestInboxSenderListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	sender, err := NewInboxSender(repo)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		sender.now = func() time.Time { return at }
		require.NoError(t, sender.Send(ctx, Message{
			Audience: enums.UserRoleAdmin,
			Type:     enums.NotificationTypeLicenseExpiry,
			Title:    fmt.Sprintf("license %d", i),
			Body:     "expires soon",
			Link:     "/admin/licenses",
		}))
	}
	require.NoError(t, sender.Send(ctx, Message{
		Audience: enums.UserRoleManager,
		Type:     enums.NotificationTypeFollowUp,
		Title:    "follow up",
	}))

	svc, err := NewService(repo)
	require.NoError(t, err)
	admin := access.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	first, err := svc.List(ctx, admin, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, "license 2", first.Items[0].Title)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(ctx, admin, ListParams{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Equal(t, "license 0", second.Items[0].Title)
	require.Empty(t, second.Cursor)

	require.NoError(t, svc.MarkRead(ctx, admin, first.Items[0].ID))
	unread, err := svc.List(ctx, admin, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)

	manager := access.Actor{UserID: uuid.New(), Role: enums.UserRoleManager}
	err = svc.MarkRead(ctx, manager, first.Items[1].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "other roles cannot read admin inbox: %v", err)
}

func TestDeleteReadBefore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRepository(db)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	readAt := old.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, &models.Notification{Audience: enums.UserRoleAdmin, Type: enums.NotificationTypeSystem, Title: "read", Message: "m", CreatedAt: old, ReadAt: &readAt}))
	require.NoError(t, repo.Create(ctx, &models.Notification{Audience: enums.UserRoleAdmin, Type: enums.NotificationTypeSystem, Title: "unread", Message: "m", CreatedAt: old}))

	deleted, err := repo.DeleteReadBefore(ctx, old.Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "unread", remaining[0].Title)
}

func TestSendRejectsInvalidMessage(t *testing.T) {
	sender, err := NewInboxSender(NewRepository(openTestDB(t)))
	require.NoError(t, err)
	err = sender.Send(context.Background(), Message{Audience: "ghost", Type: enums.NotificationTypeSystem, Title: "x"})
	require.Error(t, err)
	err = sender.Send(context.Background(), Message{Audience: enums.UserRoleAdmin, Type: enums.NotificationTypeSystem})
	require.Error(t, err)
}

type fakePublisher struct {
	data  []byte
	attrs map[string]string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.data = data
	f.attrs = attrs
	return "msg-1", nil
}

func TestPubSubSender(t *testing.T) {
	pub := &fakePublisher{}
	sender, err := NewPubSubSender(pub)
	require.NoError(t, err)

	msg := Message{
		Audience:   enums.UserRoleAdmin,
		Type:       enums.NotificationTypeLicenseExpiry,
		Title:      "License expiring",
		Body:       "30 days left",
		Attributes: map[string]string{"threshold": "30_DAYS"},
	}
	require.NoError(t, sender.Send(context.Background(), msg))
	require.Equal(t, "license_expiry", pub.attrs["notification_type"])
	require.Equal(t, "30_DAYS", pub.attrs["threshold"])

	var decoded Message
	require.NoError(t, json.Unmarshal(pub.data, &decoded))
	require.Equal(t, msg.Title, decoded.Title)

	pub.err = errors.New("unavailable")
	require.Error(t, sender.Send(context.Background(), msg))
}
