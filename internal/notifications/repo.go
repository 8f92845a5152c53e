package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, audience enums.UserRole, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	Audience   enums.UserRole
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type notificationMarkResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// List returns up to Limit+1 rows; callers trim with pagination.Page.
func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("audience = ?", params.Audience)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := pagination.Apply(query, params.Cursor, params.Limit).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, audience enums.UserRole, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND audience = ? AND read_at IS NULL", notificationID, audience).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return notificationMarkResult{}, result.Error
	}

	mark := notificationMarkResult{Updated: result.RowsAffected > 0}
	if mark.Updated {
		mark.Found = true
		return mark, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND audience = ?", notificationID, audience).
		Count(&count).Error; err != nil {
		return notificationMarkResult{}, err
	}
	mark.Found = count > 0
	return mark, nil
}

// DeleteReadBefore purges read notifications older than cutoff.
func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
