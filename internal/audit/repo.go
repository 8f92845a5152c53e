package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// Repository is append-only: there is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, row *models.AuditLog) error
	List(ctx context.Context, filter listFilter) ([]models.AuditLog, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the audit repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listFilter struct {
	EntityType enums.AuditEntity
	EntityID   uuid.UUID
	Action     enums.AuditAction
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Append(ctx context.Context, row *models.AuditLog) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repositoryImpl) List(ctx context.Context, filter listFilter) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != uuid.Nil {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var rows []models.AuditLog
	if err := pagination.Apply(query, filter.Cursor, filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
