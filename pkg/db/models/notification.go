package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to a role.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Audience  enums.UserRole         `gorm:"column:audience;type:user_role;not null" json:"audience"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                 `gorm:"column:message;type:text;not null" json:"message"`
	Link      *string                `gorm:"column:link;type:text" json:"link,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;not null" json:"createdAt"`
}
