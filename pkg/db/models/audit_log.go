package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// AuditLog is an append-only record of a privileged mutation.
type AuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ActorUserID uuid.UUID         `gorm:"column:actor_user_id;type:uuid;not null" json:"actorUserId"`
	Action      enums.AuditAction `gorm:"column:action;not null" json:"action"`
	EntityType  enums.AuditEntity `gorm:"column:entity_type;not null" json:"entityType"`
	EntityID    uuid.UUID         `gorm:"column:entity_id;type:uuid;not null" json:"entityId"`
	OldValue    json.RawMessage   `gorm:"column:old_value;type:jsonb" json:"oldValue,omitempty"`
	NewValue    json.RawMessage   `gorm:"column:new_value;type:jsonb" json:"newValue,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null" json:"createdAt"`
}
