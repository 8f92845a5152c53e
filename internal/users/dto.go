package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// UserDTO is the transport shape of a platform user.
type UserDTO struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Name      string         `json:"name"`
	Role      enums.UserRole `json:"role"`
	PartnerID *uuid.UUID     `json:"partnerId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// RoleAssignment is the audited slice of a user row.
type RoleAssignment struct {
	Role      enums.UserRole `json:"role"`
	PartnerID *uuid.UUID     `json:"partnerId,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		PartnerID: u.PartnerID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AssignmentOf extracts the role assignment of u.
func AssignmentOf(u *models.User) RoleAssignment {
	return RoleAssignment{Role: u.Role, PartnerID: u.PartnerID}
}
