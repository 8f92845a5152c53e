package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// IdentityPayload is what the session provider embeds in every access token.
type IdentityPayload struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	PartnerID *uuid.UUID
}

// IdentityClaims is the typed JWT presented by callers.
type IdentityClaims struct {
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	PartnerID *uuid.UUID     `json:"partner_id,omitempty"`
	jwt.RegisteredClaims
}
