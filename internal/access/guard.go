// Package access is the single capability guard every state-changing
// operation calls before touching the ledger.
package access

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

// Actor is the authenticated caller supplied by the identity provider.
type Actor struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	PartnerID *uuid.UUID
}

// Role sets used across services.
var (
	Admins          = []enums.UserRole{enums.UserRoleAdmin}
	Staff           = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager}
	StaffOrPartners = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager, enums.UserRolePartner}
	Originators     = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleManager, enums.UserRoleBuyer}
	Acknowledgers   = []enums.UserRole{enums.UserRoleAdmin, enums.UserRolePartner}
)

// Require fails with a forbidden error unless the actor holds one of roles.
func Require(actor Actor, roles ...enums.UserRole) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
		WithDetails(map[string]any{"role": string(actor.Role), "allowed": joinRoles(roles)})
}

// RequirePartnerScope lets partners act only on rows owned by their own
// partner. Non-partner roles pass through.
func RequirePartnerScope(actor Actor, partnerID uuid.UUID) error {
	if actor.Role != enums.UserRolePartner {
		return nil
	}
	if actor.PartnerID == nil || *actor.PartnerID != partnerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "referral belongs to another partner")
	}
	return nil
}

// IsPartner reports whether the actor is scoped to a single partner.
func (a Actor) IsPartner() bool {
	return a.Role == enums.UserRolePartner
}

func (a Actor) String() string {
	return fmt.Sprintf("%s(%s)", a.Role, a.UserID)
}

func joinRoles(roles []enums.UserRole) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return strings.Join(names, ",")
}
