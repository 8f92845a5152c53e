// Package admin holds the privileged catalog and account mutations. Each one
// commits its audit entry in the same transaction as the change.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/internal/audit"
	"github.com/angelmondragon/partnerhub-backend/internal/users"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type txRecorder interface {
	WithTx(tx *gorm.DB) audit.Recorder
}

// RoleInput is the body of a role change.
type RoleInput struct {
	Role      string     `json:"role" validate:"required"`
	PartnerID *uuid.UUID `json:"partnerId"`
}

// Service performs admin-only mutations.
type Service interface {
	ArchiveOffer(ctx context.Context, actor access.Actor, offerID uuid.UUID) (*models.Offer, error)
	DeletePartner(ctx context.Context, actor access.Actor, partnerID uuid.UUID) error
	ChangeUserRole(ctx context.Context, actor access.Actor, userID uuid.UUID, input RoleInput) (*users.UserDTO, error)
}

type service struct {
	db      txRunner
	catalog *catalogRepo
	users   *users.Repository
	audit   txRecorder
	now     func() time.Time
}

// NewService wires the admin operations over conn.
func NewService(db txRunner, conn *gorm.DB, auditSvc txRecorder) (Service, error) {
	if db == nil || conn == nil {
		return nil, fmt.Errorf("db required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	return &service{
		db:      db,
		catalog: newCatalogRepo(conn),
		users:   users.NewRepository(conn),
		audit:   auditSvc,
		now:     time.Now,
	}, nil
}

func (s *service) ArchiveOffer(ctx context.Context, actor access.Actor, offerID uuid.UUID) (*models.Offer, error) {
	if err := access.Require(actor, access.Admins...); err != nil {
		return nil, err
	}
	var archived *models.Offer
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.catalog.withTx(tx)
		offer, err := repo.findOffer(ctx, offerID)
		if errors.Is(err, errNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		if err != nil {
			return err
		}
		if offer.Status == enums.OfferStatusArchived {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer already archived")
		}
		before := offer.Status
		now := s.now().UTC()
		if err := repo.setOfferStatus(ctx, offerID, enums.OfferStatusArchived, now); err != nil {
			return err
		}
		offer.Status = enums.OfferStatusArchived
		offer.UpdatedAt = now
		archived = offer
		return s.audit.WithTx(tx).Record(ctx, audit.Entry{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionOfferArchive,
			EntityType:  enums.AuditEntityOffer,
			EntityID:    offerID,
			Old:         map[string]any{"status": before},
			New:         map[string]any{"status": offer.Status},
		})
	})
	if err != nil {
		return nil, pkgerrors.Classify(pkgerrors.CodeDependency, err, "archive offer")
	}
	return archived, nil
}

func (s *service) DeletePartner(ctx context.Context, actor access.Actor, partnerID uuid.UUID) error {
	if err := access.Require(actor, access.Admins...); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.catalog.withTx(tx)
		partner, err := repo.findPartner(ctx, partnerID)
		if errors.Is(err, errNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "partner not found")
		}
		if err != nil {
			return err
		}
		if err := repo.softDeletePartner(ctx, partnerID); err != nil {
			return err
		}
		return s.audit.WithTx(tx).Record(ctx, audit.Entry{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionPartnerDelete,
			EntityType:  enums.AuditEntityPartner,
			EntityID:    partnerID,
			Old:         partner,
		})
	})
	return pkgerrors.Classify(pkgerrors.CodeDependency, err, "delete partner")
}

// ChangeUserRole reassigns a user's platform role. Partner users must be bound
// to an existing partner; every other role drops the binding.
func (s *service) ChangeUserRole(ctx context.Context, actor access.Actor, userID uuid.UUID, input RoleInput) (*users.UserDTO, error) {
	if err := access.Require(actor, access.Admins...); err != nil {
		return nil, err
	}
	role, err := enums.ParseUserRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if userID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admins cannot change their own role")
	}
	assignment := users.RoleAssignment{Role: role}
	if role == enums.UserRolePartner {
		if input.PartnerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner_id is required for partner users")
		}
		assignment.PartnerID = input.PartnerID
	}

	var updated *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)
		user, err := userRepo.FindByID(ctx, userID)
		if errors.Is(err, users.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		if err != nil {
			return err
		}
		if assignment.PartnerID != nil {
			if _, err := s.catalog.withTx(tx).findPartner(ctx, *assignment.PartnerID); errors.Is(err, errNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "partner_id does not reference a partner")
			} else if err != nil {
				return err
			}
		}

		before := users.AssignmentOf(user)
		now := s.now().UTC()
		if err := userRepo.UpdateRole(ctx, userID, assignment, now); err != nil {
			return err
		}
		user.Role = assignment.Role
		user.PartnerID = assignment.PartnerID
		user.UpdatedAt = now
		updated = user
		return s.audit.WithTx(tx).Record(ctx, audit.Entry{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionUserRoleChange,
			EntityType:  enums.AuditEntityUser,
			EntityID:    userID,
			Old:         before,
			New:         assignment,
		})
	})
	if err != nil {
		return nil, pkgerrors.Classify(pkgerrors.CodeDependency, err, "change user role")
	}
	return users.FromModel(updated), nil
}
