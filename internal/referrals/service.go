// Package referrals owns the referral state machine. Status moves
// SENT → ACKED → IN_NEGOTIATION → WON | LOST; terminal rows are never changed.
package referrals

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
	"github.com/angelmondragon/partnerhub-backend/internal/commissions"
	"github.com/angelmondragon/partnerhub-backend/internal/offers"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

const defaultTransitionTimeout = 5 * time.Second

// Service is the referral state machine.
type Service interface {
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.Referral, error)
	Acknowledge(ctx context.Context, actor access.Actor, referralID uuid.UUID) (*models.Referral, error)
	Advance(ctx context.Context, actor access.Actor, referralID uuid.UUID, input AdvanceInput) (*models.Referral, error)
	UpdateNotes(ctx context.Context, actor access.Actor, referralID uuid.UUID, input NotesInput) (*models.Referral, error)
	Get(ctx context.Context, actor access.Actor, referralID uuid.UUID) (*models.Referral, error)
	ListByManager(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	FollowUpAlerts(ctx context.Context, actor access.Actor) ([]FollowUpAlert, error)
	DetectOverdue(ctx context.Context) ([]FollowUpAlert, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the state machine.
type ServiceParams struct {
	DB                txRunner
	Repo              Repository
	Catalog           offers.Catalog
	Audit             audit.Recorder
	Metrics           *metrics.ReferralMetrics
	Logger            *logger.Logger
	TransitionTimeout time.Duration
}

type service struct {
	db      txRunner
	repo    Repository
	catalog offers.Catalog
	audit   audit.Recorder
	metrics *metrics.ReferralMetrics
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewService validates dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("referral repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("offer catalog required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.TransitionTimeout
	if timeout <= 0 {
		timeout = defaultTransitionTimeout
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		catalog: params.Catalog,
		audit:   params.Audit,
		metrics: params.Metrics,
		logg:    params.Logger,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*models.Referral, error) {
	if err := access.Require(actor, access.Originators...); err != nil {
		return nil, err
	}
	input.normalize()
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	origin, err := enums.ParseReferralOrigin(input.Origin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid origin")
	}

	terms, err := s.catalog.Lookup(ctx, input.OfferID)
	if err != nil {
		return nil, err
	}
	if !terms.Published() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not published").
			WithDetails(map[string]any{"offerId": input.OfferID.String(), "status": string(terms.Status)})
	}
	if err := commissions.ValidateFeePercent(terms.SuccessFeePercent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "offer fee out of range")
	}

	managerID := input.ManagerID
	if managerID == nil && actor.Role == enums.UserRoleManager {
		id := actor.UserID
		managerID = &id
	}

	now := s.now().UTC()
	referral := &models.Referral{
		ID:                      uuid.New(),
		OfferID:                 terms.OfferID,
		PartnerID:               terms.PartnerID,
		LeadRequestID:           input.LeadRequestID,
		ManagerID:               managerID,
		BuyerCompany:            input.Buyer.Company,
		BuyerContactName:        input.Buyer.ContactName,
		BuyerContactEmail:       optionalString(input.Buyer.ContactEmail),
		BuyerContactPhone:       optionalString(input.Buyer.ContactPhone),
		Origin:                  origin,
		Status:                  enums.ReferralStatusSent,
		ExpectedValueCents:      input.ExpectedValueCents,
		FeePercent:              terms.SuccessFeePercent,
		ExpectedCommissionCents: commissions.Commission(input.ExpectedValueCents, terms.SuccessFeePercent),
		Notes:                   input.Notes,
		LastStatusUpdate:        now,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if terms.PartnerAckHours > 0 {
		deadline := now.Add(time.Duration(terms.PartnerAckHours) * time.Hour)
		referral.AckDeadline = &deadline
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	err = s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(txCtx, referral)
	})
	if err != nil {
		classified := pkgerrors.Classify(pkgerrors.CodeDependency, err, "create referral")
		s.metrics.ObserveTransition(enums.ReferralStatusSent.String(), string(pkgerrors.CodeOf(classified)))
		return nil, classified
	}
	s.metrics.ObserveTransition(enums.ReferralStatusSent.String(), "ok")

	s.recordAudit(ctx, audit.Entry{
		ActorUserID: actor.UserID,
		Action:      enums.AuditActionReferralCreate,
		EntityType:  enums.AuditEntityReferral,
		EntityID:    referral.ID,
		New:         referral,
	})
	return referral, nil
}

func (s *service) Acknowledge(ctx context.Context, actor access.Actor, referralID uuid.UUID) (*models.Referral, error) {
	if err := access.Require(actor, access.Acknowledgers...); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, referralID, enums.ReferralStatusAcked, enums.AuditActionReferralAcknowledge,
		func(_ context.Context, _ Repository, _ *models.Referral, now time.Time) (map[string]any, error) {
			return map[string]any{
				"status":             enums.ReferralStatusAcked,
				"last_status_update": now,
				"updated_at":         now,
			}, nil
		})
}

func (s *service) Advance(ctx context.Context, actor access.Actor, referralID uuid.UUID, input AdvanceInput) (*models.Referral, error) {
	if err := access.Require(actor, access.StaffOrPartners...); err != nil {
		return nil, err
	}
	input.Status = strings.ToUpper(strings.TrimSpace(input.Status))
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	target, err := enums.ParseReferralStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if target == enums.ReferralStatusWon && input.WonValueCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wonValueCents is required when status is WON")
	}
	if target != enums.ReferralStatusWon && (input.WonValueCents != nil || input.CouponCode != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wonValueCents and couponCode only apply to WON")
	}

	return s.transition(ctx, actor, referralID, target, enums.AuditActionReferralAdvance,
		func(ctx context.Context, repo Repository, current *models.Referral, now time.Time) (map[string]any, error) {
			updates := map[string]any{
				"status":             target,
				"last_status_update": now,
				"updated_at":         now,
			}
			if input.Notes != nil {
				updates["notes"] = strings.TrimSpace(*input.Notes)
			}
			if target != enums.ReferralStatusWon {
				return updates, nil
			}

			var coupon *models.Coupon
			if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
				found, err := repo.FindCouponByCode(ctx, strings.TrimSpace(*input.CouponCode))
				if errors.Is(err, ErrNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
				}
				if err != nil {
					return nil, err
				}
				if err := commissions.ValidateCoupon(*found, now); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "coupon not redeemable")
				}
				coupon = found
				updates["coupon_id"] = found.ID
			}

			realized, discount := commissions.Realized(*input.WonValueCents, current.FeePercent, coupon)
			updates["won_value_cents"] = *input.WonValueCents
			updates["discount_cents"] = discount.DiscountCents
			updates["realized_commission_cents"] = realized
			return updates, nil
		})
}

type mutation func(ctx context.Context, repo Repository, current *models.Referral, now time.Time) (map[string]any, error)

// transition runs one guarded status change inside a transaction bounded by
// the configured timeout, then records the audit entry.
func (s *service) transition(ctx context.Context, actor access.Actor, referralID uuid.UUID, target enums.ReferralStatus, action enums.AuditAction, mutate mutation) (*models.Referral, error) {
	if referralID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral id required")
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var before, after *models.Referral
	err := s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(txCtx, referralID)
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "referral not found")
		}
		if err != nil {
			return err
		}
		if err := access.RequirePartnerScope(actor, current.PartnerID); err != nil {
			return err
		}
		if !CanTransition(current.Status, target) {
			return invalidTransition(current.Status, target)
		}

		now := s.now().UTC()
		updates, err := mutate(txCtx, repo, current, now)
		if err != nil {
			return err
		}
		affected, err := repo.UpdateGuarded(txCtx, referralID, current.Status, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "referral changed concurrently").
				WithDetails(map[string]any{"from": current.Status.String(), "to": target.String()})
		}

		updated, err := repo.FindByID(txCtx, referralID)
		if err != nil {
			return err
		}
		before, after = current, updated
		return nil
	})
	if err != nil {
		classified := pkgerrors.Classify(pkgerrors.CodeDependency, err, "referral transition failed")
		s.metrics.ObserveTransition(target.String(), string(pkgerrors.CodeOf(classified)))
		return nil, classified
	}
	s.metrics.ObserveTransition(target.String(), "ok")

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"referral_id": referralID.String(),
		"from":        before.Status.String(),
		"to":          after.Status.String(),
	})
	s.logg.Info(logCtx, "referral transitioned")

	s.recordAudit(ctx, audit.Entry{
		ActorUserID: actor.UserID,
		Action:      action,
		EntityType:  enums.AuditEntityReferral,
		EntityID:    referralID,
		Old:         before,
		New:         after,
	})
	return after, nil
}

func (s *service) UpdateNotes(ctx context.Context, actor access.Actor, referralID uuid.UUID, input NotesInput) (*models.Referral, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var before, after *models.Referral
	err := s.db.WithTx(txCtx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(txCtx, referralID)
		if errors.Is(err, ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "referral not found")
		}
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if _, err := repo.UpdateFields(txCtx, referralID, map[string]any{
			"notes":      strings.TrimSpace(input.Notes),
			"updated_at": now,
		}); err != nil {
			return err
		}
		updated, err := repo.FindByID(txCtx, referralID)
		if err != nil {
			return err
		}
		before, after = current, updated
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Classify(pkgerrors.CodeDependency, err, "update referral notes")
	}

	s.recordAudit(ctx, audit.Entry{
		ActorUserID: actor.UserID,
		Action:      enums.AuditActionReferralNotes,
		EntityType:  enums.AuditEntityReferral,
		EntityID:    referralID,
		Old:         map[string]string{"notes": before.Notes},
		New:         map[string]string{"notes": after.Notes},
	})
	return after, nil
}

func (s *service) Get(ctx context.Context, actor access.Actor, referralID uuid.UUID) (*models.Referral, error) {
	if err := access.Require(actor, access.StaffOrPartners...); err != nil {
		return nil, err
	}
	referral, err := s.repo.FindByID(ctx, referralID)
	if errors.Is(err, ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
	}
	if err := access.RequirePartnerScope(actor, referral.PartnerID); err != nil {
		return nil, err
	}
	return referral, nil
}

// ListByManager pages referrals assigned to a manager. Managers only see
// their own book; admins may pick any manager or omit it to see everything.
func (s *service) ListByManager(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}
	managerID := params.ManagerID
	if actor.Role == enums.UserRoleManager {
		if managerID != nil && *managerID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "managers can only list their own referrals")
		}
		own := actor.UserID
		managerID = &own
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listFilter{ManagerID: managerID, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list referrals")
	}
	rows, next := pagination.Page(rows, params.Limit, func(r models.Referral) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})

	days, err := s.repo.StatusUpdateDays(ctx, offerIDs(rows))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer cadence")
	}
	now := s.now().UTC()
	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		reason := FollowUpFor(row, days[row.OfferID], now)
		items = append(items, ListItem{Referral: row, FollowUpRequired: reason != "", FollowUpReason: reason})
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// FollowUpAlerts returns the derived overdue set visible to actor.
func (s *service) FollowUpAlerts(ctx context.Context, actor access.Actor) ([]FollowUpAlert, error) {
	if err := access.Require(actor, access.StaffOrPartners...); err != nil {
		return nil, err
	}
	var scope openScope
	switch actor.Role {
	case enums.UserRolePartner:
		if actor.PartnerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner scope missing")
		}
		scope.PartnerID = actor.PartnerID
	case enums.UserRoleManager:
		own := actor.UserID
		scope.ManagerID = &own
	}
	return s.detect(ctx, scope)
}

// DetectOverdue computes the follow-up set across every open referral. Used
// by the scheduler; no actor is involved.
func (s *service) DetectOverdue(ctx context.Context) ([]FollowUpAlert, error) {
	return s.detect(ctx, openScope{})
}

func (s *service) detect(ctx context.Context, scope openScope) ([]FollowUpAlert, error) {
	rows, err := s.repo.ListOpen(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open referrals")
	}
	days, err := s.repo.StatusUpdateDays(ctx, offerIDs(rows))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer cadence")
	}
	return DetectOverdue(s.now().UTC(), rows, days), nil
}

// recordAudit writes the entry after the mutation committed. A failure does
// not undo the mutation; it is logged as an integrity warning and counted.
func (s *service) recordAudit(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"integrity_warning": true,
			"action":            entry.Action.String(),
			"entity_id":         entry.EntityID.String(),
		})
		s.logg.Error(logCtx, "audit write failed after committed mutation", err)
		s.metrics.IncAuditFailure(entry.Action.String())
	}
}
