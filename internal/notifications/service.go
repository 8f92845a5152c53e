package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// Service defines inbox list/read operations. Notifications are addressed to
// a role, so every caller sees the inbox of its own role.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, actor access.Actor, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		Audience:   actor.Role,
		Limit:      params.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	items, next := pagination.Page(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	if items == nil {
		items = []models.Notification{}
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) MarkRead(ctx context.Context, actor access.Actor, notificationID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, actor.Role, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func requireActor(actor access.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity required")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	return nil
}
