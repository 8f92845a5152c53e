// Package audit records privileged mutations. Entries are written once and
// never changed.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// Entry is an audit record before serialization. Old and New are encoded as
// JSON; nil stays NULL.
type Entry struct {
	ActorUserID uuid.UUID
	Action      enums.AuditAction
	EntityType  enums.AuditEntity
	EntityID    uuid.UUID
	Old         any
	New         any
}

// Recorder appends entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// ListParams filters the admin audit listing.
type ListParams struct {
	EntityType string
	EntityID   string
	Action     string
	Limit      int
	Cursor     string
}

// ListResult is one page of audit entries.
type ListResult struct {
	Items  []models.AuditLog `json:"items"`
	Cursor string            `json:"cursor"`
}

// Service records entries and serves the admin listing.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the audit service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// WithTx returns a recorder writing through tx so the entry commits with the
// mutation it describes.
func (s *Service) WithTx(tx *gorm.DB) Recorder {
	return &Service{repo: s.repo.WithTx(tx), now: s.now}
}

// Record serializes and appends entry.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	row, err := entry.toModel(s.now().UTC())
	if err != nil {
		return err
	}
	return s.repo.Append(ctx, row)
}

// List returns audit entries newest first. Admins only.
func (s *Service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := access.Require(actor, access.Admins...); err != nil {
		return nil, err
	}

	filter := listFilter{
		EntityType: enums.AuditEntity(params.EntityType),
		Action:     enums.AuditAction(params.Action),
		Limit:      params.Limit,
	}
	if params.EntityID != "" {
		id, err := uuid.Parse(params.EntityID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity_id")
		}
		filter.EntityID = id
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	items, next := pagination.Page(rows, params.Limit, func(row models.AuditLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	if items == nil {
		items = []models.AuditLog{}
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (e Entry) toModel(now time.Time) (*models.AuditLog, error) {
	if e.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("audit actor required")
	}
	if e.EntityID == uuid.Nil {
		return nil, fmt.Errorf("audit entity id required")
	}
	oldValue, err := encode(e.Old)
	if err != nil {
		return nil, fmt.Errorf("encode old value: %w", err)
	}
	newValue, err := encode(e.New)
	if err != nil {
		return nil, fmt.Errorf("encode new value: %w", err)
	}
	return &models.AuditLog{
		ID:          uuid.New(),
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   now,
	}, nil
}

func encode(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}
