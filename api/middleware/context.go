package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxPartnerID contextKey = "partner_id"
	ctxRequestID contextKey = "request_id"
)

// RequestIDFromContext returns the id assigned by RequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func PartnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPartnerID).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the caller identity the way Auth does. Handlers read it
// back with ActorFromContext.
func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(actor.Role))
	if actor.PartnerID != nil {
		ctx = context.WithValue(ctx, ctxPartnerID, actor.PartnerID.String())
	}
	return ctx
}

// ActorFromContext rebuilds the authenticated actor. Missing or malformed
// identifiers yield a zero UserID, which the access guard rejects.
func ActorFromContext(ctx context.Context) access.Actor {
	actor := access.Actor{Role: enums.UserRole(RoleFromContext(ctx))}
	if id, err := uuid.Parse(UserIDFromContext(ctx)); err == nil {
		actor.UserID = id
	}
	if raw := PartnerIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			actor.PartnerID = &id
		}
	}
	return actor
}
