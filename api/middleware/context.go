package middleware

import (
	"context"

	"github.com/angelmondragon/catalog-admin/pkg/auth/session"
)

type contextKey string

const (
	ctxAdmin    contextKey = "admin"
	ctxAccessID contextKey = "access_id"
)

// AdminFromContext returns the signed-in admin resolved by Auth.
func AdminFromContext(ctx context.Context) *session.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxAdmin).(*session.Identity); ok {
		return v
	}
	return nil
}

// AdminIDFromContext returns the admin id or 0 when the request is anonymous.
func AdminIDFromContext(ctx context.Context) int64 {
	if admin := AdminFromContext(ctx); admin != nil {
		return admin.ID
	}
	return 0
}

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// WithAdmin injects the admin identity and its access id into the context.
func WithAdmin(ctx context.Context, admin *session.Identity, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxAdmin, admin)
	return context.WithValue(ctx, ctxAccessID, accessID)
}
