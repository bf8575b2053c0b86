// Package context carries request scoped correlation values used by
// logging, tracing and metrics.
package context

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	roleKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithUser records the authenticated user and role for log correlation.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserFromContext(ctx context.Context) (userID, role string) {
	userID, _ = ctx.Value(userIDKey).(string)
	role, _ = ctx.Value(roleKey).(string)
	return userID, role
}
