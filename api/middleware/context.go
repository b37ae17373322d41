package middleware

import (
	"context"

	"github.com/angelmondragon/marketplace-backend/internal/policy"
)

type contextKey string

const (
	ctxCaller   contextKey = "caller"
	ctxAccessID contextKey = "access_id"
)

// CallerFromContext returns the authenticated caller, or the anonymous caller
// when the request carried no credentials.
func CallerFromContext(ctx context.Context) policy.Caller {
	if ctx == nil {
		return policy.Caller{}
	}
	if v, ok := ctx.Value(ctxCaller).(policy.Caller); ok {
		return v
	}
	return policy.Caller{}
}

func UserIDFromContext(ctx context.Context) string {
	caller := CallerFromContext(ctx)
	if !caller.Authenticated() {
		return ""
	}
	return caller.ID.String()
}

func RoleFromContext(ctx context.Context) string {
	return string(CallerFromContext(ctx).Role)
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

// WithCaller injects the caller into the context.
func WithCaller(ctx context.Context, caller policy.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, caller)
}
