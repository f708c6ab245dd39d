// Package requestcontext provides transport-independent context accessors for
// request-scoped values.
//
// The ops HTTP middleware and the CLI wizard both set these; services only
// read them:
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	coordinator := requestcontext.CoordinatorID(ctx)
package requestcontext

import (
	"context"
	"time"

	id "satnam/pkg/domain"
)

type (
	coordinatorIDKey struct{}
	sessionIDKey     struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// CoordinatorID returns the acting coordinator, or the nil id.
func CoordinatorID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(coordinatorIDKey{}).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithCoordinatorID injects the acting coordinator.
func WithCoordinatorID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, coordinatorIDKey{}, userID)
}

// SessionID returns the onboarding session being driven, or the nil id.
func SessionID(ctx context.Context) id.SessionID {
	if v, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return v
	}
	return id.SessionID{}
}

// WithSessionID injects the onboarding session being driven.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// RequestID retrieves the correlation id.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware, the wizard for each step, and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
