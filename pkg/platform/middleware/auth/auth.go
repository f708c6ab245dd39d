// Package auth guards the ops API with coordinator bearer tokens.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/httputil"
	"satnam/pkg/requestcontext"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// ValidatorFunc adapts a function to JWTValidator.
type ValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f ValidatorFunc) ValidateToken(tokenString string) (*JWTClaims, error) {
	return f(tokenString)
}

// JWTClaims represents the claims we expect from the validator.
type JWTClaims struct {
	CoordinatorID string
	SessionID     string
}

// RequireAuth rejects requests without a valid coordinator token and puts
// the coordinator (and session scope, when present) on the context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			coordinator, err := id.ParseUserID(claims.CoordinatorID)
			if err != nil || coordinator.IsNil() {
				logger.WarnContext(ctx, "unauthorized access - token has no coordinator",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			ctx = requestcontext.WithCoordinatorID(ctx, coordinator)
			if claims.SessionID != "" {
				if sid, err := id.ParseSessionID(claims.SessionID); err == nil {
					ctx = requestcontext.WithSessionID(ctx, sid)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
