package testutil

import (
	"net/http"

	id "satnam/pkg/domain"
	"satnam/pkg/requestcontext"
)

// WithCoordinator adds a coordinator to the request context, the way the
// auth middleware does for a valid token.
func WithCoordinator(req *http.Request, coordinator id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithCoordinatorID(req.Context(), coordinator))
}

// WithSessionScope adds a session scope to the request context.
func WithSessionScope(req *http.Request, sessionID id.SessionID) *http.Request {
	return req.WithContext(requestcontext.WithSessionID(req.Context(), sessionID))
}
