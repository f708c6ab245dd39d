// Package store persists onboarding sessions between wizard runs.
//
// Records hold only non-secret progress plus ciphertext and salts; plaintext
// secrets never reach a store.
package store

import (
	"context"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
)

// Store persists sessions. Implementations return sentinel.ErrNotFound for
// unknown ids. They return sentinel.ErrConflict when Create hits an existing
// id or when Save targets a session that has already completed or been
// cancelled.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	// ListResumable returns the coordinator's active or paused sessions,
	// most recently updated first.
	ListResumable(ctx context.Context, coordinator id.UserID) ([]*models.Session, error)
}

func resumable(s *models.Session) bool {
	return !s.Status.IsTerminal()
}
