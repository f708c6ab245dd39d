package store

import (
	"context"
	"sort"
	"sync"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/sentinel"
)

// InMemory keeps detached copies so callers never alias stored state.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]models.Session)}
}

func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session.Snapshot()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	snap := stored.Snapshot()
	return &snap, nil
}

func (s *InMemory) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status.IsTerminal() {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = session.Snapshot()
	return nil
}

func (s *InMemory) ListResumable(_ context.Context, coordinator id.UserID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, stored := range s.sessions {
		if stored.CoordinatorUserID != coordinator || !resumable(&stored) {
			continue
		}
		snap := stored.Snapshot()
		out = append(out, &snap)
	}
	sortByRecency(out)
	return out, nil
}

func sortByRecency(sessions []*models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
