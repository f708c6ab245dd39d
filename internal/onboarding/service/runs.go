package service

import (
	"context"
	"sync"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
)

// attestationRun is a pipeline execution in flight. Its progress is
// readable without the session lock.
type attestationRun struct {
	participant id.ParticipantID
	cancel      context.CancelFunc

	mu       sync.Mutex
	progress models.AttestationProgress
}

func (r *attestationRun) set(p models.AttestationProgress) {
	r.mu.Lock()
	r.progress = p
	r.mu.Unlock()
}

func (r *attestationRun) get() models.AttestationProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

type attestationRuns struct {
	mu   sync.Mutex
	runs map[id.SessionID]*attestationRun
}

func (a *attestationRuns) start(sessionID id.SessionID, pid id.ParticipantID, cancel context.CancelFunc) *attestationRun {
	r := &attestationRun{participant: pid, cancel: cancel, progress: models.NewAttestationProgress()}
	a.mu.Lock()
	a.runs[sessionID] = r
	a.mu.Unlock()
	return r
}

func (a *attestationRuns) finish(sessionID id.SessionID) {
	a.mu.Lock()
	delete(a.runs, sessionID)
	a.mu.Unlock()
}

func (a *attestationRuns) get(sessionID id.SessionID) (*attestationRun, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.runs[sessionID]
	return r, ok
}

// abort cancels the run for sessionID, if any.
func (a *attestationRuns) abort(sessionID id.SessionID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.runs[sessionID]
	if ok {
		r.cancel()
	}
	return ok
}

func (a *attestationRuns) cancelAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.runs {
		r.cancel()
	}
}
