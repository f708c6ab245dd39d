package models

import (
	"time"

	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

// Mode selects single-participant or batch onboarding.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeBatch  Mode = "batch"
)

// IsValid reports whether m is a supported mode.
func (m Mode) IsValid() bool {
	return m == ModeSingle || m == ModeBatch
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CanTransitionTo encodes active <-> paused, active -> completed and
// any non-terminal -> cancelled.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	switch s {
	case SessionActive:
		return target == SessionPaused || target == SessionCompleted || target == SessionCancelled
	case SessionPaused:
		return target == SessionActive || target == SessionCancelled
	}
	return false
}

// Session is the aggregate root of an onboarding run.
//
// Invariants:
//   - Cursor indexes Participants, or is 0 with an empty queue
//   - A single-mode session holds at most one participant
//   - Participants are never removed
//   - Completed and cancelled are terminal
type Session struct {
	ID                id.SessionID         `json:"session_id"`
	Mode              Mode                 `json:"mode"`
	Status            SessionStatus        `json:"status"`
	CoordinatorUserID id.UserID            `json:"coordinator_user_id"`
	Participants      []*ParticipantRecord `json:"participant_queue"`
	Cursor            int                  `json:"cursor"`
	Metadata          map[string]string    `json:"metadata,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// NewSession constructs an active session with an empty queue.
func NewSession(sid id.SessionID, mode Mode, coordinator id.UserID, now time.Time) (*Session, error) {
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "mode must be single or batch")
	}
	return &Session{
		ID:                sid,
		Mode:              mode,
		Status:            SessionActive,
		CoordinatorUserID: coordinator,
		Metadata:          map[string]string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Current returns the participant under the cursor, or nil.
func (s Session) Current() *ParticipantRecord {
	if len(s.Participants) == 0 {
		return nil
	}
	return s.Participants[s.Cursor]
}

// CurrentStep is the cursor participant's step, or intake with an empty queue.
func (s Session) CurrentStep() StepID {
	if p := s.Current(); p != nil {
		return p.Progress.CurrentStep
	}
	return StepIntake
}

// CompletedSteps is the cursor participant's completed set.
func (s Session) CompletedSteps() StepSet {
	if p := s.Current(); p != nil {
		return p.Progress.CompletedSteps
	}
	return nil
}

// Participant finds a participant by id.
func (s *Session) Participant(pid id.ParticipantID) (*ParticipantRecord, bool) {
	for _, p := range s.Participants {
		if p.ID == pid {
			return p, true
		}
	}
	return nil, false
}

// CanAddParticipant checks queue capacity and session state.
func (s *Session) CanAddParticipant() error {
	if s.Status != SessionActive {
		return dErrors.New(dErrors.CodeInvalidState, "session is not active")
	}
	if s.Mode == ModeSingle && len(s.Participants) >= 1 {
		return dErrors.New(dErrors.CodeInvalidState, "single-mode session already has a participant")
	}
	return nil
}

// ApplyAddParticipant appends p. The cursor moves to p only when p is the
// first participant or moveCursor is set.
func (s *Session) ApplyAddParticipant(p *ParticipantRecord, moveCursor bool, now time.Time) {
	s.Participants = append(s.Participants, p)
	if moveCursor || len(s.Participants) == 1 {
		s.Cursor = len(s.Participants) - 1
	}
	s.UpdatedAt = now
}

// CanPause checks the active -> paused transition.
func (s *Session) CanPause() error {
	if !s.Status.CanTransitionTo(SessionPaused) {
		return dErrors.New(dErrors.CodeInvalidState, "only an active session can be paused")
	}
	return nil
}

// ApplyPause transitions to paused. Call CanPause first.
func (s *Session) ApplyPause(now time.Time) {
	s.Status = SessionPaused
	s.UpdatedAt = now
}

// CanResume checks the paused -> active transition.
func (s *Session) CanResume() error {
	if !s.Status.CanTransitionTo(SessionActive) {
		return dErrors.New(dErrors.CodeInvalidState, "only a paused session can be resumed")
	}
	return nil
}

// ApplyResume transitions to active. Call CanResume first.
func (s *Session) ApplyResume(now time.Time) {
	s.Status = SessionActive
	s.UpdatedAt = now
}

// CanComplete requires an active session whose every participant has a
// satisfied attestation.
func (s *Session) CanComplete() error {
	if !s.Status.CanTransitionTo(SessionCompleted) {
		return dErrors.New(dErrors.CodeInvalidState, "only an active session can be completed")
	}
	if len(s.Participants) == 0 {
		return dErrors.New(dErrors.CodeInvalidState, "session has no participants")
	}
	for _, p := range s.Participants {
		if !p.Attestation.IsComplete() {
			return dErrors.New(dErrors.CodeInvalidState, "attestation is not complete for every participant")
		}
	}
	return nil
}

// ApplyComplete transitions to completed. Call CanComplete first.
func (s *Session) ApplyComplete(now time.Time) {
	s.Status = SessionCompleted
	for _, p := range s.Participants {
		p.Status = ParticipantCompleted
		p.UpdatedAt = now
	}
	s.UpdatedAt = now
}

// CanCancel checks that the session is not already terminal.
func (s *Session) CanCancel() error {
	if s.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "session has already ended")
	}
	return nil
}

// ApplyCancel transitions to cancelled. Participant records are kept.
func (s *Session) ApplyCancel(now time.Time) {
	s.Status = SessionCancelled
	s.UpdatedAt = now
}

// RequireActive rejects mutations on paused or terminal sessions.
func (s *Session) RequireActive() error {
	if s.Status != SessionActive {
		return dErrors.New(dErrors.CodeInvalidState, "session is "+string(s.Status))
	}
	return nil
}

// Snapshot returns a deep copy safe to hand to callers.
func (s *Session) Snapshot() Session {
	c := *s
	c.Participants = make([]*ParticipantRecord, len(s.Participants))
	for i, p := range s.Participants {
		c.Participants[i] = p.Clone()
	}
	c.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}
