package service

import (
	"context"
	"strconv"

	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/relay"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/audit"
	"satnam/pkg/requestcontext"
)

// StartSession opens an active session with an empty queue.
func (s *Service) StartSession(ctx context.Context, coordinator id.UserID, mode models.Mode, metadata map[string]string) (models.Session, error) {
	if coordinator.IsNil() {
		return models.Session{}, dErrors.New(dErrors.CodeUnauthorized, "a coordinator is required to start a session")
	}
	sess, err := models.NewSession(id.NewSessionID(), mode, coordinator, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return models.Session{}, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return models.Session{}, err
	}
	for k, v := range metadata {
		sess.Metadata[k] = v
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return models.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	s.logAudit(ctx, sess, nil, audit.EventSessionStarted, "mode", string(mode))
	if s.metrics != nil {
		s.metrics.IncrementSessionStarted()
	}
	return sess.Snapshot(), nil
}

// AddParticipant queues a participant. The cursor moves to them only when
// the queue was empty.
func (s *Service) AddParticipant(ctx context.Context, sessionID id.SessionID, in models.Intake) (models.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *models.Session) error {
		_, err := s.addParticipant(ctx, sess, in, false)
		return err
	})
}

func (s *Service) addParticipant(ctx context.Context, sess *models.Session, in models.Intake, moveCursor bool) (*models.ParticipantRecord, error) {
	if err := sess.CanAddParticipant(); err != nil {
		return nil, err
	}
	p, err := models.NewParticipant(id.NewParticipantID(), in, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	sess.ApplyAddParticipant(p, moveCursor, requestcontext.Now(ctx))
	s.logAudit(ctx, sess, p, audit.EventParticipantAdded,
		"existing_nostr_account", strconv.FormatBool(p.ExistingNostrAccount))
	return p, nil
}

// PauseSession stops the wizard between steps and wipes every in-memory
// secret; passwords are asked for again after resume. It is refused while
// an attestation run is in flight.
func (s *Service) PauseSession(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	if _, running := s.runs.get(sessionID); running {
		return models.Session{}, dErrors.New(dErrors.CodeInvalidState, "attestation is running; pause after it finishes")
	}
	return s.withSession(ctx, sessionID, func(sess *models.Session) error {
		if err := sess.CanPause(); err != nil {
			return err
		}
		sess.ApplyPause(requestcontext.Now(ctx))
		for _, p := range sess.Participants {
			s.wipeParticipant(ctx, sess, p, secrets.ReasonNavigation)
		}
		s.logAudit(ctx, sess, nil, audit.EventSessionPaused)
		return nil
	})
}

func (s *Service) ResumeSession(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *models.Session) error {
		if err := sess.CanResume(); err != nil {
			return err
		}
		sess.ApplyResume(requestcontext.Now(ctx))
		s.logAudit(ctx, sess, nil, audit.EventSessionResumed)
		return nil
	})
}

// CompleteSession ends a session whose every participant is attested.
func (s *Service) CompleteSession(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	snap, err := s.withSession(ctx, sessionID, func(sess *models.Session) error {
		if err := sess.CanComplete(); err != nil {
			return err
		}
		sess.ApplyComplete(requestcontext.Now(ctx))
		for _, p := range sess.Participants {
			s.wipeParticipant(ctx, sess, p, secrets.ReasonConfirmed)
		}
		s.logAudit(ctx, sess, nil, audit.EventSessionCompleted,
			"participants", strconv.Itoa(len(sess.Participants)))
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	s.wipeSession(ctx, sessionID, secrets.ReasonConfirmed)
	if s.metrics != nil {
		s.metrics.IncrementSessionEnded(string(models.SessionCompleted))
	}
	s.publishSummary(ctx, snap)
	return snap, nil
}

func (s *Service) publishSummary(ctx context.Context, sess models.Session) {
	if s.summaries == nil {
		return
	}
	summary := relay.Summary{SessionID: sess.ID, CompletedAt: sess.UpdatedAt}
	for _, p := range sess.Participants {
		summary.Participants = append(summary.Participants, relay.SummaryParticipant{Npub: p.Npub, Nip05: p.Nip05})
	}
	res, err := s.summaries.PublishSummary(ctx, summary)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish session summary",
			"session_id", sess.ID.String(),
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "session summary published",
		"session_id", sess.ID.String(),
		"event_id", res.EventID,
		"relays", len(res.Accepted),
	)
}

// CancelSession ends the session from any non-terminal state. It aborts a
// running attestation and always wipes in-memory secrets, even when the
// cancel itself is refused.
func (s *Service) CancelSession(ctx context.Context, sessionID id.SessionID, confirm bool) (models.Session, error) {
	if !confirm {
		return models.Session{}, dErrors.New(dErrors.CodeConfirmationRequired, "cancelling a session must be confirmed")
	}
	s.runs.abort(sessionID)
	defer s.wipeSession(ctx, sessionID, secrets.ReasonCancelled)

	snap, err := s.withSession(ctx, sessionID, func(sess *models.Session) error {
		for _, p := range sess.Participants {
			s.wipeParticipant(ctx, sess, p, secrets.ReasonCancelled)
		}
		if err := sess.CanCancel(); err != nil {
			return err
		}
		sess.ApplyCancel(requestcontext.Now(ctx))
		s.logAudit(ctx, sess, nil, audit.EventSessionCancelled)
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementSessionEnded(string(models.SessionCancelled))
	}
	return snap, nil
}

// Snapshot returns the stored session with any live attestation progress
// overlaid. It does not wait for a running step.
func (s *Service) Snapshot(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if run, ok := s.runs.get(sessionID); ok {
		if p, found := sess.Participant(run.participant); found {
			p.Attestation = run.get()
		}
	}
	return sess.Snapshot(), nil
}

// AttestationProgress reports the latest phase statuses for one participant.
func (s *Service) AttestationProgress(ctx context.Context, sessionID id.SessionID, pid id.ParticipantID) (models.AttestationProgress, error) {
	sess, err := s.Snapshot(ctx, sessionID)
	if err != nil {
		return models.AttestationProgress{}, err
	}
	p, ok := sess.Participant(pid)
	if !ok {
		return models.AttestationProgress{}, dErrors.New(dErrors.CodeNotFound, "participant not found")
	}
	return p.Attestation, nil
}

// ListResumable returns the coordinator's unfinished sessions.
func (s *Service) ListResumable(ctx context.Context, coordinator id.UserID) ([]models.Session, error) {
	found, err := s.sessions.ListResumable(ctx, coordinator)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	out := make([]models.Session, 0, len(found))
	for _, sess := range found {
		out = append(out, sess.Snapshot())
	}
	return out, nil
}
