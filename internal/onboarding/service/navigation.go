package service

import (
	"context"

	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/requestcontext"
)

// NextStep moves the current participant past a completed step.
func (s *Service) NextStep(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return s.navigate(ctx, sessionID, func(p *models.ParticipantRecord) (models.StepID, error) {
		return p.CanAdvance()
	})
}

// PreviousStep moves the current participant back one applicable step.
func (s *Service) PreviousStep(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return s.navigate(ctx, sessionID, func(p *models.ParticipantRecord) (models.StepID, error) {
		return p.CanRetreat()
	})
}

// GoToStep jumps to a completed step or to the step right after the
// current one.
func (s *Service) GoToStep(ctx context.Context, sessionID id.SessionID, step models.StepID) (models.Session, error) {
	return s.navigate(ctx, sessionID, func(p *models.ParticipantRecord) (models.StepID, error) {
		return step, p.CanGoTo(step)
	})
}

func (s *Service) navigate(ctx context.Context, sessionID id.SessionID, target func(p *models.ParticipantRecord) (models.StepID, error)) (models.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *models.Session) error {
		if err := sess.RequireActive(); err != nil {
			return err
		}
		p, err := currentParticipant(sess)
		if err != nil {
			return err
		}
		step, err := target(p)
		if err != nil {
			return err
		}
		if p.Progress.CurrentStep == models.StepBackup && step != models.StepBackup {
			s.wipeDisplay(ctx, sess, p, secrets.ReasonNavigation)
		}
		p.ApplyGoTo(step, requestcontext.Now(ctx))
		sess.UpdatedAt = p.UpdatedAt
		return nil
	})
}

// NextParticipant moves the queue cursor forward. Each participant keeps
// their own step progress.
func (s *Service) NextParticipant(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return s.moveCursor(ctx, sessionID, +1)
}

// PreviousParticipant moves the queue cursor back.
func (s *Service) PreviousParticipant(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	return s.moveCursor(ctx, sessionID, -1)
}

func (s *Service) moveCursor(ctx context.Context, sessionID id.SessionID, delta int) (models.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *models.Session) error {
		if err := sess.RequireActive(); err != nil {
			return err
		}
		if sess.Mode != models.ModeBatch {
			return dErrors.New(dErrors.CodeInvalidState, "participant navigation is only available in batch mode")
		}
		target := sess.Cursor + delta
		if target < 0 || target >= len(sess.Participants) {
			return dErrors.New(dErrors.CodeInvalidState, "no participant in that direction")
		}
		if outgoing := sess.Current(); outgoing != nil {
			s.wipeParticipant(ctx, sess, outgoing, secrets.ReasonNavigation)
		}
		sess.Cursor = target
		sess.UpdatedAt = requestcontext.Now(ctx)
		return nil
	})
}
