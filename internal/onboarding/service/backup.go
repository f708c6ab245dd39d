package service

import (
	"context"

	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/audit"
)

// ProvidePassword re-enters the current participant's password after the
// in-memory copy was wiped or lost to a restart. When a key is already
// sealed the password must open it. password is wiped.
func (s *Service) ProvidePassword(ctx context.Context, sessionID id.SessionID, password []byte) error {
	defer secretcodec.Wipe(password)

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := sess.RequireActive(); err != nil {
		return err
	}
	p, err := currentParticipant(sess)
	if err != nil {
		return err
	}
	if !p.Progress.CompletedSteps.Has(models.StepPassword) {
		return dErrors.New(dErrors.CodeInvalidState, "complete the password step first")
	}
	if p.EncryptedNsec != "" {
		if err := verifyPassword(p, password); err != nil {
			s.logAudit(ctx, sess, p, audit.EventDecryptionFailed)
			return err
		}
	}
	s.hold(s.passwords, sess.ID, p.ID, append([]byte(nil), password...))
	return nil
}

// RevealSecrets decrypts the current participant's nsec and Keet seed for
// the backup step. The returned display wipes itself when its window ends.
func (s *Service) RevealSecrets(ctx context.Context, sessionID id.SessionID) (*secrets.Display, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.RequireActive(); err != nil {
		return nil, err
	}
	p, err := currentParticipant(sess)
	if err != nil {
		return nil, err
	}
	if p.Progress.CurrentStep != models.StepBackup {
		return nil, dErrors.New(dErrors.CodeInvalidState, "secrets can only be revealed on the backup step")
	}
	if p.EncryptedNsec == "" || p.EncryptedKeetSeed == "" {
		return nil, dErrors.New(dErrors.CodeInvalidState, "no stored secrets to reveal")
	}
	password, err := s.password(p.ID)
	if err != nil {
		return nil, err
	}
	defer secretcodec.Wipe(password)

	display, err := s.display.Reveal(ctx, p.ID, secrets.Sealed{
		Nsec:     secretcodec.Sealed{Ciphertext: p.EncryptedNsec, Salt: p.NsecSalt},
		KeetSeed: secretcodec.Sealed{Ciphertext: p.EncryptedKeetSeed, Salt: p.KeetSeedSalt},
	}, password)
	if err != nil {
		s.logAudit(ctx, sess, p, audit.EventDecryptionFailed)
		return nil, err
	}
	s.logAudit(ctx, sess, p, audit.EventSecretsRevealed)
	return display, nil
}

// BackupTemplate is the blank, secret-free template for the current participant.
func (s *Service) BackupTemplate(ctx context.Context, sessionID id.SessionID) (string, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	p, err := currentParticipant(sess)
	if err != nil {
		return "", err
	}
	name := p.DisplayName
	if name == "" {
		name = p.TrueName
	}
	return secrets.Template(name), nil
}
