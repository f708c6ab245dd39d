package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"satnam/internal/nostrid"
	"satnam/internal/onboarding/attestation"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/wallet"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/audit"
	"satnam/pkg/requestcontext"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// Step inputs. Byte slices holding secrets are wiped by CompleteStep.
type (
	IntakeInput struct {
		models.Intake
	}

	// IdentityInput names the participant's NIP-05 handle. Npub is required
	// for an existing Nostr account and ignored otherwise.
	IdentityInput struct {
		Username string
		Npub     string
		Nip05    string
	}

	PasswordInput struct {
		Password []byte
		Confirm  []byte
	}

	MigrationInput struct {
		Nsec []byte
	}

	CardInput struct {
		CardType   models.CardType
		PIN        []byte
		ConfirmPIN []byte
	}

	LightningInput struct {
		wallet.Request
	}

	KeetInput struct{}

	BackupInput struct {
		Acknowledged bool
	}

	AttestationInput struct {
		OnProgress attestation.ProgressFunc
	}

	CompleteInput struct{}
)

// stepCall is one CompleteStep invocation. A handler sets persistOnError
// when its failure still changed the record.
type stepCall struct {
	sess           *models.Session
	participant    *models.ParticipantRecord
	input          any
	now            time.Time
	persistOnError bool
}

type stepHandler func(s *Service, ctx context.Context, call *stepCall) error

// stepHandlers must cover every step in models.Steps.
var stepHandlers = map[models.StepID]stepHandler{
	models.StepIntake:      (*Service).completeIntake,
	models.StepIdentity:    (*Service).completeIdentity,
	models.StepPassword:    (*Service).completePassword,
	models.StepMigration:   (*Service).completeMigration,
	models.StepNFC:         (*Service).completeNFC,
	models.StepLightning:   (*Service).completeLightning,
	models.StepKeet:        (*Service).completeKeet,
	models.StepBackup:      (*Service).completeBackup,
	models.StepAttestation: (*Service).completeAttestation,
	models.StepComplete:    (*Service).completeFinal,
}

// CompleteStep runs the component call for step, marks it completed for
// the current participant and advances to the next applicable step. A
// failed step leaves the pointer in place so it can be retried.
func (s *Service) CompleteStep(ctx context.Context, sessionID id.SessionID, step models.StepID, input any) (models.Session, error) {
	defer wipeInput(input)

	handler, ok := stepHandlers[step]
	if !ok {
		return models.Session{}, dErrors.New(dErrors.CodeValidation, "unknown step "+string(step))
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if err := sess.RequireActive(); err != nil {
		return models.Session{}, err
	}

	ctx = scoped(ctx, sess)
	call := &stepCall{sess: sess, input: input, now: requestcontext.Now(ctx)}
	// An empty queue sits at intake; the intake handler creates the participant.
	if step != models.StepIntake || sess.Current() != nil {
		p, err := currentParticipant(sess)
		if err != nil {
			return models.Session{}, err
		}
		if err := p.CanCompleteStep(step); err != nil {
			return models.Session{}, err
		}
		call.participant = p
	}

	if err := handler(s, ctx, call); err != nil {
		if call.persistOnError {
			if saveErr := s.save(ctx, sess); saveErr != nil {
				s.logger.ErrorContext(ctx, "failed to save step failure", "step", string(step), "error", saveErr)
			}
		}
		return models.Session{}, err
	}

	p := call.participant
	p.ApplyStepCompleted(step, call.now)
	sess.UpdatedAt = call.now
	if err := s.save(ctx, sess); err != nil {
		return models.Session{}, err
	}
	s.logAudit(ctx, sess, p, audit.EventStepCompleted, "step", string(step))
	if s.metrics != nil {
		s.metrics.IncrementStepCompleted(string(step))
	}
	return sess.Snapshot(), nil
}

func inputAs[T any](step models.StepID, input any) (T, error) {
	var zero T
	switch v := input.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	case nil:
		return zero, nil
	}
	return zero, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("step %s expects %T input", step, zero))
}

func wipeInput(input any) {
	switch v := input.(type) {
	case PasswordInput:
		secretcodec.Wipe(v.Password)
		secretcodec.Wipe(v.Confirm)
	case *PasswordInput:
		secretcodec.Wipe(v.Password)
		secretcodec.Wipe(v.Confirm)
	case MigrationInput:
		secretcodec.Wipe(v.Nsec)
	case *MigrationInput:
		secretcodec.Wipe(v.Nsec)
	case CardInput:
		secretcodec.Wipe(v.PIN)
		secretcodec.Wipe(v.ConfirmPIN)
	case *CardInput:
		secretcodec.Wipe(v.PIN)
		secretcodec.Wipe(v.ConfirmPIN)
	case LightningInput:
		secretcodec.Wipe(v.NWCConnectionString)
	case *LightningInput:
		secretcodec.Wipe(v.NWCConnectionString)
	}
}

func (s *Service) completeIntake(ctx context.Context, call *stepCall) error {
	in, err := inputAs[IntakeInput](models.StepIntake, call.input)
	if err != nil {
		return err
	}
	if call.participant == nil {
		p, err := s.addParticipant(ctx, call.sess, in.Intake, true)
		if err != nil {
			return err
		}
		call.participant = p
		return nil
	}

	// Revisiting intake edits the current participant.
	p := call.participant
	if in.ExistingNostrAccount != p.ExistingNostrAccount && p.Progress.CompletedSteps.Has(models.StepIdentity) {
		return dErrors.New(dErrors.CodeInvalidState, "existing-account choice cannot change after the identity step")
	}
	if _, err := models.NewParticipant(p.ID, in.Intake, call.now); err != nil {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	p.TrueName = in.TrueName
	p.DisplayName = in.DisplayName
	if in.Role != "" {
		p.Role = in.Role
	}
	p.FederationID = in.FederationID
	p.ExistingNostrAccount = in.ExistingNostrAccount
	return nil
}

func (s *Service) completeIdentity(ctx context.Context, call *stepCall) error {
	in, err := inputAs[IdentityInput](models.StepIdentity, call.input)
	if err != nil {
		return err
	}
	p := call.participant

	nip05, err := s.resolveNip05(p, in)
	if err != nil {
		return err
	}

	if p.ExistingNostrAccount {
		npub := strings.TrimSpace(in.Npub)
		if _, err := nostrid.DecodeNpub(npub); err != nil {
			return err
		}
		if p.EncryptedNsec != "" && npub != p.Npub {
			return dErrors.New(dErrors.CodeInvalidState, "the imported key is already stored; the npub cannot change")
		}
		p.Npub = npub
		p.Nip05 = nip05
		return nil
	}

	// Re-running identity keeps an established key pair.
	if p.Npub == "" || (p.EncryptedNsec == "" && !s.pendingKeys.Has(p.ID)) {
		nsec, npub, err := nostrid.GenerateKeyPair()
		if err != nil {
			return err
		}
		s.hold(s.pendingKeys, call.sess.ID, p.ID, nsec)
		p.Npub = npub
	}
	p.Nip05 = nip05
	return nil
}

func (s *Service) resolveNip05(p *models.ParticipantRecord, in IdentityInput) (string, error) {
	if p.ExistingNostrAccount && strings.TrimSpace(in.Nip05) != "" {
		local, domain, err := nostrid.ParseNip05(in.Nip05)
		if err != nil {
			return "", err
		}
		return local + "@" + domain, nil
	}
	name := strings.TrimSpace(in.Username)
	if name == "" {
		name = p.NameForAddress()
	}
	local := wallet.DeriveLocalPart(name)
	if local == "" {
		return "", dErrors.New(dErrors.CodeValidation, "username has no characters usable in a NIP-05 identifier")
	}
	return local + "@" + s.domain, nil
}

func (s *Service) completePassword(ctx context.Context, call *stepCall) error {
	in, err := inputAs[PasswordInput](models.StepPassword, call.input)
	if err != nil {
		return err
	}
	if err := validatePassword(in.Password, in.Confirm); err != nil {
		return err
	}
	p := call.participant

	nsec, pending := s.pendingKeys.Get(p.ID)
	switch {
	case pending:
		defer secretcodec.Wipe(nsec)
		sealed, err := secretcodec.SealWithPassword(nsec, in.Password)
		if err != nil {
			return err
		}
		p.EncryptedNsec, p.NsecSalt = sealed.Ciphertext, sealed.Salt
		s.pendingKeys.Wipe(p.ID)
	case p.EncryptedNsec != "":
		// Key already sealed on an earlier pass; the password must open it.
		if err := verifyPassword(p, in.Password); err != nil {
			return err
		}
	case !p.ExistingNostrAccount:
		return dErrors.New(dErrors.CodeInvalidState, "the new key is no longer in memory; repeat the identity step")
	}

	s.hold(s.passwords, call.sess.ID, p.ID, append([]byte(nil), in.Password...))
	return nil
}

func validatePassword(password, confirm []byte) error {
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("password must be %d characters or less", maxPasswordLength))
	}
	if string(password) != string(confirm) {
		return dErrors.New(dErrors.CodeValidation, "password and confirmation do not match")
	}
	return nil
}

func verifyPassword(p *models.ParticipantRecord, password []byte) error {
	plain, err := secretcodec.OpenWithPassword(secretcodec.Sealed{Ciphertext: p.EncryptedNsec, Salt: p.NsecSalt}, password)
	if err != nil {
		return err
	}
	secretcodec.Wipe(plain)
	return nil
}

func (s *Service) completeMigration(ctx context.Context, call *stepCall) error {
	in, err := inputAs[MigrationInput](models.StepMigration, call.input)
	if err != nil {
		return err
	}
	p := call.participant
	if err := nostrid.VerifyKeyPair(in.Nsec, p.Npub); err != nil {
		return err
	}
	password, err := s.password(p.ID)
	if err != nil {
		return err
	}
	defer secretcodec.Wipe(password)

	sealed, err := secretcodec.SealWithPassword(in.Nsec, password)
	if err != nil {
		return err
	}
	p.EncryptedNsec, p.NsecSalt = sealed.Ciphertext, sealed.Salt
	return nil
}

func (s *Service) completeNFC(ctx context.Context, call *stepCall) error {
	in, err := inputAs[CardInput](models.StepNFC, call.input)
	if err != nil {
		return err
	}
	p := call.participant
	data, err := s.cards.Register(ctx, p.ID, in.CardType, in.PIN, in.ConfirmPIN)
	if err != nil {
		return err
	}
	p.CardUIDHash = data.CardUIDHash
	p.CardType = data.CardType
	s.logAudit(ctx, call.sess, p, audit.EventCardRegistered, "card_type", string(data.CardType))
	return nil
}

func (s *Service) completeLightning(ctx context.Context, call *stepCall) error {
	in, err := inputAs[LightningInput](models.StepLightning, call.input)
	if err != nil {
		return err
	}
	p := call.participant

	var password []byte
	if in.Mode == models.WalletExternal {
		if password, err = s.password(p.ID); err != nil {
			return err
		}
		defer secretcodec.Wipe(password)
	}
	cfg, err := s.wallets.Provision(ctx, p, in.Request, password)
	if err != nil {
		return err
	}
	p.Wallet = &cfg
	s.logAudit(ctx, call.sess, p, audit.EventWalletProvisioned, "setup_mode", string(cfg.Mode))
	return nil
}

func (s *Service) completeKeet(ctx context.Context, call *stepCall) error {
	if _, err := inputAs[KeetInput](models.StepKeet, call.input); err != nil {
		return err
	}
	p := call.participant
	if p.EncryptedKeetSeed != "" {
		return nil
	}
	password, err := s.password(p.ID)
	if err != nil {
		return err
	}
	defer secretcodec.Wipe(password)

	seed, err := secrets.GenerateKeetSeed()
	if err != nil {
		return err
	}
	defer secretcodec.Wipe(seed)
	if err := secrets.ValidateKeetSeed(seed); err != nil {
		return err
	}
	sealed, err := secretcodec.SealWithPassword(seed, password)
	if err != nil {
		return err
	}
	p.EncryptedKeetSeed, p.KeetSeedSalt = sealed.Ciphertext, sealed.Salt
	return nil
}

func (s *Service) completeBackup(ctx context.Context, call *stepCall) error {
	in, err := inputAs[BackupInput](models.StepBackup, call.input)
	if err != nil {
		return err
	}
	if !in.Acknowledged {
		return dErrors.New(dErrors.CodeValidation, "confirm that the secrets have been backed up")
	}
	p := call.participant
	s.wipeDisplay(ctx, call.sess, p, secrets.ReasonConfirmed)
	s.passwords.Wipe(p.ID)
	p.BackupAcknowledged = true
	return nil
}

func (s *Service) completeAttestation(ctx context.Context, call *stepCall) error {
	in, err := inputAs[AttestationInput](models.StepAttestation, call.input)
	if err != nil {
		return err
	}
	p := call.participant
	sess := call.sess

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	run := s.runs.start(sess.ID, p.ID, cancel)
	defer s.runs.finish(sess.ID)

	subject := attestation.Subject{
		SessionID:     sess.ID,
		ParticipantID: p.ID,
		UserID:        p.UserID,
		FederationID:  p.FederationID,
		Role:          p.Role,
		Npub:          p.Npub,
		Nip05:         p.Nip05,
		Metadata:      sess.Metadata,
	}
	outcome, err := s.attestor.Run(runCtx, subject, p.AttestationAttempts, func(progress models.AttestationProgress) {
		run.set(progress)
		if in.OnProgress != nil {
			in.OnProgress(progress)
		}
	})
	if dErrors.HasCode(err, dErrors.CodeManualIntervention) || dErrors.HasCode(err, dErrors.CodeValidation) {
		return err
	}
	if runCtx.Err() != nil && ctx.Err() == nil {
		return dErrors.New(dErrors.CodeInvalidState, "attestation was aborted")
	}

	p.AttestationAttempts = outcome.Attempt
	p.ApplyAttestation(outcome.Progress, outcome.Result, requestcontext.Now(ctx))
	if err != nil {
		call.persistOnError = true
		s.logAudit(ctx, sess, p, audit.EventAttestationFailed,
			"attempt", fmt.Sprint(outcome.Attempt),
			"reason", dErrors.UserMessage(err))
		return err
	}
	if !outcome.Progress.IsComplete() {
		call.persistOnError = true
		return dErrors.New(dErrors.CodeFatalAttestation, "attestation did not complete")
	}
	s.logAudit(ctx, sess, p, audit.EventAttestationSucceeded,
		"attempt", fmt.Sprint(outcome.Attempt),
		"nip03_event_id", outcome.Result.NIP03EventID)
	return nil
}

func (s *Service) completeFinal(ctx context.Context, call *stepCall) error {
	if _, err := inputAs[CompleteInput](models.StepComplete, call.input); err != nil {
		return err
	}
	p := call.participant
	if !p.Attestation.IsComplete() {
		return dErrors.New(dErrors.CodeInvalidState, "attestation is not complete")
	}
	s.wipeParticipant(ctx, call.sess, p, secrets.ReasonConfirmed)
	return nil
}
