package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"satnam/internal/onboarding/attestation"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/wallet"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

// Controller is the onboarding surface the wizard drives.
type Controller interface {
	StartSession(ctx context.Context, coordinator id.UserID, mode models.Mode, metadata map[string]string) (models.Session, error)
	AddParticipant(ctx context.Context, sessionID id.SessionID, in models.Intake) (models.Session, error)
	CompleteStep(ctx context.Context, sessionID id.SessionID, step models.StepID, input any) (models.Session, error)
	PreviousStep(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	NextParticipant(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	PreviousParticipant(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	PauseSession(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	ResumeSession(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	CancelSession(ctx context.Context, sessionID id.SessionID, confirm bool) (models.Session, error)
	CompleteSession(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	Snapshot(ctx context.Context, sessionID id.SessionID) (models.Session, error)
	ProvidePassword(ctx context.Context, sessionID id.SessionID, password []byte) error
	RevealSecrets(ctx context.Context, sessionID id.SessionID) (*secrets.Display, error)
	BackupTemplate(ctx context.Context, sessionID id.SessionID) (string, error)
}

// Commands typed at any text prompt.
const (
	cmdBack     = ":back"
	cmdPause    = ":pause"
	cmdCancel   = ":cancel"
	cmdNext     = ":next"
	cmdPrevious = ":prev"
)

var cardTypes = []models.CardType{models.CardNTAG424, models.CardBoltcard, models.CardTapsigner}

// Wizard walks a coordinator through a session, one step per screen.
type Wizard struct {
	svc         Controller
	con         *Console
	logger      *slog.Logger
	coordinator id.UserID
	tick        time.Duration
	metadata    map[string]string
}

type WizardOption func(*Wizard)

func WithWizardLogger(logger *slog.Logger) WizardOption {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithCountdownTick sets how often the backup screen reports the time left.
func WithCountdownTick(d time.Duration) WizardOption {
	return func(w *Wizard) {
		if d > 0 {
			w.tick = d
		}
	}
}

// WithSessionMetadata attaches metadata to sessions the wizard starts.
func WithSessionMetadata(md map[string]string) WizardOption {
	return func(w *Wizard) {
		w.metadata = md
	}
}

func NewWizard(svc Controller, con *Console, coordinator id.UserID, opts ...WizardOption) *Wizard {
	w := &Wizard{
		svc:         svc,
		con:         con,
		logger:      slog.Default(),
		coordinator: coordinator,
		tick:        30 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	con.Escapes(cmdBack, cmdPause, cmdCancel, cmdNext, cmdPrevious)
	return w
}

// Start opens a new session and runs it until it completes, is cancelled or
// is paused.
func (w *Wizard) Start(ctx context.Context, mode models.Mode) (id.SessionID, error) {
	sess, err := w.svc.StartSession(ctx, w.coordinator, mode, w.metadata)
	if err != nil {
		return id.SessionID{}, err
	}
	w.con.Success("Session %s started in %s mode", sess.ID, mode)
	w.con.Info("Type %s, %s or %s at any prompt. In batch mode %s and %s move between participants.",
		cmdBack, cmdPause, cmdCancel, cmdNext, cmdPrevious)
	return sess.ID, w.drive(ctx, sess.ID)
}

// Resume continues a paused or interrupted session.
func (w *Wizard) Resume(ctx context.Context, sessionID id.SessionID) error {
	sess, err := w.svc.Snapshot(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.CoordinatorUserID != w.coordinator {
		return dErrors.New(dErrors.CodeForbidden, "session belongs to another coordinator")
	}
	if sess.Status == models.SessionPaused {
		if _, err := w.svc.ResumeSession(ctx, sessionID); err != nil {
			return err
		}
	}
	w.con.Success("Resuming session %s", sessionID)
	return w.drive(ctx, sessionID)
}

func (w *Wizard) drive(ctx context.Context, sid id.SessionID) error {
	for {
		sess, err := w.svc.Snapshot(ctx, sid)
		if err != nil {
			return err
		}
		switch sess.Status {
		case models.SessionCompleted:
			w.con.Success("Session complete: %d participant(s) onboarded", len(sess.Participants))
			return nil
		case models.SessionCancelled:
			w.con.Warn("Session cancelled; every secret has been wiped")
			return nil
		case models.SessionPaused:
			w.con.Info("Session paused. Continue later with: onboard resume %s", sid)
			return nil
		}

		p := sess.Current()
		if p != nil && p.Progress.CompletedSteps.Has(models.StepComplete) {
			err = w.afterParticipant(ctx, sess)
		} else {
			err = w.step(ctx, sess)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.recover(ctx, sid, err); err != nil {
			return err
		}
	}
}

func (w *Wizard) step(ctx context.Context, sess models.Session) error {
	step := sess.CurrentStep()
	p := sess.Current()
	if p != nil {
		pos := ""
		if sess.Mode == models.ModeBatch {
			pos = fmt.Sprintf(" (%d of %d)", sess.Cursor+1, len(sess.Participants))
		}
		w.con.Title("%s%s: %s", p.TrueName, pos, step)
	} else {
		w.con.Title("%s", step)
	}

	switch step {
	case models.StepIntake:
		return w.intake(ctx, sess)
	case models.StepIdentity:
		return w.identity(ctx, sess.ID, p)
	case models.StepPassword:
		return w.password(ctx, sess.ID)
	case models.StepMigration:
		return w.migration(ctx, sess.ID)
	case models.StepNFC:
		return w.card(ctx, sess.ID)
	case models.StepLightning:
		return w.lightning(ctx, sess.ID, p)
	case models.StepKeet:
		_, stop := w.con.Spin("Generating Keet seed")
		_, err := w.svc.CompleteStep(ctx, sess.ID, models.StepKeet, service.KeetInput{})
		stop()
		if err == nil {
			w.con.Success("Keet seed generated and sealed")
		}
		return err
	case models.StepBackup:
		return w.backup(ctx, sess.ID)
	case models.StepAttestation:
		return w.attest(ctx, sess.ID)
	case models.StepComplete:
		if _, err := w.svc.CompleteStep(ctx, sess.ID, models.StepComplete, service.CompleteInput{}); err != nil {
			return err
		}
		w.con.Success("%s is onboarded", p.TrueName)
		return nil
	}
	return dErrors.New(dErrors.CodeInternal, "unknown step "+string(step))
}

func (w *Wizard) askIntake(ctx context.Context, current *models.ParticipantRecord) (models.Intake, error) {
	var in models.Intake
	var def models.Intake
	if current != nil {
		def = models.Intake{
			TrueName:             current.TrueName,
			DisplayName:          current.DisplayName,
			Role:                 current.Role,
			FederationID:         current.FederationID,
			ExistingNostrAccount: current.ExistingNostrAccount,
		}
	}
	var err error
	if in.TrueName, err = w.con.Ask(ctx, "Participant's true name", def.TrueName); err != nil {
		return in, err
	}
	if in.DisplayName, err = w.con.Ask(ctx, "Display name (optional)", def.DisplayName); err != nil {
		return in, err
	}
	role := def.Role
	if role == "" {
		role = "adult"
	}
	if in.Role, err = w.con.Ask(ctx, "Role", role); err != nil {
		return in, err
	}
	fedDef := ""
	if !def.FederationID.IsNil() {
		fedDef = def.FederationID.String()
	}
	fed, err := w.con.Ask(ctx, "Federation ID (optional)", fedDef)
	if err != nil {
		return in, err
	}
	if fed != "" {
		if in.FederationID, err = id.ParseFederationID(fed); err != nil {
			return in, dErrors.New(dErrors.CodeValidation, "federation id must be a UUID")
		}
	}
	in.ExistingNostrAccount, err = w.con.Confirm(ctx, "Do they already have a Nostr account?", def.ExistingNostrAccount)
	return in, err
}

func (w *Wizard) intake(ctx context.Context, sess models.Session) error {
	in, err := w.askIntake(ctx, sess.Current())
	if err != nil {
		return err
	}
	_, err = w.svc.CompleteStep(ctx, sess.ID, models.StepIntake, service.IntakeInput{Intake: in})
	return err
}

func (w *Wizard) identity(ctx context.Context, sid id.SessionID, p *models.ParticipantRecord) error {
	var in service.IdentityInput
	var err error
	if p.ExistingNostrAccount {
		if in.Npub, err = w.con.Ask(ctx, "Their npub", p.Npub); err != nil {
			return err
		}
		if in.Nip05, err = w.con.Ask(ctx, "Their NIP-05 address (optional)", p.Nip05); err != nil {
			return err
		}
	} else {
		if in.Username, err = w.con.Ask(ctx, "Username (leave empty to derive from the name)", ""); err != nil {
			return err
		}
	}
	sess, err := w.svc.CompleteStep(ctx, sid, models.StepIdentity, in)
	if err != nil {
		return err
	}
	if cur := sess.Current(); cur != nil && cur.Nip05 != "" {
		w.con.Success("Identity %s", cur.Nip05)
	}
	return nil
}

func (w *Wizard) password(ctx context.Context, sid id.SessionID) error {
	w.con.Info("The participant chooses a password (8 to 128 characters). It encrypts their keys.")
	pw, err := w.con.Secret(ctx, "Password")
	if err != nil {
		return err
	}
	confirm, err := w.con.Secret(ctx, "Confirm password")
	if err != nil {
		secretcodec.Wipe(pw)
		return err
	}
	_, err = w.svc.CompleteStep(ctx, sid, models.StepPassword, service.PasswordInput{Password: pw, Confirm: confirm})
	if err == nil {
		w.con.Success("Keys generated and sealed")
	}
	return err
}

func (w *Wizard) migration(ctx context.Context, sid id.SessionID) error {
	w.con.Info("Their existing nsec is sealed with the password and never stored in the clear.")
	nsec, err := w.con.Secret(ctx, "Existing nsec")
	if err != nil {
		return err
	}
	_, err = w.svc.CompleteStep(ctx, sid, models.StepMigration, service.MigrationInput{Nsec: nsec})
	if err == nil {
		w.con.Success("Existing key imported")
	}
	return err
}

func (w *Wizard) card(ctx context.Context, sid id.SessionID) error {
	names := make([]string, len(cardTypes))
	for i, ct := range cardTypes {
		names[i] = string(ct)
	}
	idx, err := w.con.Choose(ctx, "Card type", names)
	if err != nil {
		return err
	}
	in := service.CardInput{CardType: cardTypes[idx]}
	if in.CardType.RequiresPIN() {
		if in.PIN, err = w.con.Secret(ctx, "Card PIN (6 digits)"); err != nil {
			return err
		}
		if in.ConfirmPIN, err = w.con.Secret(ctx, "Confirm PIN"); err != nil {
			secretcodec.Wipe(in.PIN)
			return err
		}
	}
	w.con.Info("Tap the card on the reader now.")
	if _, err := w.svc.CompleteStep(ctx, sid, models.StepNFC, in); err != nil {
		return err
	}
	w.con.Success("%s card bound", in.CardType)
	return nil
}

func (w *Wizard) lightning(ctx context.Context, sid id.SessionID, p *models.ParticipantRecord) error {
	idx, err := w.con.Choose(ctx, "Lightning wallet", []string{
		"Create a hosted wallet for " + p.NameForAddress(),
		"Connect an existing wallet over Nostr Wallet Connect",
	})
	if err != nil {
		return err
	}
	req := wallet.Request{Mode: models.WalletAuto}
	if idx == 1 {
		req.Mode = models.WalletExternal
		if req.NWCConnectionString, err = w.con.Secret(ctx, "NWC connection string"); err != nil {
			return err
		}
	}
	scrub, err := w.con.Confirm(ctx, "Forward a share of incoming payments to another address?", false)
	if err != nil {
		secretcodec.Wipe(req.NWCConnectionString)
		return err
	}
	if scrub {
		req.ScrubEnabled = true
		if req.ExternalLightningAddress, err = w.con.Ask(ctx, "Forwarding Lightning address", ""); err != nil {
			secretcodec.Wipe(req.NWCConnectionString)
			return err
		}
		pct, err := w.con.Ask(ctx, "Percent to forward (1-100)", "100")
		if err != nil {
			secretcodec.Wipe(req.NWCConnectionString)
			return err
		}
		if req.ScrubPercent, err = strconv.Atoi(pct); err != nil {
			secretcodec.Wipe(req.NWCConnectionString)
			return dErrors.New(dErrors.CodeValidation, "percent must be a number")
		}
	}
	sess, err := w.svc.CompleteStep(ctx, sid, models.StepLightning, service.LightningInput{Request: req})
	if err != nil {
		return err
	}
	if cur := sess.Current(); cur != nil && cur.Wallet != nil && cur.Wallet.LightningAddress != "" {
		w.con.Success("Lightning address %s", cur.Wallet.LightningAddress)
	} else {
		w.con.Success("Wallet connected")
	}
	return nil
}

func (w *Wizard) backup(ctx context.Context, sid id.SessionID) error {
	if sheet, err := w.svc.BackupTemplate(ctx, sid); err == nil {
		w.con.Info("Hand the participant a backup sheet:\n\n%s", sheet)
	}
	for {
		display, err := w.svc.RevealSecrets(ctx, sid)
		if err != nil {
			return err
		}
		w.showSecrets(display)

		cdCtx, stop := context.WithCancel(ctx)
		go func() {
			for remaining := range display.Countdown(cdCtx, w.tick) {
				if remaining > 0 {
					w.con.Info("  secrets hide in %s", remaining.Round(time.Second))
				}
			}
			if display.Wiped() && cdCtx.Err() == nil {
				w.con.Warn("Secrets hidden. Answer n to show them again.")
			}
		}()
		ok, err := w.con.Confirm(ctx, "Has the participant written down the nsec and every seed word?", false)
		stop()
		if err != nil {
			return err
		}
		if ok {
			_, err := w.svc.CompleteStep(ctx, sid, models.StepBackup, service.BackupInput{Acknowledged: true})
			if err == nil {
				w.con.Success("Backup confirmed; secrets wiped from memory")
			}
			return err
		}
	}
}

func (w *Wizard) showSecrets(d *secrets.Display) {
	w.con.Warn("Write these down now. They are shown for %s.", d.Remaining().Round(time.Second))
	nsec := d.Nsec()
	w.con.Info("\nnsec:\n  %s\n", nsec)
	secretcodec.Wipe(nsec)

	seed := d.KeetSeed()
	words := strings.Fields(string(seed))
	secretcodec.Wipe(seed)
	w.con.Info("Keet seed:")
	for i := 0; i < len(words); i += 2 {
		line := fmt.Sprintf("  %2d. %-12s", i+1, words[i])
		if i+1 < len(words) {
			line += fmt.Sprintf("  %2d. %s", i+2, words[i+1])
		}
		w.con.Info("%s", line)
	}
	w.con.Info("")
}

func (w *Wizard) attest(ctx context.Context, sid id.SessionID) error {
	s, stop := w.con.Spin("Attesting identity")
	var onProgress attestation.ProgressFunc = func(p models.AttestationProgress) {
		s.Lock()
		s.Suffix = " " + progressLine(p)
		s.Unlock()
	}
	sess, err := w.svc.CompleteStep(ctx, sid, models.StepAttestation, service.AttestationInput{OnProgress: onProgress})
	stop()
	if err != nil {
		if snap, snapErr := w.svc.Snapshot(ctx, sid); snapErr == nil && snap.Current() != nil {
			w.con.Info("%s", progressLine(snap.Current().Attestation))
		}
		return err
	}
	if p := sess.Current(); p != nil {
		w.con.Success("Attested: %s", progressLine(p.Attestation))
		if p.NIP03EventID != "" {
			w.con.Info("  NIP-03 event %s", p.NIP03EventID)
		}
	}
	return nil
}

func progressLine(p models.AttestationProgress) string {
	phases := []models.Phase{models.PhaseOTS, models.PhaseNIP03, models.PhaseFederation, models.PhasePublish}
	parts := make([]string, len(phases))
	for i, ph := range phases {
		parts[i] = string(ph) + " " + phaseMark(p.Get(ph))
	}
	return strings.Join(parts, "  ")
}

func phaseMark(s models.PhaseStatus) string {
	switch s {
	case models.PhaseSuccess:
		return "ok"
	case models.PhaseFailed:
		return "failed"
	case models.PhaseSkipped:
		return "skipped"
	case models.PhaseInProgress:
		return "..."
	}
	return "-"
}

// afterParticipant runs once the current participant is onboarded.
func (w *Wizard) afterParticipant(ctx context.Context, sess models.Session) error {
	if sess.Mode == models.ModeSingle {
		_, err := w.svc.CompleteSession(ctx, sess.ID)
		return err
	}

	options := []string{"Add another participant", "Finish the session"}
	hasNext := sess.Cursor < len(sess.Participants)-1
	if hasNext {
		options = append(options, "Go to the next participant")
	}
	idx, err := w.con.Choose(ctx, "What next?", options)
	if err != nil {
		return err
	}
	switch idx {
	case 0:
		w.con.Title("New participant")
		in, err := w.askIntake(ctx, nil)
		if err != nil {
			return err
		}
		added, err := w.svc.AddParticipant(ctx, sess.ID, in)
		if err != nil {
			return err
		}
		for i := sess.Cursor; i < len(added.Participants)-1; i++ {
			if _, err := w.svc.NextParticipant(ctx, sess.ID); err != nil {
				return err
			}
		}
		return nil
	case 1:
		_, err := w.svc.CompleteSession(ctx, sess.ID)
		return err
	default:
		_, err := w.svc.NextParticipant(ctx, sess.ID)
		return err
	}
}

// recover handles a failed step: commands, password re-entry, or the
// retry menu.
func (w *Wizard) recover(ctx context.Context, sid id.SessionID, err error) error {
	var esc Escape
	if errors.As(err, &esc) {
		return w.command(ctx, sid, esc.Command)
	}

	if errors.Is(err, service.ErrPasswordRequired) {
		w.con.Warn("%s", dErrors.UserMessage(err))
		pw, err := w.con.Secret(ctx, "Password")
		if err != nil {
			return err
		}
		if err := w.svc.ProvidePassword(ctx, sid, pw); err != nil {
			w.con.Error("%s", dErrors.UserMessage(err))
		}
		return nil
	}

	if !coded(err) {
		return err
	}

	w.logger.DebugContext(ctx, "step failed", "session_id", sid.String(), "error", err)
	w.con.Error("%s", dErrors.UserMessage(err))
	options := []string{"Retry", "Go back one step", "Pause the session", "Cancel the session"}
	if dErrors.HasCode(err, dErrors.CodeManualIntervention) {
		w.con.Warn("Attestation needs manual intervention. Pause the session and contact support.")
		options = []string{"Pause the session", "Cancel the session"}
	}
	idx, chooseErr := w.con.Choose(ctx, "How do you want to continue?", options)
	if chooseErr != nil {
		if errors.As(chooseErr, &esc) {
			return w.command(ctx, sid, esc.Command)
		}
		return chooseErr
	}
	switch options[idx] {
	case "Retry":
		return nil
	case "Go back one step":
		return w.command(ctx, sid, cmdBack)
	case "Pause the session":
		return w.command(ctx, sid, cmdPause)
	default:
		return w.command(ctx, sid, cmdCancel)
	}
}

func (w *Wizard) command(ctx context.Context, sid id.SessionID, cmd string) error {
	var err error
	switch cmd {
	case cmdBack:
		_, err = w.svc.PreviousStep(ctx, sid)
	case cmdNext:
		_, err = w.svc.NextParticipant(ctx, sid)
	case cmdPrevious:
		_, err = w.svc.PreviousParticipant(ctx, sid)
	case cmdPause:
		_, err = w.svc.PauseSession(ctx, sid)
	case cmdCancel:
		ok, confirmErr := w.con.Confirm(ctx, "Cancel the session? Every secret collected so far is wiped.", false)
		if confirmErr != nil {
			if errors.As(confirmErr, new(Escape)) {
				return nil
			}
			return confirmErr
		}
		if !ok {
			return nil
		}
		_, err = w.svc.CancelSession(ctx, sid, true)
	}
	if err != nil {
		// Navigation refusals are shown, not fatal.
		if coded(err) {
			w.con.Error("%s", dErrors.UserMessage(err))
			return nil
		}
		return err
	}
	return nil
}

// coded reports whether err carries a domain code. Anything else, such as
// closed input, ends the wizard.
func coded(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
