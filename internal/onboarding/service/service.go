// Package service is the onboarding session controller. It is the only
// writer of session state: every operation loads the session, checks the
// model's Can* rule, applies the change and saves it back while holding the
// session's lock.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SessionStore,CardRegistrar,WalletProvisioner,SummaryPublisher,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"satnam/internal/onboarding/attestation"
	"satnam/internal/onboarding/metrics"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/wallet"
	"satnam/internal/relay"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/audit"
	"satnam/pkg/platform/sentinel"
	"satnam/pkg/requestcontext"
)

// ErrPasswordRequired means the participant's password was wiped or lost
// to a restart. ProvidePassword restores it.
var ErrPasswordRequired = dErrors.New(dErrors.CodeInvalidState, "the participant's password is no longer in memory; enter it again")

const defaultPlatformDomain = "satnam.pub"

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	ListResumable(ctx context.Context, coordinator id.UserID) ([]*models.Session, error)
}

type CardRegistrar interface {
	Register(ctx context.Context, participant id.ParticipantID, cardType models.CardType, pin, confirm []byte) (models.NFCCardData, error)
}

type WalletProvisioner interface {
	Provision(ctx context.Context, participant *models.ParticipantRecord, req wallet.Request, password []byte) (models.LightningWalletConfig, error)
}

type Attestor interface {
	Run(ctx context.Context, subj attestation.Subject, priorAttempts int, onProgress attestation.ProgressFunc) (attestation.Outcome, error)
	MaxAttempts() int
}

type SecretDisplay interface {
	Reveal(ctx context.Context, pid id.ParticipantID, sealed secrets.Sealed, password []byte) (*secrets.Display, error)
	Wipe(ctx context.Context, pid id.ParticipantID, reason string) bool
	WipeAll(ctx context.Context, reason string)
}

type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s relay.Summary) (relay.Result, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service drives onboarding sessions.
type Service struct {
	sessions    SessionStore
	cards       CardRegistrar
	wallets     WalletProvisioner
	attestor    Attestor
	display     SecretDisplay
	summaries   SummaryPublisher
	audit       AuditPublisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	domain      string
	lifetime    time.Duration
	scheduler   secrets.Scheduler
	passwords   *secrets.Vault
	pendingKeys *secrets.Vault
	holders     secretHolders
	locks       sessionLocks
	runs        attestationRuns
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithSummaryPublisher announces completed sessions on Nostr relays.
func WithSummaryPublisher(p SummaryPublisher) Option {
	return func(s *Service) {
		s.summaries = p
	}
}

// WithPlatformDomain sets the domain used for NIP-05 identifiers.
func WithPlatformDomain(domain string) Option {
	return func(s *Service) {
		if domain != "" {
			s.domain = domain
		}
	}
}

// WithSecretLifetime bounds how long a password or a freshly generated key
// stays in memory before it is wiped and must be entered again.
func WithSecretLifetime(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lifetime = d
		}
	}
}

func WithSecretScheduler(sch secrets.Scheduler) Option {
	return func(s *Service) {
		s.scheduler = sch
	}
}

// New constructs a Service.
func New(sessions SessionStore, cards CardRegistrar, wallets WalletProvisioner, attestor Attestor, display SecretDisplay, opts ...Option) *Service {
	s := &Service{
		sessions: sessions,
		cards:    cards,
		wallets:  wallets,
		attestor: attestor,
		display:  display,
		logger:   slog.Default(),
		domain:   defaultPlatformDomain,
		lifetime: secrets.DefaultDisplayWindow,
		holders:  secretHolders{bySession: map[id.SessionID]map[id.ParticipantID]struct{}{}},
		locks:    sessionLocks{locks: map[id.SessionID]*sync.Mutex{}},
		runs:     attestationRuns{runs: map[id.SessionID]*attestationRun{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	vaultOpts := []secrets.VaultOption{secrets.WithLifetime(s.lifetime), secrets.WithVaultScheduler(s.scheduler)}
	s.passwords = secrets.NewVault(vaultOpts...)
	s.pendingKeys = secrets.NewVault(vaultOpts...)
	return s
}

// Shutdown wipes every in-memory secret the service holds.
func (s *Service) Shutdown(ctx context.Context) {
	s.runs.cancelAll()
	if s.display != nil {
		s.display.WipeAll(ctx, secrets.ReasonShutdown)
	}
	s.passwords.WipeAll()
	s.pendingKeys.WipeAll()
	s.logger.InfoContext(ctx, "onboarding service secrets wiped")
}

// withSession loads the session under its lock, runs fn and saves the
// session when fn succeeds.
func (s *Service) withSession(ctx context.Context, sessionID id.SessionID, fn func(sess *models.Session) error) (models.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return models.Session{}, err
	}
	if err := fn(sess); err != nil {
		return models.Session{}, err
	}
	if err := s.save(ctx, sess); err != nil {
		return models.Session{}, err
	}
	return sess.Snapshot(), nil
}

func (s *Service) load(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *models.Session) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "session was finished elsewhere")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}
	return nil
}

// scoped tags ctx with the session so backend calls carry it in their token.
func scoped(ctx context.Context, sess *models.Session) context.Context {
	ctx = requestcontext.WithSessionID(ctx, sess.ID)
	if requestcontext.CoordinatorID(ctx).IsNil() {
		ctx = requestcontext.WithCoordinatorID(ctx, sess.CoordinatorUserID)
	}
	return ctx
}

func currentParticipant(sess *models.Session) (*models.ParticipantRecord, error) {
	p := sess.Current()
	if p == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "session has no participants yet")
	}
	return p, nil
}

// password returns a copy of pid's password. The caller wipes it.
func (s *Service) password(pid id.ParticipantID) ([]byte, error) {
	pw, ok := s.passwords.Get(pid)
	if !ok {
		return nil, ErrPasswordRequired
	}
	return pw, nil
}

// hold stores secret for pid in v and remembers that the session owns it.
func (s *Service) hold(v *secrets.Vault, sessionID id.SessionID, pid id.ParticipantID, secret []byte) {
	s.holders.add(sessionID, pid)
	v.Put(pid, secret)
}

// wipeSession drops every in-memory secret held for the session's
// participants without loading the session.
func (s *Service) wipeSession(ctx context.Context, sessionID id.SessionID, reason string) {
	for _, pid := range s.holders.take(sessionID) {
		s.passwords.Wipe(pid)
		s.pendingKeys.Wipe(pid)
		if s.display != nil {
			s.display.Wipe(ctx, pid, reason)
		}
	}
}

// wipeParticipant drops every in-memory secret held for p.
func (s *Service) wipeParticipant(ctx context.Context, sess *models.Session, p *models.ParticipantRecord, reason string) {
	s.wipeDisplay(ctx, sess, p, reason)
	s.passwords.Wipe(p.ID)
	s.pendingKeys.Wipe(p.ID)
}

func (s *Service) wipeDisplay(ctx context.Context, sess *models.Session, p *models.ParticipantRecord, reason string) {
	if s.display != nil && s.display.Wipe(ctx, p.ID, reason) {
		s.logAudit(ctx, sess, p, audit.EventSecretsWiped, "reason", reason)
	}
}

func (s *Service) logAudit(ctx context.Context, sess *models.Session, p *models.ParticipantRecord, event audit.AuditEvent, attributes ...string) {
	args := []any{
		"event", string(event),
		"log_type", "audit",
		"session_id", sess.ID.String(),
	}
	var pid id.ParticipantID
	if p != nil {
		pid = p.ID
		args = append(args, "participant_id", p.ID.String())
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	attrMap := map[string]string{}
	for i := 0; i+1 < len(attributes); i += 2 {
		args = append(args, attributes[i], attributes[i+1])
		attrMap[attributes[i]] = attributes[i+1]
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.audit == nil {
		return
	}
	ev := audit.Event{
		SessionID:     sess.ID,
		ParticipantID: pid,
		CoordinatorID: sess.CoordinatorUserID,
		Action:        string(event),
		Reason:        attrMap["reason"],
		RequestID:     requestID,
		Timestamp:     requestcontext.Now(ctx),
	}
	delete(attrMap, "reason")
	if len(attrMap) > 0 {
		ev.Attributes = attrMap
	}
	if err := s.audit.Emit(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

// sessionLocks serializes operations per session.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[id.SessionID]*sync.Mutex
}

func (l *sessionLocks) lock(sessionID id.SessionID) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// secretHolders indexes participants with secrets in memory by session.
type secretHolders struct {
	mu        sync.Mutex
	bySession map[id.SessionID]map[id.ParticipantID]struct{}
}

func (h *secretHolders) add(sessionID id.SessionID, pid id.ParticipantID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pids, ok := h.bySession[sessionID]
	if !ok {
		pids = map[id.ParticipantID]struct{}{}
		h.bySession[sessionID] = pids
	}
	pids[pid] = struct{}{}
}

// take returns and forgets the session's participants.
func (h *secretHolders) take(sessionID id.SessionID) []id.ParticipantID {
	h.mu.Lock()
	defer h.mu.Unlock()
	pids := make([]id.ParticipantID, 0, len(h.bySession[sessionID]))
	for pid := range h.bySession[sessionID] {
		pids = append(pids, pid)
	}
	delete(h.bySession, sessionID)
	return pids
}
