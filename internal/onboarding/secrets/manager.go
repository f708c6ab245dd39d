// Package secrets keeps decrypted secrets in wipeable memory for the short
// window a coordinator needs to copy them onto paper.
//
// Nothing in this package persists or logs plaintext. Every reveal is bound
// to a cancellable timer; expiry, confirmation, cancellation and navigation
// all end in the same wipe path.
package secrets

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"satnam/internal/onboarding/metrics"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

// DefaultDisplayWindow is how long revealed secrets stay readable.
const DefaultDisplayWindow = 300 * time.Second

// Wipe reasons recorded in logs and metrics.
const (
	ReasonExpired    = "expired"
	ReasonConfirmed  = "confirmed"
	ReasonCancelled  = "cancelled"
	ReasonNavigation = "navigation"
	ReasonReplaced   = "replaced"
	ReasonShutdown   = "shutdown"
)

// Timer is a cancellable scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Tests substitute a manual scheduler.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Sealed is the persisted ciphertext for the secrets to reveal.
type Sealed struct {
	Nsec     secretcodec.Sealed
	KeetSeed secretcodec.Sealed
}

// Display is one reveal window. Reads after the window closes return empty.
type Display struct {
	participant id.ParticipantID
	nsec        *Buffer
	keetSeed    *Buffer
	expiresAt   time.Time
	clock       func() time.Time

	mu     sync.Mutex
	timer  Timer
	closed chan struct{}
	reason string
}

// Nsec returns a copy of the revealed nsec, empty once wiped.
func (d *Display) Nsec() []byte { return d.nsec.Read() }

// KeetSeed returns a copy of the revealed seed phrase, empty once wiped.
func (d *Display) KeetSeed() []byte { return d.keetSeed.Read() }

// ExpiresAt is when the window closes on its own.
func (d *Display) ExpiresAt() time.Time { return d.expiresAt }

// Remaining is the time left in the window, 0 once wiped.
func (d *Display) Remaining() time.Duration {
	if d.Wiped() {
		return 0
	}
	left := d.expiresAt.Sub(d.clock())
	if left < 0 {
		return 0
	}
	return left
}

// Wiped reports whether the window has closed.
func (d *Display) Wiped() bool {
	select {
	case <-d.closed:
		return true
	default:
		return false
	}
}

// Done is closed when the secrets are wiped.
func (d *Display) Done() <-chan struct{} { return d.closed }

// WipeReason is why the window closed, empty while open.
func (d *Display) WipeReason() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reason
}

// Countdown emits Remaining every tick until the window closes or ctx ends.
func (d *Display) Countdown(ctx context.Context, tick time.Duration) <-chan time.Duration {
	out := make(chan time.Duration, 1)
	go func() {
		defer close(out)
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case out <- d.Remaining():
			default:
			}
			select {
			case <-ctx.Done():
				return
			case <-d.closed:
				return
			case <-t.C:
			}
		}
	}()
	return out
}

// wipe closes the window once. Returns false if it was already closed.
func (d *Display) wipe(reason string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reason != "" {
		return false
	}
	d.reason = reason
	if d.timer != nil {
		d.timer.Stop()
	}
	d.nsec.Wipe()
	d.keetSeed.Wipe()
	close(d.closed)
	return true
}

// Manager owns every open reveal window, at most one per participant.
type Manager struct {
	scheduler Scheduler
	window    time.Duration
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	displays map[id.ParticipantID]*Display
}

type Option func(*Manager)

func WithScheduler(s Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

func WithWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager constructs a Manager with a 300-second window.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		scheduler: realScheduler{},
		window:    DefaultDisplayWindow,
		clock:     time.Now,
		logger:    slog.Default(),
		displays:  make(map[id.ParticipantID]*Display),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reveal decrypts the sealed nsec and Keet seed with password and opens a
// display window. Any previous window for pid is wiped first. Decryption
// failures are reported without saying which secret or why.
func (m *Manager) Reveal(ctx context.Context, pid id.ParticipantID, sealed Sealed, password []byte) (*Display, error) {
	m.Wipe(ctx, pid, ReasonReplaced)

	nsec, err := secretcodec.OpenWithPassword(sealed.Nsec, password)
	if err != nil {
		return nil, secretcodec.ErrDecrypt
	}
	seed, err := secretcodec.OpenWithPassword(sealed.KeetSeed, password)
	if err != nil {
		secretcodec.Wipe(nsec)
		return nil, secretcodec.ErrDecrypt
	}

	d := &Display{
		participant: pid,
		nsec:        NewBuffer(nsec),
		keetSeed:    NewBuffer(seed),
		expiresAt:   m.clock().Add(m.window),
		clock:       m.clock,
		closed:      make(chan struct{}),
	}

	m.mu.Lock()
	m.displays[pid] = d
	m.mu.Unlock()

	timer := m.scheduler.AfterFunc(m.window, func() {
		m.close(context.Background(), d, ReasonExpired)
	})
	d.mu.Lock()
	if d.reason == "" {
		d.timer = timer
	} else {
		timer.Stop()
	}
	d.mu.Unlock()

	m.logger.InfoContext(ctx, "secrets revealed for backup",
		"participant_id", pid.String(),
		"expires_at", d.expiresAt,
	)
	return d, nil
}

// Current returns pid's open window, if any.
func (m *Manager) Current(pid id.ParticipantID) (*Display, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.displays[pid]
	return d, ok
}

// Confirm records that the coordinator copied the secrets and wipes them.
func (m *Manager) Confirm(ctx context.Context, pid id.ParticipantID) error {
	if !m.Wipe(ctx, pid, ReasonConfirmed) {
		return dErrors.New(dErrors.CodeInvalidState, "no secrets are currently revealed")
	}
	return nil
}

// Wipe closes pid's window. Returns false when none was open.
func (m *Manager) Wipe(ctx context.Context, pid id.ParticipantID, reason string) bool {
	m.mu.Lock()
	d, ok := m.displays[pid]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return m.close(ctx, d, reason)
}

// close wipes d and forgets it if it is still pid's current window.
func (m *Manager) close(ctx context.Context, d *Display, reason string) bool {
	m.mu.Lock()
	if m.displays[d.participant] == d {
		delete(m.displays, d.participant)
	}
	m.mu.Unlock()
	if !d.wipe(reason) {
		return false
	}
	m.logger.InfoContext(ctx, "revealed secrets wiped",
		"participant_id", d.participant.String(),
		"reason", reason,
	)
	if m.metrics != nil {
		m.metrics.IncrementSecretsWiped(reason)
	}
	return true
}

// WipeAll closes every window.
func (m *Manager) WipeAll(ctx context.Context, reason string) {
	m.mu.Lock()
	pids := make([]id.ParticipantID, 0, len(m.displays))
	for pid := range m.displays {
		pids = append(pids, pid)
	}
	m.mu.Unlock()
	for _, pid := range pids {
		m.Wipe(ctx, pid, reason)
	}
}

// Template is a blank, secret-free sheet for recording a backup by hand.
func Template(participantName string) string {
	var b strings.Builder
	b.WriteString("IDENTITY BACKUP\n")
	b.WriteString("Participant: ")
	if participantName != "" {
		b.WriteString(participantName)
	} else {
		b.WriteString("______________________________")
	}
	b.WriteString("\nDate: ____________________\n\n")
	b.WriteString("Nostr private key (nsec):\n")
	b.WriteString("nsec1 ______________________________________________________________\n\n")
	b.WriteString("Keet seed phrase:\n")
	for i := 1; i <= 24; i += 2 {
		b.WriteString(padSlot(i) + "  " + padSlot(i+1) + "\n")
	}
	b.WriteString("\nStore this sheet offline. Never photograph it.\n")
	return b.String()
}

func padSlot(n int) string {
	num := []byte{' ', ' '}
	if n >= 10 {
		num[0] = byte('0' + n/10)
	}
	num[1] = byte('0' + n%10)
	return string(num) + ". ____________________"
}

func wipe(b []byte) {
	secretcodec.Wipe(b)
}
