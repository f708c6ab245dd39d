// Package card binds an NFC card to a participant.
//
// A Registration moves idle -> scanning -> scanned|error. The raw UID read
// from the card is hashed and wiped before anything else sees it, and the
// PIN (for card types that use one) is hashed with a fresh salt before
// submission. Only NFCCardData ever leaves this package.
package card

//go:generate mockgen -source=card.go -destination=mocks/mocks.go -package=mocks Scanner,Client

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"satnam/internal/backend"
	"satnam/internal/onboarding/models"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/sentinel"
)

// DefaultScanTimeout bounds a single card read.
const DefaultScanTimeout = 15 * time.Second

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// Scanner reads the raw UID from the next presented card. Implementations
// must honour ctx cancellation.
type Scanner interface {
	Scan(ctx context.Context) ([]byte, error)
}

// Client submits card bindings to the backend.
type Client interface {
	RegisterCard(ctx context.Context, req backend.CardRegisterRequest) error
}

// State is a registration's position in the scan lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateScanned  State = "scanned"
	StateError    State = "error"
)

// Registration tracks one card being bound. It never holds the raw UID.
type Registration struct {
	mu       sync.Mutex
	cardType models.CardType
	state    State
	uidHash  string
	lastErr  error
}

// State returns the current lifecycle state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// CardType returns the card family chosen at Begin.
func (r *Registration) CardType() models.CardType {
	return r.cardType
}

// UIDHash returns the hashed card UID once scanned.
func (r *Registration) UIDHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uidHash
}

// Err returns the error that moved the registration into StateError.
func (r *Registration) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Registrar scans cards and submits bindings.
type Registrar struct {
	scanner Scanner
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Registrar)

func WithScanTimeout(d time.Duration) Option {
	return func(r *Registrar) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registrar) {
		r.logger = logger
	}
}

// New constructs a Registrar.
func New(scanner Scanner, client Client, opts ...Option) *Registrar {
	r := &Registrar{
		scanner: scanner,
		client:  client,
		timeout: DefaultScanTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin starts an idle registration for cardType.
func (r *Registrar) Begin(cardType models.CardType) (*Registration, error) {
	if !cardType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "card type must be ntag424, boltcard or tapsigner")
	}
	return &Registration{cardType: cardType, state: StateIdle}, nil
}

// Scan reads a card and keeps only the hash of its UID. A failed or
// repeated scan may be retried; a new read replaces the previous hash.
func (r *Registrar) Scan(ctx context.Context, reg *Registration) error {
	reg.mu.Lock()
	if reg.state == StateScanning {
		reg.mu.Unlock()
		return dErrors.New(dErrors.CodeInvalidState, "a scan is already in progress")
	}
	reg.state = StateScanning
	reg.lastErr = nil
	reg.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.scanner.Scan(ctx)
	if err == nil && len(raw) == 0 {
		err = dErrors.New(dErrors.CodeDevice, "card returned an empty UID")
	}
	if err != nil {
		secretcodec.Wipe(raw)
		err = classifyScanError(ctx, err)
		reg.mu.Lock()
		reg.state = StateError
		reg.lastErr = err
		reg.mu.Unlock()
		r.logger.WarnContext(ctx, "card scan failed", "card_type", reg.cardType, "error", err)
		return err
	}

	hash := secretcodec.HashCardUID(raw)
	secretcodec.Wipe(raw)

	reg.mu.Lock()
	reg.uidHash = hash
	reg.state = StateScanned
	reg.mu.Unlock()
	return nil
}

func classifyScanError(ctx context.Context, err error) error {
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, sentinel.ErrTimeout) {
		return dErrors.Wrap(sentinel.ErrTimeout, dErrors.CodeTimeout, "no card was presented before the scan timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeDevice, "could not read the card")
}

// ValidatePIN enforces a 6-digit numeric PIN entered identically twice.
func ValidatePIN(pin, confirm []byte) error {
	if len(pin) != 6 || !pinPattern.Match(pin) {
		return dErrors.New(dErrors.CodeValidation, "PIN must be exactly 6 digits")
	}
	if string(pin) != string(confirm) {
		return dErrors.New(dErrors.CodeValidation, "PIN and confirmation do not match")
	}
	return nil
}

// CanSubmit reports whether Submit would pass local validation.
func CanSubmit(reg *Registration, pin, confirm []byte) bool {
	if reg.State() != StateScanned {
		return false
	}
	if !reg.cardType.RequiresPIN() {
		return true
	}
	return ValidatePIN(pin, confirm) == nil
}

// Submit hashes the PIN (when the card type needs one) and registers the
// card. pin and confirm are wiped before Submit returns. Validation failures
// never reach the backend.
func (r *Registrar) Submit(ctx context.Context, participant id.ParticipantID, reg *Registration, pin, confirm []byte) (models.NFCCardData, error) {
	defer secretcodec.Wipe(pin)
	defer secretcodec.Wipe(confirm)

	if reg.State() != StateScanned {
		return models.NFCCardData{}, dErrors.New(dErrors.CodeValidation, "scan a card before submitting")
	}
	data := models.NFCCardData{CardUIDHash: reg.UIDHash(), CardType: reg.cardType}

	if reg.cardType.RequiresPIN() {
		if err := ValidatePIN(pin, confirm); err != nil {
			return models.NFCCardData{}, err
		}
		salt, err := secretcodec.GenerateSalt(secretcodec.DefaultSaltSize)
		if err != nil {
			return models.NFCCardData{}, err
		}
		data.PinHash = secretcodec.HashPin(pin, salt)
		data.PinSalt = hex.EncodeToString(salt)
	}

	err := r.client.RegisterCard(ctx, backend.CardRegisterRequest{
		ParticipantID: participant.String(),
		CardUIDHash:   data.CardUIDHash,
		CardType:      string(data.CardType),
		PinHash:       data.PinHash,
		PinSalt:       data.PinSalt,
	})
	if err != nil {
		return models.NFCCardData{}, err
	}
	return data, nil
}

// Register runs a whole registration: local PIN checks, one scan, one
// submit. pin and confirm are wiped before Register returns.
func (r *Registrar) Register(ctx context.Context, participant id.ParticipantID, cardType models.CardType, pin, confirm []byte) (models.NFCCardData, error) {
	reg, err := r.Begin(cardType)
	if err != nil {
		secretcodec.Wipe(pin)
		secretcodec.Wipe(confirm)
		return models.NFCCardData{}, err
	}
	if cardType.RequiresPIN() {
		if err := ValidatePIN(pin, confirm); err != nil {
			secretcodec.Wipe(pin)
			secretcodec.Wipe(confirm)
			return models.NFCCardData{}, err
		}
	}
	if err := r.Scan(ctx, reg); err != nil {
		secretcodec.Wipe(pin)
		secretcodec.Wipe(confirm)
		return models.NFCCardData{}, err
	}
	return r.Submit(ctx, participant, reg, pin, confirm)
}
