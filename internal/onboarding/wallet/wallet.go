// Package wallet validates and submits a participant's Lightning wallet setup.
package wallet

//go:generate mockgen -source=wallet.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"satnam/internal/backend"
	"satnam/internal/onboarding/models"
	"satnam/internal/secretcodec"
	dErrors "satnam/pkg/domain-errors"
)

const nwcScheme = "nostr+walletconnect"

var (
	hex64            = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	lightningAddress = regexp.MustCompile(`(?i)^[a-z0-9._+-]+@[a-z0-9-]+(\.[a-z0-9-]+)*\.[a-z]{2,}$`)
	localPartStrip   = regexp.MustCompile(`[^a-z0-9._-]`)
)

// Client submits wallet setups to the backend.
type Client interface {
	SetupLightning(ctx context.Context, req backend.LightningSetupRequest) (backend.LightningSetupResponse, error)
}

// Request is the coordinator's wallet choice. NWCConnectionString is secret
// and is wiped by Provision.
type Request struct {
	Mode                     models.WalletMode
	NWCConnectionString      []byte
	ExternalLightningAddress string
	ScrubEnabled             bool
	ScrubPercent             int
}

// Provisioner turns a validated Request into a provisioned wallet.
type Provisioner struct {
	client Client
	domain string
	logger *slog.Logger
}

type Option func(*Provisioner)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// New constructs a Provisioner issuing auto addresses under domain.
func New(client Client, domain string, opts ...Option) *Provisioner {
	p := &Provisioner{
		client: client,
		domain: strings.ToLower(strings.TrimSpace(domain)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DeriveLocalPart lower-cases name and strips everything outside [a-z0-9._-].
func DeriveLocalPart(name string) string {
	return localPartStrip.ReplaceAllString(strings.ToLower(name), "")
}

// ValidateNWC checks a Nostr Wallet Connect URI: a 64-hex wallet pubkey, a
// wss:// relay and a 64-hex secret.
func ValidateNWC(conn string) error {
	invalid := dErrors.New(dErrors.CodeValidation,
		"connection string must be nostr+walletconnect://<64-hex pubkey>?relay=wss://...&secret=<64-hex>")

	u, err := url.Parse(strings.TrimSpace(conn))
	if err != nil || u.Scheme != nwcScheme {
		return invalid
	}
	if !hex64.MatchString(u.Host) || (u.Path != "" && u.Path != "/") {
		return invalid
	}
	q := u.Query()
	relay, err := url.Parse(q.Get("relay"))
	if err != nil || relay.Scheme != "wss" || relay.Host == "" {
		return invalid
	}
	if !hex64.MatchString(q.Get("secret")) {
		return invalid
	}
	return nil
}

// ValidateLightningAddress checks the local@domain.tld shape.
func ValidateLightningAddress(addr string) error {
	if !lightningAddress.MatchString(strings.TrimSpace(addr)) {
		return dErrors.New(dErrors.CodeValidation, "Lightning address must look like name@domain.tld")
	}
	return nil
}

// ValidateScrub checks forwarding parameters. Disabled forwarding is always valid.
func ValidateScrub(enabled bool, externalAddress string, percent int) error {
	if !enabled {
		return nil
	}
	if err := ValidateLightningAddress(externalAddress); err != nil {
		return dErrors.New(dErrors.CodeValidation, "scrub forwarding needs a valid external Lightning address")
	}
	if percent < 0 || percent > 100 || percent%10 != 0 {
		return dErrors.New(dErrors.CodeValidation, "scrub percent must be 0 to 100 in steps of 10")
	}
	return nil
}

// Validate runs every local check for req without touching the network.
func (p *Provisioner) Validate(participant *models.ParticipantRecord, req Request) error {
	switch req.Mode {
	case models.WalletAuto:
		if DeriveLocalPart(participant.NameForAddress()) == "" {
			return dErrors.New(dErrors.CodeValidation, "display name has no characters usable in a Lightning address")
		}
	case models.WalletExternal:
		if err := ValidateNWC(string(req.NWCConnectionString)); err != nil {
			return err
		}
	default:
		return dErrors.New(dErrors.CodeValidation, "wallet mode must be auto or external")
	}
	return ValidateScrub(req.ScrubEnabled, req.ExternalLightningAddress, req.ScrubPercent)
}

// Provision validates req, seals any NWC secret under password and submits
// one idempotent setup request. On failure nothing is recorded and the call
// may be repeated.
func (p *Provisioner) Provision(ctx context.Context, participant *models.ParticipantRecord, req Request, password []byte) (models.LightningWalletConfig, error) {
	defer secretcodec.Wipe(req.NWCConnectionString)

	if err := p.Validate(participant, req); err != nil {
		return models.LightningWalletConfig{}, err
	}

	cfg := models.LightningWalletConfig{
		Mode:         req.Mode,
		ScrubEnabled: req.ScrubEnabled,
	}
	if req.ScrubEnabled {
		cfg.ExternalLightningAddress = strings.TrimSpace(req.ExternalLightningAddress)
		cfg.ScrubPercent = req.ScrubPercent
	}

	wire := backend.LightningSetupRequest{
		ParticipantID:            participant.ID.String(),
		SetupMode:                string(req.Mode),
		ExternalLightningAddress: cfg.ExternalLightningAddress,
		ScrubEnabled:             cfg.ScrubEnabled,
		ScrubPercent:             cfg.ScrubPercent,
	}

	switch req.Mode {
	case models.WalletAuto:
		cfg.LightningAddress = DeriveLocalPart(participant.NameForAddress()) + "@" + p.domain
		wire.LightningAddress = cfg.LightningAddress
	case models.WalletExternal:
		if len(password) == 0 {
			return models.LightningWalletConfig{}, dErrors.New(dErrors.CodeInvalidState, "password is required to store a wallet connection")
		}
		sealed, err := secretcodec.SealWithPassword(req.NWCConnectionString, password)
		if err != nil {
			return models.LightningWalletConfig{}, err
		}
		cfg.NWCConnectionString = sealed.Ciphertext
		cfg.NWCSalt = sealed.Salt
		wire.NWCConnectionString = strings.TrimSpace(string(req.NWCConnectionString))
	}

	resp, err := p.client.SetupLightning(ctx, wire)
	if err != nil {
		p.logger.WarnContext(ctx, "lightning setup failed",
			"participant_id", participant.ID.String(),
			"setup_mode", string(req.Mode),
			"error", err,
		)
		return models.LightningWalletConfig{}, err
	}
	if resp.LightningAddress != "" {
		cfg.LightningAddress = resp.LightningAddress
	}
	return cfg, nil
}
