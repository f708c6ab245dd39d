// Package relay publishes the coordinator's onboarding summary note to
// Nostr relays.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"satnam/internal/nostrid"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

const (
	defaultPublishTimeout = 15 * time.Second
	summaryTag            = "satnam-onboarding"
)

// Conn is the part of a relay connection the publisher needs.
// *nostr.Relay satisfies it.
type Conn interface {
	Publish(ctx context.Context, event nostr.Event) error
	Close() error
}

// Dialer opens a relay connection.
type Dialer func(ctx context.Context, url string) (Conn, error)

func dialRelay(ctx context.Context, url string) (Conn, error) {
	return nostr.RelayConnect(ctx, url)
}

// Summary describes a finished session. It carries public identifiers only.
type Summary struct {
	SessionID    id.SessionID
	CompletedAt  time.Time
	Participants []SummaryParticipant
}

type SummaryParticipant struct {
	Npub  string
	Nip05 string
}

// Result reports which relays accepted the note.
type Result struct {
	EventID  string
	Accepted []string
	Failed   map[string]error
}

// Publisher signs notes with the coordinator's key.
type Publisher struct {
	secretKey string
	pubKey    string
	relays    []string
	dial      Dialer
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Publisher)

func WithDialer(d Dialer) Option {
	return func(p *Publisher) {
		p.dial = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New builds a Publisher from the coordinator's bech32 nsec. The hex key
// derived from it lives for the publisher's lifetime.
func New(coordinatorNsec []byte, relays []string, opts ...Option) (*Publisher, error) {
	sk, err := nostrid.SecretKeyHex(coordinatorNsec)
	if err != nil {
		return nil, err
	}
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "coordinator key is invalid")
	}
	normalized, err := nostrid.NormalizeRelays(relays)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one relay is required")
	}
	p := &Publisher{
		secretKey: sk,
		pubKey:    pk,
		relays:    normalized,
		dial:      dialRelay,
		timeout:   defaultPublishTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublicKey is the coordinator's hex public key.
func (p *Publisher) PublicKey() string {
	return p.pubKey
}

// BuildSummaryEvent signs the kind-1 summary note for s.
func (p *Publisher) BuildSummaryEvent(s Summary) (nostr.Event, error) {
	tags := nostr.Tags{{"t", summaryTag}}
	for _, part := range s.Participants {
		pk, err := nostrid.DecodeNpub(part.Npub)
		if err != nil {
			continue
		}
		tags = append(tags, nostr.Tag{"p", pk})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Onboarding session complete: %d participant(s) attested.", len(s.Participants))
	for _, part := range s.Participants {
		if part.Nip05 != "" {
			fmt.Fprintf(&b, "\n- %s", part.Nip05)
		}
	}

	ev := nostr.Event{
		PubKey:    p.pubKey,
		CreatedAt: nostr.Timestamp(s.CompletedAt.Unix()),
		Kind:      nostr.KindTextNote,
		Tags:      tags,
		Content:   b.String(),
	}
	if err := ev.Sign(p.secretKey); err != nil {
		return nostr.Event{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign summary note")
	}
	return ev, nil
}

// PublishSummary sends the summary note to every relay. It fails only when
// no relay accepted it.
func (p *Publisher) PublishSummary(ctx context.Context, s Summary) (Result, error) {
	ev, err := p.BuildSummaryEvent(s)
	if err != nil {
		return Result{}, err
	}
	res := Result{EventID: ev.ID, Failed: map[string]error{}}
	for _, url := range p.relays {
		if err := p.publishTo(ctx, url, ev); err != nil {
			res.Failed[url] = err
			p.logger.WarnContext(ctx, "relay rejected summary note",
				"relay", url,
				"session_id", s.SessionID.String(),
				"error", err,
			)
			continue
		}
		res.Accepted = append(res.Accepted, url)
	}
	if len(res.Accepted) == 0 {
		errs := make([]error, 0, len(res.Failed))
		for _, e := range res.Failed {
			errs = append(errs, e)
		}
		return res, dErrors.Wrap(errors.Join(errs...), dErrors.CodeNetwork, "no relay accepted the summary note")
	}
	return res, nil
}

func (p *Publisher) publishTo(ctx context.Context, url string, ev nostr.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := conn.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
