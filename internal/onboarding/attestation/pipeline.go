// Package attestation runs the four-phase attestation sequence for one
// participant: OTS commitment, NIP-03 attestation, federation link and
// coordinator publish.
//
// Only the NIP-03 phase is fatal. Every output a later phase needs is
// returned by the earlier phase and passed on explicitly.
package attestation

//go:generate mockgen -source=pipeline.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"satnam/internal/backend"
	"satnam/internal/onboarding/metrics"
	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

const (
	// DefaultMaxAttempts caps full-pipeline runs per participant.
	DefaultMaxAttempts = 3

	eventTypeIdentity = "identity_creation"
)

// Client is the backend surface the pipeline drives.
type Client interface {
	Timestamp(ctx context.Context, req backend.TimestampRequest) (backend.TimestampResponse, error)
	NIP03Attestation(ctx context.Context, req backend.NIP03AttestationRequest) (backend.NIP03AttestationResponse, error)
	LinkFederation(ctx context.Context, req backend.LinkFederationRequest) error
	PublishCoordinatorAttestation(ctx context.Context, req backend.PublishCoordinatorAttestationRequest) error
}

// Subject is the participant being attested plus the session context the
// later phases reference.
type Subject struct {
	SessionID     id.SessionID
	ParticipantID id.ParticipantID
	UserID        id.UserID
	FederationID  id.FederationID
	Role          string
	Npub          string
	Nip05         string
	Metadata      map[string]string
}

// ProgressFunc observes every phase transition. It receives a copy.
type ProgressFunc func(models.AttestationProgress)

// Outcome is the frozen result of one pipeline run.
type Outcome struct {
	Progress models.AttestationProgress
	Result   models.AttestationResult
	Attempt  int
}

// Pipeline runs attestation for one participant at a time.
type Pipeline struct {
	client      Client
	relays      []string
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithMaxAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// New constructs a Pipeline publishing NIP-03 events to relays.
func New(client Client, relays []string, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:      client,
		relays:      append([]string(nil), relays...),
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		tracer:      otel.Tracer("satnam/attestation"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the configured attempt cap.
func (p *Pipeline) MaxAttempts() int {
	return p.maxAttempts
}

// Commitment is the OTS commitment for an identity: hex(sha256("npub:nip05")).
func Commitment(npub, nip05 string) string {
	sum := sha256.Sum256([]byte(npub + ":" + nip05))
	return hex.EncodeToString(sum[:])
}

// Run executes all four phases from the beginning. priorAttempts is the
// number of earlier runs for this participant; once it reaches the cap Run
// refuses with CodeManualIntervention. A NIP-03 failure halts the run and
// returns a CodeFatalAttestation error alongside the frozen outcome.
func (p *Pipeline) Run(ctx context.Context, subj Subject, priorAttempts int, onProgress ProgressFunc) (Outcome, error) {
	if priorAttempts >= p.maxAttempts {
		return Outcome{Attempt: priorAttempts}, dErrors.New(dErrors.CodeManualIntervention,
			"attestation failed too many times; manual intervention is required")
	}
	if subj.Npub == "" || subj.Nip05 == "" {
		return Outcome{Attempt: priorAttempts}, dErrors.New(dErrors.CodeValidation, "npub and NIP-05 are required before attestation")
	}

	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "attestation.run", trace.WithAttributes(
		attribute.String("participant_id", subj.ParticipantID.String()),
		attribute.Int("attempt", priorAttempts+1),
	))
	defer span.End()
	ctx = backend.WithAttempt(ctx, priorAttempts+1)
	if p.metrics != nil {
		defer p.metrics.ObserveAttestation(start)
	}

	r := &run{p: p, subj: subj, notify: onProgress, progress: models.NewAttestationProgress()}
	out := Outcome{Attempt: priorAttempts + 1}
	r.emit()

	timestampID, otsProof := r.ots(ctx)
	out.Result.TimestampID, out.Result.OTSProof = timestampID, otsProof

	eventID, relayCount, err := r.nip03(ctx, timestampID, otsProof)
	if err != nil {
		out.Progress = r.progress
		span.RecordError(err)
		span.SetStatus(codes.Error, "nip03 failed")
		return out, err
	}
	out.Result.NIP03EventID, out.Result.RelayCount = eventID, relayCount

	out.Result.FederationLinked = r.federation(ctx)
	out.Result.AttestationPublished = r.publish(ctx, eventID)

	out.Progress = r.progress
	return out, nil
}

// run holds the mutable state of a single pipeline execution.
type run struct {
	p        *Pipeline
	subj     Subject
	notify   ProgressFunc
	progress models.AttestationProgress
}

func (r *run) set(phase models.Phase, status models.PhaseStatus) {
	r.progress = r.progress.Set(phase, status)
	if status.IsTerminal() && r.p.metrics != nil {
		r.p.metrics.IncrementAttestationPhase(string(phase), string(status))
	}
	r.emit()
}

func (r *run) emit() {
	if r.notify != nil {
		r.notify(r.progress)
	}
}

func (r *run) phaseSpan(ctx context.Context, phase models.Phase) (context.Context, trace.Span) {
	return r.p.tracer.Start(ctx, "attestation."+string(phase))
}

func (r *run) nonFatal(ctx context.Context, span trace.Span, phase models.Phase, err error) {
	wrapped := dErrors.Wrap(err, dErrors.CodeNonFatalAttestation, string(phase)+" phase failed")
	span.RecordError(wrapped)
	span.SetStatus(codes.Error, string(phase)+" failed")
	r.p.logger.WarnContext(ctx, "attestation phase failed; continuing",
		"phase", string(phase),
		"participant_id", r.subj.ParticipantID.String(),
		"error", wrapped,
	)
	r.set(phase, models.PhaseFailed)
}

func (r *run) ots(ctx context.Context) (timestampID, proof string) {
	ctx, span := r.phaseSpan(ctx, models.PhaseOTS)
	defer span.End()
	r.set(models.PhaseOTS, models.PhaseInProgress)

	resp, err := r.p.client.Timestamp(ctx, backend.TimestampRequest{
		Data:           Commitment(r.subj.Npub, r.subj.Nip05),
		VerificationID: r.subj.ParticipantID.String(),
		EventType:      eventTypeIdentity,
		Metadata: map[string]string{
			"sessionId":     r.subj.SessionID.String(),
			"participantId": r.subj.ParticipantID.String(),
			"nip05":         r.subj.Nip05,
		},
	})
	if err != nil {
		r.nonFatal(ctx, span, models.PhaseOTS, err)
		return "", ""
	}
	r.set(models.PhaseOTS, models.PhaseSuccess)
	return resp.ID, resp.OTSProof
}

func (r *run) nip03(ctx context.Context, timestampID, proof string) (string, int, error) {
	ctx, span := r.phaseSpan(ctx, models.PhaseNIP03)
	defer span.End()
	r.set(models.PhaseNIP03, models.PhaseInProgress)

	resp, err := r.p.client.NIP03Attestation(ctx, backend.NIP03AttestationRequest{
		ParticipantID:          r.subj.ParticipantID.String(),
		Npub:                   r.subj.Npub,
		Nip05:                  r.subj.Nip05,
		SimpleproofTimestampID: timestampID,
		OTSProof:               proof,
		EventType:              eventTypeIdentity,
		RelayURLs:              r.p.relays,
	})
	if err == nil && resp.NIP03EventID == "" {
		err = dErrors.New(dErrors.CodeNetwork, "backend did not return a NIP-03 event id")
	}
	if err != nil {
		wrapped := dErrors.Wrap(err, dErrors.CodeFatalAttestation, "NIP-03 attestation failed")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "nip03 failed")
		r.p.logger.ErrorContext(ctx, "attestation halted",
			"phase", string(models.PhaseNIP03),
			"participant_id", r.subj.ParticipantID.String(),
			"error", err,
		)
		r.set(models.PhaseNIP03, models.PhaseFailed)
		return "", 0, wrapped
	}
	r.set(models.PhaseNIP03, models.PhaseSuccess)
	return resp.NIP03EventID, resp.RelayCount, nil
}

func (r *run) federation(ctx context.Context) bool {
	if r.subj.FederationID.IsNil() {
		r.set(models.PhaseFederation, models.PhaseSkipped)
		return false
	}
	ctx, span := r.phaseSpan(ctx, models.PhaseFederation)
	defer span.End()
	r.set(models.PhaseFederation, models.PhaseInProgress)

	err := r.p.client.LinkFederation(ctx, backend.LinkFederationRequest{
		ParticipantID: r.subj.ParticipantID.String(),
		UserID:        r.subj.UserID.String(),
		FederationID:  r.subj.FederationID.String(),
		Role:          r.subj.Role,
		SessionID:     r.subj.SessionID.String(),
	})
	if err != nil {
		r.nonFatal(ctx, span, models.PhaseFederation, err)
		return false
	}
	r.set(models.PhaseFederation, models.PhaseSuccess)
	return true
}

func (r *run) publish(ctx context.Context, nip03EventID string) bool {
	if r.subj.FederationID.IsNil() {
		r.set(models.PhasePublish, models.PhaseSkipped)
		return false
	}
	ctx, span := r.phaseSpan(ctx, models.PhasePublish)
	defer span.End()
	r.set(models.PhasePublish, models.PhaseInProgress)

	meta := make(map[string]string, len(r.subj.Metadata)+1)
	for k, v := range r.subj.Metadata {
		meta[k] = v
	}
	meta["role"] = r.subj.Role

	err := r.p.client.PublishCoordinatorAttestation(ctx, backend.PublishCoordinatorAttestationRequest{
		ParticipantNpub:  r.subj.Npub,
		ParticipantNip05: r.subj.Nip05,
		FederationID:     r.subj.FederationID.String(),
		SessionID:        r.subj.SessionID.String(),
		NIP03EventID:     nip03EventID,
		Metadata:         meta,
	})
	if err != nil {
		r.nonFatal(ctx, span, models.PhasePublish, err)
		return false
	}
	r.set(models.PhasePublish, models.PhaseSuccess)
	return true
}
