package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"satnam/internal/onboarding/metrics"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/circuit"
	"satnam/pkg/platform/sentinel"
	"satnam/pkg/requestcontext"
)

const (
	PathCardRegister       = "/onboarding/card-register"
	PathLightningSetup     = "/onboarding/lightning-setup"
	PathTimestamp          = "/timestamp"
	PathNIP03Attestation   = "/onboarding/nip03-attestation"
	PathLinkFederation     = "/onboarding/link-federation"
	PathPublishCoordinator = "/onboarding/publish-coordinator-attestation"

	DefaultTimeout = 15 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource mints bearer tokens for backend calls.
type TokenSource interface {
	GenerateToken(coordinator id.UserID, session id.SessionID, now time.Time) (string, error)
}

// StatusError is the decoded form of a non-2xx response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Client calls the onboarding backend. Every request is idempotent per
// participant, so callers may retry freely.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	breaker    *circuit.Breaker
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = ts
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// WithBreaker fails calls fast while the backend keeps failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		tracer:     otel.Tracer("satnam/backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type attemptKey struct{}

// WithAttempt numbers the attestation run a request belongs to. The number
// becomes part of the Idempotency-Key, so a new run is a new submission
// while transport retries within one run still share a key.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

func idempotencyKey(ctx context.Context, subject, path string) string {
	key := subject + ":" + strings.TrimPrefix(path, "/")
	if n, ok := ctx.Value(attemptKey{}).(int); ok && n > 0 {
		key += ":" + strconv.Itoa(n)
	}
	return key
}

func (c *Client) RegisterCard(ctx context.Context, req CardRegisterRequest) error {
	return c.post(ctx, PathCardRegister, req.ParticipantID, req, nil)
}

func (c *Client) SetupLightning(ctx context.Context, req LightningSetupRequest) (LightningSetupResponse, error) {
	var resp LightningSetupResponse
	err := c.post(ctx, PathLightningSetup, req.ParticipantID, req, &resp)
	return resp, err
}

func (c *Client) Timestamp(ctx context.Context, req TimestampRequest) (TimestampResponse, error) {
	var resp TimestampResponse
	err := c.post(ctx, PathTimestamp, req.VerificationID, req, &resp)
	return resp, err
}

func (c *Client) NIP03Attestation(ctx context.Context, req NIP03AttestationRequest) (NIP03AttestationResponse, error) {
	var resp NIP03AttestationResponse
	err := c.post(ctx, PathNIP03Attestation, req.ParticipantID, req, &resp)
	return resp, err
}

func (c *Client) LinkFederation(ctx context.Context, req LinkFederationRequest) error {
	return c.post(ctx, PathLinkFederation, req.ParticipantID, req, nil)
}

func (c *Client) PublishCoordinatorAttestation(ctx context.Context, req PublishCoordinatorAttestationRequest) error {
	return c.post(ctx, PathPublishCoordinator, req.ParticipantNpub, req, nil)
}

func (c *Client) post(ctx context.Context, path, idemKey string, body, out any) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "backend.post", trace.WithAttributes(
		attribute.String("http.route", path),
	))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if c.metrics != nil {
			c.metrics.ObserveBackendRequest(path, outcome, start)
		}
	}()

	if c.breaker != nil && !c.breaker.Allow() {
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeNetwork, "backend is unavailable; try again shortly")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey(ctx, idemKey, path))
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	if c.tokens != nil {
		token, err := c.tokens.GenerateToken(
			requestcontext.CoordinatorID(ctx), requestcontext.SessionID(ctx), requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.recordOutcome(ctx, false)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return dErrors.Wrap(sentinel.ErrTimeout, dErrors.CodeNetwork, "request to backend timed out")
		}
		if errors.Is(err, context.Canceled) {
			return dErrors.Wrap(err, dErrors.CodeNetwork, "request to backend was cancelled")
		}
		return dErrors.Wrap(fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err), dErrors.CodeNetwork, "backend is unreachable")
	}
	defer resp.Body.Close()
	c.recordOutcome(ctx, resp.StatusCode < 500)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := decodeError(resp)
		c.logger.WarnContext(ctx, "backend request failed",
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(se, dErrors.CodeNetwork, se.Message)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return dErrors.Wrap(err, dErrors.CodeNetwork, "backend returned an unreadable response")
	}
	return nil
}

// recordOutcome feeds the breaker. Client errors count as successes: the
// backend answered.
func (c *Client) recordOutcome(ctx context.Context, ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		if c.breaker.RecordSuccess().Closed {
			c.logger.InfoContext(ctx, "backend circuit closed", "breaker", c.breaker.Name())
		}
		return
	}
	if c.breaker.RecordFailure().Opened {
		c.logger.WarnContext(ctx, "backend circuit opened", "breaker", c.breaker.Name())
	}
}

// decodeError never fails: bodies that are not JSON, or JSON without a
// message, collapse to a generic message.
func decodeError(resp *http.Response) *StatusError {
	se := &StatusError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("backend request failed with status %d", resp.StatusCode),
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return se
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) != nil {
		return se
	}
	for _, msg := range []string{eb.ErrorDescription, eb.Message, eb.Error} {
		if msg = strings.TrimSpace(msg); msg != "" {
			se.Message = msg
			break
		}
	}
	return se
}
