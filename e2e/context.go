// Package e2e runs the feature files under features/ against the ops API
// served in-process over a real HTTP listener.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "satnam/internal/jwt_token"
	"satnam/internal/onboarding/handler"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/store"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/middleware/auth"
	"satnam/pkg/platform/middleware/request"
)

// TestContext is the state one scenario shares between its steps.
type TestContext struct {
	server  *httptest.Server
	service *service.Service
	tokens  *jwttoken.JWTService

	coordinators map[string]id.UserID
	sessions     map[string]id.SessionID

	token      string
	lastStatus int
	lastBody   []byte
}

func NewTestContext() *TestContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), nil, nil, nil, secrets.NewManager(), service.WithLogger(logger))
	tokens := jwttoken.NewJWTService("e2e-signing-key", "satnam-onboard", "satnam-api", time.Hour)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(auth.ValidatorFunc(tokens.CoordinatorClaims), logger))
		handler.New(svc, logger).Register(r)
	})

	return &TestContext{
		server:       httptest.NewServer(r),
		service:      svc,
		tokens:       tokens,
		coordinators: make(map[string]id.UserID),
		sessions:     make(map[string]id.SessionID),
	}
}

func (tc *TestContext) Close() {
	tc.server.Close()
	tc.service.Shutdown(context.Background())
}

func (tc *TestContext) coordinator(name string) id.UserID {
	uid, ok := tc.coordinators[name]
	if !ok {
		uid = id.NewUserID()
		tc.coordinators[name] = uid
	}
	return uid
}

func (tc *TestContext) SessionID(name string) (id.SessionID, error) {
	sid, ok := tc.sessions[name]
	if !ok {
		return id.SessionID{}, fmt.Errorf("no session named %q in this scenario", name)
	}
	return sid, nil
}

// SignIn mints the bearer token later requests carry. An empty
// sessionName gives a token for every session of the coordinator.
func (tc *TestContext) SignIn(coordinatorName, sessionName string) error {
	var sid id.SessionID
	if sessionName != "" {
		var err error
		if sid, err = tc.SessionID(sessionName); err != nil {
			return err
		}
	}
	token, err := tc.tokens.GenerateToken(tc.coordinator(coordinatorName), sid, time.Now())
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}
	tc.token = token
	return nil
}

// CreateSession starts a batch session for the coordinator and queues the
// participants in order.
func (tc *TestContext) CreateSession(ctx context.Context, coordinatorName, sessionName string, participants []string) error {
	sess, err := tc.service.StartSession(ctx, tc.coordinator(coordinatorName), models.ModeBatch, nil)
	if err != nil {
		return err
	}
	for _, name := range participants {
		if _, err := tc.service.AddParticipant(ctx, sess.ID, models.Intake{TrueName: name}); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	tc.sessions[sessionName] = sess.ID
	return nil
}

// Do sends a request and records the response for the assertion steps.
func (tc *TestContext) Do(ctx context.Context, method, path string, body any, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated && tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) Status() int { return tc.lastStatus }

// DecodeResponse decodes the last response body into v.
func (tc *TestContext) DecodeResponse(v any) error {
	if err := json.Unmarshal(tc.lastBody, v); err != nil {
		return fmt.Errorf("decode response %q: %w", tc.lastBody, err)
	}
	return nil
}

// ResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) ResponseField(field string) (any, error) {
	var body map[string]any
	if err := tc.DecodeResponse(&body); err != nil {
		return nil, err
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}
