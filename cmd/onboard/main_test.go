package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "satnam/internal/jwt_token"
	"satnam/internal/onboarding/handler"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/store"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/middleware/auth"
)

func newTestRouter(t *testing.T, origins ...string) (http.Handler, *service.Service, *jwttoken.JWTService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), nil, nil, nil, secrets.NewManager(), service.WithLogger(logger))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	tokens := jwttoken.NewJWTService("test-key", "satnam-onboard", "satnam-api", time.Hour)
	health := handler.Health{"store": func(context.Context) error { return nil }}
	router := newOpsRouter(svc, auth.ValidatorFunc(tokens.CoordinatorClaims), health, prometheus.NewRegistry(), origins, logger)
	return router, svc, tokens
}

func TestOpsRouterOpenEndpoints(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `satnam_ops_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestOpsRouterRequiresToken(t *testing.T) {
	router, svc, tokens := newTestRouter(t)
	coordinator := id.NewUserID()
	sess, err := svc.StartSession(context.Background(), coordinator, models.ModeBatch, nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/onboarding/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := tokens.GenerateToken(coordinator, id.SessionID{}, time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/onboarding/sessions/"+sess.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), sess.ID.String())
}

func TestOpsRouterCORS(t *testing.T) {
	router, _, _ := newTestRouter(t, "http://dashboard.local")

	req := httptest.NewRequest(http.MethodOptions, "/onboarding/sessions", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "http://dashboard.local", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://elsewhere.local")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpsRouterWithoutOriginsSendsNoCORSHeaders(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestEnvFileSuppliesSettings(t *testing.T) {
	coordinator := id.NewUserID()
	t.Setenv("SATNAM_JWT_SIGNING_KEY", "test-key")
	t.Setenv("SATNAM_COORDINATOR_ID", "")
	os.Unsetenv("SATNAM_COORDINATOR_ID")

	path := filepath.Join(t.TempDir(), "onboard.env")
	require.NoError(t, os.WriteFile(path, []byte("SATNAM_COORDINATOR_ID="+coordinator.String()+"\n"), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--env-file", path})
	require.NoError(t, root.Execute())

	tokens := jwttoken.NewJWTService("test-key", "satnam-onboard", "satnam-api", time.Hour)
	claims, err := tokens.CoordinatorClaims(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, coordinator.String(), claims.CoordinatorID)
}

func TestTemplateCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"template", "Ada"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Participant: Ada")
	assert.Contains(t, out.String(), "Keet seed phrase")
}

func TestTokenCommand(t *testing.T) {
	coordinator := id.NewUserID()
	t.Setenv("SATNAM_COORDINATOR_ID", coordinator.String())
	t.Setenv("SATNAM_JWT_SIGNING_KEY", "test-key")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "--ttl", "10m"})
	require.NoError(t, root.Execute())

	tokens := jwttoken.NewJWTService("test-key", "satnam-onboard", "satnam-api", time.Minute)
	claims, err := tokens.CoordinatorClaims(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, coordinator.String(), claims.CoordinatorID)
	assert.Empty(t, claims.SessionID)
}

func TestTokenCommandNeedsCoordinator(t *testing.T) {
	t.Setenv("SATNAM_COORDINATOR_ID", "")
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"token"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SATNAM_COORDINATOR_ID")
}

func TestStartRejectsUnknownMode(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"start", "--mode", "family"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--mode")
}
