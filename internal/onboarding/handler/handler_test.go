package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/store"
	id "satnam/pkg/domain"
	"satnam/pkg/testutil"
)

// HandlerSuite drives the ops API against a real service over the
// in-memory store. Collaborators the control endpoints never reach are nil.
type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	service     *service.Service
	coordinator id.UserID
	session     models.Session
	participant id.ParticipantID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	display := secrets.NewManager(secrets.WithWindow(time.Hour), secrets.WithLogger(logger))
	s.service = service.New(store.NewInMemory(), nil, nil, nil, display, service.WithLogger(logger))

	r := chi.NewRouter()
	New(s.service, logger).Register(r)
	s.router = r

	s.coordinator = id.NewUserID()
	sess, err := s.service.StartSession(context.Background(), s.coordinator, models.ModeBatch, nil)
	s.Require().NoError(err)
	sess, err = s.service.AddParticipant(context.Background(), sess.ID, models.Intake{TrueName: "Ada Lovelace", DisplayName: "ada"})
	s.Require().NoError(err)
	s.session = sess
	s.participant = sess.Participants[0].ID
}

func (s *HandlerSuite) TearDownTest() {
	s.service.Shutdown(context.Background())
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithCoordinator(req, s.coordinator))
}

func (s *HandlerSuite) path(suffix string) string {
	return "/onboarding/sessions/" + s.session.ID.String() + suffix
}

func (s *HandlerSuite) TestGetSession() {
	testutil.Given(s.T(), "a session with one participant", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodGet, s.path("")))
		testutil.AssertStatusOK(t, rr)

		body := string(rr.Body.Bytes())
		resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
		assert.Equal(t, "active", resp.Status)
		assert.Equal(t, "batch", resp.Mode)
		require.Len(t, resp.Participants, 1)
		assert.Equal(t, "ada", resp.Participants[0].Name)
		assert.Equal(t, "identity", resp.Participants[0].CurrentStep)
		assert.Equal(t, []string{"intake"}, resp.Participants[0].CompletedSteps)
		assert.NotContains(t, body, "encrypted")
		assert.NotContains(t, body, "salt")
	})
}

func (s *HandlerSuite) TestGetSessionHidesOtherCoordinators() {
	req := testutil.NewRequest(s.T(), http.MethodGet, s.path(""))
	rr := testutil.DoRequest(s.router, testutil.WithCoordinator(req, id.NewUserID()))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestRejectsMalformedIDs() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/onboarding/sessions/not-a-uuid"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, s.path("/participants/nope/attestation")))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestSessionScopedToken() {
	req := testutil.WithSessionScope(testutil.NewRequest(s.T(), http.MethodGet, s.path("")), id.NewSessionID())
	rr := s.do(req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *HandlerSuite) TestPauseAndResume() {
	sc := testutil.NewScenario(s.T())
	sc.When("the session is paused", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodPost, s.path("/pause")))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "paused")
	})
	sc.Then("pausing again conflicts", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodPost, s.path("/pause")))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})
	sc.Then("it can be resumed", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodPost, s.path("/resume")))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "active")
	})
}

func (s *HandlerSuite) TestCancel() {
	sc := testutil.NewScenario(s.T())
	sc.When("confirmation is missing", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodPost, s.path("/cancel")))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "confirmation_required")
	})
	sc.When("the body has unknown fields", func(t *testing.T) {
		rr := s.do(testutil.NewJSONRequest(t, http.MethodPost, s.path("/cancel"), map[string]bool{"confirm": true, "force": true}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
	sc.When("the cancel is confirmed", func(t *testing.T) {
		rr := s.do(testutil.NewJSONRequest(t, http.MethodPost, s.path("/cancel"), CancelRequest{Confirm: true}))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Len(t, resp.Participants, 1, "participant records survive cancellation")
	})
	sc.Then("the session is no longer resumable", func(t *testing.T) {
		rr := s.do(testutil.NewRequest(t, http.MethodPost, s.path("/resume")))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})
}

func (s *HandlerSuite) TestAttestationProgress() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, s.path("/participants/"+s.participant.String()+"/attestation")))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[AttestationResponse](s.T(), rr)
	assert.Equal(s.T(), "pending", resp.NIP03)
	assert.False(s.T(), resp.Complete)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, s.path("/participants/"+id.NewParticipantID().String()+"/attestation")))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestListResumable() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/onboarding/sessions"))
	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[ListResponse](s.T(), rr)
	require.Len(s.T(), resp.Sessions, 1)
	assert.Equal(s.T(), s.session.ID.String(), resp.Sessions[0].SessionID)
	assert.Equal(s.T(), 1, resp.Sessions[0].Participants)
}

func TestHealth(t *testing.T) {
	healthy := Health{"store": func(context.Context) error { return nil }}
	rr := testutil.DoRequest(healthy, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "ok")

	degraded := Health{
		"store": func(context.Context) error { return nil },
		"audit": func(context.Context) error { return errors.New("broker unreachable") },
	}
	rr = testutil.DoRequest(degraded, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	resp := testutil.UnmarshalResponse[HealthResponse](t, rr)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "broker unreachable", resp.Checks["audit"])
}
