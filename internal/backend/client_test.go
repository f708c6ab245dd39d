package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	jwttoken "satnam/internal/jwt_token"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/circuit"
	"satnam/pkg/platform/sentinel"
	"satnam/pkg/requestcontext"
)

type ClientSuite struct {
	suite.Suite
	mux    *http.ServeMux
	server *httptest.Server
	client *Client
	tokens *jwttoken.JWTService
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.tokens = jwttoken.NewJWTService("test-key", "onboarding-core", "onboarding-backend", time.Minute)
	s.client = New(s.server.URL, WithTokenSource(s.tokens), WithTimeout(2*time.Second))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestCardRegisterSendsHashedFieldsOnly() {
	var got map[string]any
	var headers http.Header
	s.mux.HandleFunc(PathCardRegister, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	})

	coordinator := id.NewUserID()
	ctx := requestcontext.WithCoordinatorID(context.Background(), coordinator)
	err := s.client.RegisterCard(ctx, CardRegisterRequest{
		ParticipantID: "p-1",
		CardUIDHash:   "abc",
		CardType:      "tapsigner",
	})
	s.Require().NoError(err)

	s.Equal(map[string]any{"participantId": "p-1", "cardUidHash": "abc", "cardType": "tapsigner"}, got)
	s.Equal("p-1:onboarding/card-register", headers.Get("Idempotency-Key"))

	bearer := headers.Get("Authorization")
	s.Require().Greater(len(bearer), len("Bearer "))
	claims, err := s.tokens.ValidateToken(bearer[len("Bearer "):])
	s.Require().NoError(err)
	s.Equal(coordinator.String(), claims.CoordinatorID)
}

func (s *ClientSuite) TestAttemptNumberScopesIdempotencyKey() {
	var keys []string
	s.mux.HandleFunc(PathNIP03Attestation, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"nip03_event_id":"event-1","relay_count":1}`))
	})

	for attempt := 1; attempt <= 2; attempt++ {
		ctx := WithAttempt(context.Background(), attempt)
		_, err := s.client.NIP03Attestation(ctx, NIP03AttestationRequest{ParticipantID: "p-1", Npub: "npub1", Nip05: "a@b.c"})
		s.Require().NoError(err)
	}

	s.Equal([]string{
		"p-1:onboarding/nip03-attestation:1",
		"p-1:onboarding/nip03-attestation:2",
	}, keys)
}

func (s *ClientSuite) TestDecodesResponses() {
	s.mux.HandleFunc(PathTimestamp, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ts-1","ots_proof":"proof","bitcoin_block":840000}`))
	})
	s.mux.HandleFunc(PathNIP03Attestation, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nip03_event_id":"evt-1","relay_count":3}`))
	})

	ts, err := s.client.Timestamp(context.Background(), TimestampRequest{Data: "d", VerificationID: "p-1"})
	s.Require().NoError(err)
	s.Equal("ts-1", ts.ID)
	s.Equal("proof", ts.OTSProof)
	s.Require().NotNil(ts.BitcoinBlock)
	s.Equal(int64(840000), *ts.BitcoinBlock)

	nip03, err := s.client.NIP03Attestation(context.Background(), NIP03AttestationRequest{ParticipantID: "p-1"})
	s.Require().NoError(err)
	s.Equal("evt-1", nip03.NIP03EventID)
	s.Equal(3, nip03.RelayCount)
}

func (s *ClientSuite) TestErrorBodies() {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json message", http.StatusBadRequest, `{"message":"federation not found"}`, "federation not found"},
		{"json error", http.StatusConflict, `{"error":"already linked"}`, "already linked"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "backend request failed with status 502"},
		{"empty body", http.StatusInternalServerError, ``, "backend request failed with status 500"},
		{"json without message", http.StatusServiceUnavailable, `{"code":7}`, "backend request failed with status 503"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			mux := http.NewServeMux()
			mux.HandleFunc(PathLinkFederation, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			err := New(srv.URL).LinkFederation(context.Background(), LinkFederationRequest{ParticipantID: "p-1"})
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
			s.Equal(tc.message, dErrors.UserMessage(err))

			var se *StatusError
			s.Require().True(errors.As(err, &se))
			s.Equal(tc.status, se.Status)
		})
	}
}

func (s *ClientSuite) TestTimeout() {
	release := make(chan struct{})
	s.mux.HandleFunc(PathLightningSetup, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := New(s.server.URL, WithTimeout(50*time.Millisecond))
	_, err := c.SetupLightning(context.Background(), LightningSetupRequest{ParticipantID: "p-1"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
	s.ErrorIs(err, sentinel.ErrTimeout)
}

func (s *ClientSuite) TestUnreachable() {
	c := New("http://127.0.0.1:1")
	err := c.PublishCoordinatorAttestation(context.Background(), PublishCoordinatorAttestationRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
	s.ErrorIs(err, sentinel.ErrUnavailable)
}

func (s *ClientSuite) TestBreakerFailsFastAfterServerErrors() {
	var calls atomic.Int32
	s.mux.HandleFunc(PathLinkFederation, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := New(s.server.URL, WithBreaker(circuit.New("backend", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))
	for range 2 {
		err := c.LinkFederation(context.Background(), LinkFederationRequest{ParticipantID: "p-1"})
		s.Require().Error(err)
	}

	err := c.LinkFederation(context.Background(), LinkFederationRequest{ParticipantID: "p-1"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNetwork))
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(int32(2), calls.Load())
}

func (s *ClientSuite) TestBreakerIgnoresClientErrors() {
	s.mux.HandleFunc(PathCardRegister, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	b := circuit.New("backend", circuit.WithFailureThreshold(1))
	c := New(s.server.URL, WithBreaker(b))
	for range 3 {
		s.Error(c.RegisterCard(context.Background(), CardRegisterRequest{ParticipantID: "p-1"}))
	}
	s.Equal(circuit.StateClosed, b.State())
}
