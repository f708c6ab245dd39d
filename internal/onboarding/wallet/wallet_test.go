package wallet

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"satnam/internal/backend"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/wallet/mocks"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

var (
	pubkey = strings.Repeat("ab", 32)
	secret = strings.Repeat("0f", 32)
	nwc    = "nostr+walletconnect://" + pubkey + "?relay=wss://relay.example&secret=" + secret
)

type ProvisionerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	client      *mocks.MockClient
	provisioner *Provisioner
	participant *models.ParticipantRecord
}

func TestProvisionerSuite(t *testing.T) {
	suite.Run(t, new(ProvisionerSuite))
}

func (s *ProvisionerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.client = mocks.NewMockClient(s.ctrl)
	s.provisioner = New(s.client, "satnam.pub")

	p, err := models.NewParticipant(id.NewParticipantID(), models.Intake{
		TrueName:    "Alice Smith",
		DisplayName: "Alice Smith!",
	}, time.Now())
	s.Require().NoError(err)
	s.participant = p
}

// =============================================================================
// Validators
// =============================================================================

func (s *ProvisionerSuite) TestDeriveLocalPart() {
	s.Equal("alicesmith", DeriveLocalPart("Alice Smith!"))
	s.Equal("bob.jones_1-2", DeriveLocalPart("Bob.Jones_1-2"))
	s.Equal("zo", DeriveLocalPart("Zoë"))
	s.Equal("", DeriveLocalPart("!!!"))
}

func (s *ProvisionerSuite) TestValidateNWC() {
	s.NoError(ValidateNWC(nwc))
	s.NoError(ValidateNWC(nwc + "&lud16=alice@getalby.com"))

	bad := map[string]string{
		"http relay":     "nostr+walletconnect://" + pubkey + "?relay=http://relay.example&secret=" + secret,
		"ws relay":       "nostr+walletconnect://" + pubkey + "?relay=ws://relay.example&secret=" + secret,
		"missing secret": "nostr+walletconnect://" + pubkey + "?relay=wss://relay.example",
		"short pubkey":   "nostr+walletconnect://" + pubkey[:63] + "?relay=wss://relay.example&secret=" + secret,
		"short secret":   "nostr+walletconnect://" + pubkey + "?relay=wss://relay.example&secret=" + secret[:62],
		"non hex pubkey": "nostr+walletconnect://" + strings.Repeat("zz", 32) + "?relay=wss://relay.example&secret=" + secret,
		"wrong scheme":   "nostr+wallet://" + pubkey + "?relay=wss://relay.example&secret=" + secret,
		"missing relay":  "nostr+walletconnect://" + pubkey + "?secret=" + secret,
		"empty":          "",
	}
	for name, conn := range bad {
		s.Run(name, func() {
			err := ValidateNWC(conn)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ProvisionerSuite) TestValidateScrub() {
	s.NoError(ValidateScrub(false, "", 37))
	s.NoError(ValidateScrub(true, "cold@wallet.example", 0))
	s.NoError(ValidateScrub(true, "cold@wallet.example", 100))
	s.NoError(ValidateScrub(true, "cold@wallet.example", 50))

	s.Error(ValidateScrub(true, "cold@wallet.example", 55))
	s.Error(ValidateScrub(true, "cold@wallet.example", 110))
	s.Error(ValidateScrub(true, "cold@wallet.example", -10))
	s.Error(ValidateScrub(true, "not-an-address", 50))
	s.Error(ValidateScrub(true, "cold@localhost", 50))
}

// =============================================================================
// Provisioning
// =============================================================================

func (s *ProvisionerSuite) TestAutoMode() {
	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req backend.LightningSetupRequest) (backend.LightningSetupResponse, error) {
			s.Equal(s.participant.ID.String(), req.ParticipantID)
			s.Equal("auto", req.SetupMode)
			s.Equal("alicesmith@satnam.pub", req.LightningAddress)
			s.Empty(req.NWCConnectionString)
			return backend.LightningSetupResponse{}, nil
		})

	cfg, err := s.provisioner.Provision(context.Background(), s.participant, Request{Mode: models.WalletAuto}, nil)
	s.Require().NoError(err)
	s.Equal("alicesmith@satnam.pub", cfg.LightningAddress)
	s.False(cfg.ScrubEnabled)
}

func (s *ProvisionerSuite) TestAutoModeUsesBackendAssignedAddress() {
	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).
		Return(backend.LightningSetupResponse{LightningAddress: "alicesmith2@satnam.pub"}, nil)

	cfg, err := s.provisioner.Provision(context.Background(), s.participant, Request{Mode: models.WalletAuto}, nil)
	s.Require().NoError(err)
	s.Equal("alicesmith2@satnam.pub", cfg.LightningAddress)
}

func (s *ProvisionerSuite) TestExternalModeSealsConnectionString() {
	password := []byte("correct horse")
	conn := []byte(nwc)

	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req backend.LightningSetupRequest) (backend.LightningSetupResponse, error) {
			s.Equal("external", req.SetupMode)
			s.Equal(nwc, req.NWCConnectionString)
			s.True(req.ScrubEnabled)
			s.Equal(30, req.ScrubPercent)
			s.Equal("cold@wallet.example", req.ExternalLightningAddress)
			return backend.LightningSetupResponse{}, nil
		})

	cfg, err := s.provisioner.Provision(context.Background(), s.participant, Request{
		Mode:                     models.WalletExternal,
		NWCConnectionString:      conn,
		ScrubEnabled:             true,
		ExternalLightningAddress: "cold@wallet.example",
		ScrubPercent:             30,
	}, password)
	s.Require().NoError(err)

	s.NotContains(cfg.NWCConnectionString, secret)
	opened, err := secretcodec.OpenWithPassword(secretcodec.Sealed{Ciphertext: cfg.NWCConnectionString, Salt: cfg.NWCSalt}, password)
	s.Require().NoError(err)
	s.Equal(nwc, string(opened))
	s.Equal(make([]byte, len(nwc)), conn, "caller's connection string buffer must be wiped")
}

func (s *ProvisionerSuite) TestValidationFailuresNeverReachBackend() {
	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).Times(0)

	cases := map[string]Request{
		"bad nwc":       {Mode: models.WalletExternal, NWCConnectionString: []byte("nostr+walletconnect://nope")},
		"bad scrub pct": {Mode: models.WalletAuto, ScrubEnabled: true, ExternalLightningAddress: "a@b.co", ScrubPercent: 15},
		"bad mode":      {Mode: "custodial"},
	}
	for name, req := range cases {
		s.Run(name, func() {
			_, err := s.provisioner.Provision(context.Background(), s.participant, req, []byte("pw"))
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func (s *ProvisionerSuite) TestUnusableDisplayName() {
	s.participant.DisplayName = "!!!"
	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).Times(0)
	_, err := s.provisioner.Provision(context.Background(), s.participant, Request{Mode: models.WalletAuto}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ProvisionerSuite) TestBackendFailureStaysRetryable() {
	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).
		Return(backend.LightningSetupResponse{}, dErrors.New(dErrors.CodeNetwork, "backend request failed with status 502"))
	_, err := s.provisioner.Provision(context.Background(), s.participant, Request{Mode: models.WalletAuto}, nil)
	s.True(dErrors.Retryable(err))

	s.client.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).Return(backend.LightningSetupResponse{}, nil)
	_, err = s.provisioner.Provision(context.Background(), s.participant, Request{Mode: models.WalletAuto}, nil)
	s.NoError(err)
}
