package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"satnam/internal/backend"
	"satnam/internal/nfc"
	"satnam/internal/onboarding/attestation"
	attmocks "satnam/internal/onboarding/attestation/mocks"
	"satnam/internal/onboarding/card"
	cardmocks "satnam/internal/onboarding/card/mocks"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/onboarding/service"
	"satnam/internal/onboarding/store"
	"satnam/internal/onboarding/wallet"
	walletmocks "satnam/internal/onboarding/wallet/mocks"
	id "satnam/pkg/domain"
)

const (
	testPassword = "correct horse battery"
	testCardUID  = "04:A2:3B:4C:5D:6E:7F"
)

// syncBuffer is written by the countdown goroutine and the wizard.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type WizardSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	store       *store.InMemory
	cardClient  *cardmocks.MockClient
	walletAPI   *walletmocks.MockClient
	attClient   *attmocks.MockClient
	coordinator id.UserID
	logger      *slog.Logger
	out         *syncBuffer
	services    []*service.Service
}

func TestWizardSuite(t *testing.T) {
	suite.Run(t, new(WizardSuite))
}

func (s *WizardSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewInMemory()
	s.cardClient = cardmocks.NewMockClient(s.ctrl)
	s.walletAPI = walletmocks.NewMockClient(s.ctrl)
	s.attClient = attmocks.NewMockClient(s.ctrl)
	s.coordinator = id.NewUserID()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.services = nil
}

func (s *WizardSuite) TearDownTest() {
	for _, svc := range s.services {
		svc.Shutdown(context.Background())
	}
}

// wizard builds a fresh process over the shared store: the console and
// the card reader read the same scripted input.
func (s *WizardSuite) wizard(script ...string) (*Wizard, *service.Service) {
	src := nfc.NewReaderSource(strings.NewReader(strings.Join(script, "\n") + "\n"))
	s.out = &syncBuffer{}
	con := NewConsole(src, s.out, -1)

	registrar := card.New(nfc.NewWedge(src, s.logger), s.cardClient,
		card.WithScanTimeout(time.Second), card.WithLogger(s.logger))
	provisioner := wallet.New(s.walletAPI, "satnam.pub", wallet.WithLogger(s.logger))
	pipeline := attestation.New(s.attClient, []string{"wss://relay.satnam.pub"}, attestation.WithLogger(s.logger))
	display := secrets.NewManager(secrets.WithWindow(time.Hour), secrets.WithLogger(s.logger))

	svc := service.New(s.store, registrar, provisioner, pipeline, display,
		service.WithLogger(s.logger),
		service.WithPlatformDomain("satnam.pub"),
	)
	s.services = append(s.services, svc)
	return NewWizard(svc, con, s.coordinator, WithWizardLogger(s.logger), WithCountdownTick(time.Hour)), svc
}

func (s *WizardSuite) expectCardAndWallet() {
	s.cardClient.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).Return(nil)
	s.walletAPI.EXPECT().SetupLightning(gomock.Any(), gomock.Any()).
		Return(backend.LightningSetupResponse{LightningAddress: "ada@satnam.pub"}, nil)
}

func (s *WizardSuite) expectAttestation() {
	s.attClient.EXPECT().Timestamp(gomock.Any(), gomock.Any()).
		Return(backend.TimestampResponse{ID: "ts-1", OTSProof: "proof-1"}, nil)
	s.attClient.EXPECT().NIP03Attestation(gomock.Any(), gomock.Any()).
		Return(backend.NIP03AttestationResponse{NIP03EventID: "event-1", RelayCount: 2}, nil)
}

func (s *WizardSuite) snapshot(svc *service.Service, sid id.SessionID) models.Session {
	sess, err := svc.Snapshot(context.Background(), sid)
	s.Require().NoError(err)
	return sess
}

func intakeLines(name, display string) []string {
	// true name, display name, role, federation, existing account
	return []string{name, display, "", "", "n"}
}

func lines(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var (
	identityAndPassword = []string{"", testPassword, testPassword}
	tapsignerCard       = []string{"3", testCardUID}
	hostedWallet        = []string{"1", "n"}
	backupConfirmed     = []string{"y"}
)

func (s *WizardSuite) TestSingleSessionRunsToCompletion() {
	s.expectCardAndWallet()
	s.expectAttestation()

	w, svc := s.wizard(lines(
		intakeLines("Ada Lovelace", "ada"),
		identityAndPassword,
		tapsignerCard,
		hostedWallet,
		backupConfirmed,
	)...)

	sid, err := w.Start(context.Background(), models.ModeSingle)
	s.Require().NoError(err)

	sess := s.snapshot(svc, sid)
	s.Equal(models.SessionCompleted, sess.Status)
	s.Require().Len(sess.Participants, 1)
	p := sess.Participants[0]
	s.True(p.Attestation.IsComplete())
	s.Equal("event-1", p.NIP03EventID)
	s.Equal(models.CardTapsigner, p.CardType)
	s.Equal("ada@satnam.pub", p.Wallet.LightningAddress)

	out := s.out.String()
	s.Contains(out, "IDENTITY BACKUP")
	s.Contains(out, "nsec1")
	s.Contains(out, "Session complete: 1 participant(s) onboarded")
	s.NotContains(out, testPassword)
}

func (s *WizardSuite) TestPauseAndResumeReentersPassword() {
	w, _ := s.wizard(lines(
		intakeLines("Ada Lovelace", "ada"),
		identityAndPassword,
		[]string{":pause"},
	)...)
	sid, err := w.Start(context.Background(), models.ModeSingle)
	s.Require().NoError(err)
	s.Contains(s.out.String(), "onboard resume "+sid.String())

	// A new process has no password in memory; the keet step asks again.
	s.expectCardAndWallet()
	s.expectAttestation()
	w, svc := s.wizard(lines(
		tapsignerCard,
		hostedWallet,
		[]string{testPassword},
		backupConfirmed,
	)...)
	s.Equal(models.SessionPaused, s.snapshot(svc, sid).Status)

	s.Require().NoError(w.Resume(context.Background(), sid))

	sess := s.snapshot(svc, sid)
	s.Equal(models.SessionCompleted, sess.Status)
	s.Contains(s.out.String(), "enter it again")
}

func (s *WizardSuite) TestResumeRefusesAnotherCoordinator() {
	w, svc := s.wizard()
	sess, err := svc.StartSession(context.Background(), id.NewUserID(), models.ModeSingle, nil)
	s.Require().NoError(err)

	err = w.Resume(context.Background(), sess.ID)
	s.Error(err)
}

func (s *WizardSuite) TestStepFailureOffersRetry() {
	s.expectCardAndWallet()

	w, svc := s.wizard(lines(
		intakeLines("Ada Lovelace", "ada"),
		identityAndPassword,
		// ntag424 with mismatched PINs, then retry with a tapsigner
		[]string{"1", "123456", "654321"},
		[]string{"1"},
		tapsignerCard,
		hostedWallet,
		[]string{":cancel", "y"},
	)...)

	sid, err := w.Start(context.Background(), models.ModeSingle)
	s.Require().NoError(err)

	out := s.out.String()
	s.Contains(out, "How do you want to continue?")
	s.Contains(out, "tapsigner card bound")
	s.Contains(out, "Session cancelled")
	s.Equal(models.SessionCancelled, s.snapshot(svc, sid).Status)
}

func (s *WizardSuite) TestBatchNavigatesBetweenParticipants() {
	s.expectCardAndWallet()
	s.expectAttestation()

	w, svc := s.wizard(lines(
		intakeLines("Ada Lovelace", "ada"),
		identityAndPassword,
		tapsignerCard,
		hostedWallet,
		backupConfirmed,
		// add a second participant and step back to the first
		[]string{"1"},
		intakeLines("Grace Hopper", "grace"),
		[]string{":prev"},
		// finishing is refused until grace is attested; pause instead
		[]string{"2"},
		[]string{"3"},
	)...)

	sid, err := w.Start(context.Background(), models.ModeBatch)
	s.Require().NoError(err)

	sess := s.snapshot(svc, sid)
	s.Equal(models.SessionPaused, sess.Status)
	s.Require().Len(sess.Participants, 2)
	s.Equal(0, sess.Cursor)
	s.Equal(models.StepIdentity, sess.Participants[1].Progress.CurrentStep)
	s.Contains(s.out.String(), "attestation is not complete for every participant")
}

func (s *WizardSuite) TestClosedInputEndsWizard() {
	w, _ := s.wizard("Ada Lovelace")

	_, err := w.Start(context.Background(), models.ModeSingle)
	s.ErrorIs(err, io.EOF)
}

func (s *WizardSuite) TestProgressLine() {
	p := models.NewAttestationProgress().
		Set(models.PhaseOTS, models.PhaseSuccess).
		Set(models.PhaseNIP03, models.PhaseInProgress).
		Set(models.PhaseFederation, models.PhaseSkipped)

	s.Equal("ots ok  nip03 ...  federation skipped  publish -", progressLine(p))
}
