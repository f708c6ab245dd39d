package card

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"satnam/internal/backend"
	"satnam/internal/onboarding/card/mocks"
	"satnam/internal/onboarding/models"
	"satnam/internal/secretcodec"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
	"satnam/pkg/platform/sentinel"
)

type RegistrarSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	scanner   *mocks.MockScanner
	client    *mocks.MockClient
	registrar *Registrar
	pid       id.ParticipantID
}

func TestRegistrarSuite(t *testing.T) {
	suite.Run(t, new(RegistrarSuite))
}

func (s *RegistrarSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.scanner = mocks.NewMockScanner(s.ctrl)
	s.client = mocks.NewMockClient(s.ctrl)
	s.registrar = New(s.scanner, s.client,
		WithScanTimeout(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.pid = id.NewParticipantID()
}

func (s *RegistrarSuite) scanned(cardType models.CardType, uid []byte) *Registration {
	reg, err := s.registrar.Begin(cardType)
	s.Require().NoError(err)
	s.scanner.EXPECT().Scan(gomock.Any()).Return(uid, nil)
	s.Require().NoError(s.registrar.Scan(context.Background(), reg))
	return reg
}

// =============================================================================
// PIN validation
// =============================================================================

func (s *RegistrarSuite) TestValidatePIN() {
	s.NoError(ValidatePIN([]byte("123456"), []byte("123456")))

	for _, bad := range [][2]string{
		{"12345", "12345"},
		{"1234567", "1234567"},
		{"12a456", "12a456"},
		{"123456", "654321"},
		{"123456", ""},
		{"", ""},
		{"12345\n", "12345\n"},
	} {
		err := ValidatePIN([]byte(bad[0]), []byte(bad[1]))
		s.Require().Error(err, "pin=%q confirm=%q", bad[0], bad[1])
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}
}

// =============================================================================
// Scanning
// =============================================================================

func (s *RegistrarSuite) TestScanHashesAndWipesRawUID() {
	raw := []byte{0x04, 0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6}
	want := secretcodec.HashCardUID(raw)

	reg := s.scanned(models.CardNTAG424, raw)

	s.Equal(StateScanned, reg.State())
	s.Equal(want, reg.UIDHash())
	s.Equal(make([]byte, len(raw)), raw, "raw UID must be zeroed after hashing")
}

func (s *RegistrarSuite) TestScanTimeout() {
	reg, err := s.registrar.Begin(models.CardBoltcard)
	s.Require().NoError(err)
	s.scanner.EXPECT().Scan(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	registrar := New(s.scanner, s.client, WithScanTimeout(20*time.Millisecond))
	err = registrar.Scan(context.Background(), reg)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.ErrorIs(err, sentinel.ErrTimeout)
	s.Equal(StateError, reg.State())
	s.Empty(reg.UIDHash())
}

func (s *RegistrarSuite) TestScanReadErrorThenRetry() {
	reg, err := s.registrar.Begin(models.CardTapsigner)
	s.Require().NoError(err)

	s.scanner.EXPECT().Scan(gomock.Any()).Return(nil, errors.New("tag lost"))
	err = s.registrar.Scan(context.Background(), reg)
	s.True(dErrors.HasCode(err, dErrors.CodeDevice))
	s.Equal(StateError, reg.State())
	s.Equal(err, reg.Err())

	s.scanner.EXPECT().Scan(gomock.Any()).Return([]byte{1, 2, 3, 4}, nil)
	s.Require().NoError(s.registrar.Scan(context.Background(), reg))
	s.Equal(StateScanned, reg.State())
	s.NoError(reg.Err())
}

func (s *RegistrarSuite) TestScanEmptyUID() {
	reg, _ := s.registrar.Begin(models.CardTapsigner)
	s.scanner.EXPECT().Scan(gomock.Any()).Return([]byte{}, nil)
	err := s.registrar.Scan(context.Background(), reg)
	s.True(dErrors.HasCode(err, dErrors.CodeDevice))
}

func (s *RegistrarSuite) TestBeginRejectsUnknownType() {
	_, err := s.registrar.Begin("mifare")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// =============================================================================
// Submission
// =============================================================================

func (s *RegistrarSuite) TestSubmitWithPIN() {
	reg := s.scanned(models.CardNTAG424, []byte{9, 9, 9, 9})
	pin, confirm := []byte("123456"), []byte("123456")

	var sent backend.CardRegisterRequest
	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req backend.CardRegisterRequest) error {
			sent = req
			return nil
		})

	data, err := s.registrar.Submit(context.Background(), s.pid, reg, pin, confirm)
	s.Require().NoError(err)

	salt, err := hex.DecodeString(data.PinSalt)
	s.Require().NoError(err)
	s.Len(salt, 32)
	s.Equal(secretcodec.HashPin([]byte("123456"), salt), data.PinHash)

	s.Equal(s.pid.String(), sent.ParticipantID)
	s.Equal(reg.UIDHash(), sent.CardUIDHash)
	s.Equal("ntag424", sent.CardType)
	s.Equal(data.PinHash, sent.PinHash)
	s.Equal(data.PinSalt, sent.PinSalt)
	s.NotContains(sent.PinHash, "123456")

	s.Equal(make([]byte, 6), pin)
	s.Equal(make([]byte, 6), confirm)
}

func (s *RegistrarSuite) TestSubmitInvalidPINNeverCallsBackend() {
	reg := s.scanned(models.CardBoltcard, []byte{1, 2, 3, 4})
	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).Times(0)

	s.False(CanSubmit(reg, []byte("12345"), []byte("12345")))
	_, err := s.registrar.Submit(context.Background(), s.pid, reg, []byte("12345"), []byte("12345"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RegistrarSuite) TestSubmitTapsignerSkipsPIN() {
	reg := s.scanned(models.CardTapsigner, []byte{5, 6, 7, 8})
	s.True(CanSubmit(reg, nil, nil))

	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req backend.CardRegisterRequest) error {
			s.Empty(req.PinHash)
			s.Empty(req.PinSalt)
			return nil
		})

	data, err := s.registrar.Submit(context.Background(), s.pid, reg, nil, nil)
	s.Require().NoError(err)
	s.Equal(models.CardTapsigner, data.CardType)
	s.Empty(data.PinHash)
}

func (s *RegistrarSuite) TestSubmitBeforeScan() {
	reg, _ := s.registrar.Begin(models.CardTapsigner)
	s.False(CanSubmit(reg, nil, nil))
	_, err := s.registrar.Submit(context.Background(), s.pid, reg, nil, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RegistrarSuite) TestSubmitBackendFailureIsRetryable() {
	reg := s.scanned(models.CardTapsigner, []byte{5, 6, 7, 8})
	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeNetwork, "backend unreachable"))
	_, err := s.registrar.Submit(context.Background(), s.pid, reg, nil, nil)
	s.True(dErrors.Retryable(err))
	s.Equal(StateScanned, reg.State())

	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).Return(nil)
	_, err = s.registrar.Submit(context.Background(), s.pid, reg, nil, nil)
	s.NoError(err)
}

// =============================================================================
// Register
// =============================================================================

func (s *RegistrarSuite) TestRegisterRejectsBadPINBeforeScanning() {
	pin := []byte("12a456")
	_, err := s.registrar.Register(context.Background(), s.pid, models.CardNTAG424, pin, []byte("12a456"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(make([]byte, 6), pin)
}

func (s *RegistrarSuite) TestRegisterScansAndSubmits() {
	s.scanner.EXPECT().Scan(gomock.Any()).Return([]byte{0x04, 0xA1, 0xB2}, nil)
	s.client.EXPECT().RegisterCard(gomock.Any(), gomock.Any()).Return(nil)

	data, err := s.registrar.Register(context.Background(), s.pid, models.CardBoltcard, []byte("654321"), []byte("654321"))
	s.Require().NoError(err)
	s.Equal(secretcodec.HashCardUID([]byte{0x04, 0xA1, 0xB2}), data.CardUIDHash)
	s.NotEmpty(data.PinHash)
}

func (s *RegistrarSuite) TestRegisterScanFailureSkipsBackend() {
	s.scanner.EXPECT().Scan(gomock.Any()).Return(nil, errors.New("reader unplugged"))

	_, err := s.registrar.Register(context.Background(), s.pid, models.CardTapsigner, nil, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeDevice))
}
