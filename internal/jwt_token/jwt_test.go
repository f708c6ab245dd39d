package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

var (
	coordinator = id.NewUserID()
	session     = id.NewSessionID()
)

func TestGenerateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "onboarding-core", "onboarding-backend", time.Hour)

	token, err := svc.GenerateToken(coordinator, session, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, coordinator.String(), claims.CoordinatorID)
	assert.Equal(t, session.String(), claims.SessionID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("test-signing-key", "onboarding-core", "onboarding-backend", time.Minute)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-token-string")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.GenerateToken(coordinator, id.SessionID{}, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Equal(t, "token has expired", dErrors.UserMessage(err))
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewJWTService("other-key", "onboarding-core", "onboarding-backend", time.Minute)
		token, err := other.GenerateToken(coordinator, session, time.Now())
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewJWTService("test-signing-key", "onboarding-core", "someone-else", time.Minute)
		token, err := other.GenerateToken(coordinator, session, time.Now())
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestCoordinatorClaims(t *testing.T) {
	svc := NewJWTService("test-signing-key", "onboarding-core", "onboarding-backend", time.Minute)

	token, err := svc.GenerateToken(coordinator, id.SessionID{}, time.Now())
	require.NoError(t, err)
	claims, err := svc.CoordinatorClaims(token)
	require.NoError(t, err)
	assert.Equal(t, coordinator.String(), claims.CoordinatorID)
	assert.Empty(t, claims.SessionID)

	_, err = svc.CoordinatorClaims("nope")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
