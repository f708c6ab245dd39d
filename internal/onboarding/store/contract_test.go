package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satnam/internal/onboarding/models"
	id "satnam/pkg/domain"
	"satnam/pkg/platform/sentinel"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T, coordinator id.UserID, at time.Time) *models.Session {
	t.Helper()
	s, err := models.NewSession(id.NewSessionID(), models.ModeBatch, coordinator, at)
	require.NoError(t, err)
	p, err := models.NewParticipant(id.NewParticipantID(), models.Intake{TrueName: "Ada Lovelace"}, at)
	require.NoError(t, err)
	p.Npub = "npub1example"
	p.EncryptedNsec = "Y2lwaGVydGV4dA=="
	p.NsecSalt = "ab12"
	s.ApplyAddParticipant(p, true, at)
	return s
}

// runContract exercises behavior every Store implementation must share.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create then find round-trips the record", func(t *testing.T) {
		st := newStore(t)
		s := newSession(t, id.NewUserID(), baseTime)
		require.NoError(t, st.Create(ctx, s))

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.Equal(t, models.SessionActive, got.Status)
		require.Len(t, got.Participants, 1)
		p := got.Participants[0]
		assert.Equal(t, "Ada Lovelace", p.TrueName)
		assert.Equal(t, "Y2lwaGVydGV4dA==", p.EncryptedNsec)
		assert.Equal(t, models.StepIdentity, p.Progress.CurrentStep)
		assert.True(t, p.Progress.CompletedSteps.Has(models.StepIntake))
		assert.True(t, got.CreatedAt.Equal(baseTime))
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		st := newStore(t)
		s := newSession(t, id.NewUserID(), baseTime)
		require.NoError(t, st.Create(ctx, s))
		assert.ErrorIs(t, st.Create(ctx, s), sentinel.ErrConflict)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		st := newStore(t)
		_, err := st.FindByID(ctx, id.NewSessionID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		s := newSession(t, id.NewUserID(), baseTime)
		assert.ErrorIs(t, st.Save(ctx, s), sentinel.ErrNotFound)
	})

	t.Run("save persists progress", func(t *testing.T) {
		st := newStore(t)
		s := newSession(t, id.NewUserID(), baseTime)
		require.NoError(t, st.Create(ctx, s))

		p := s.Current()
		p.Progress.CompletedSteps = p.Progress.CompletedSteps.With(models.StepIdentity)
		p.Progress.CurrentStep = models.StepPassword
		s.ApplyPause(baseTime.Add(time.Minute))
		require.NoError(t, st.Save(ctx, s))

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionPaused, got.Status)
		assert.Equal(t, models.StepPassword, got.CurrentStep())
		assert.True(t, got.CompletedSteps().Has(models.StepIdentity))
	})

	t.Run("finished sessions are not overwritten", func(t *testing.T) {
		st := newStore(t)
		s := newSession(t, id.NewUserID(), baseTime)
		require.NoError(t, st.Create(ctx, s))

		stale := s.Snapshot()
		s.ApplyCancel(baseTime.Add(time.Minute))
		require.NoError(t, st.Save(ctx, s))

		stale.ApplyPause(baseTime.Add(2 * time.Minute))
		assert.ErrorIs(t, st.Save(ctx, &stale), sentinel.ErrConflict)

		got, err := st.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionCancelled, got.Status)
	})

	t.Run("list resumable filters by coordinator and status", func(t *testing.T) {
		st := newStore(t)
		coordinator := id.NewUserID()

		older := newSession(t, coordinator, baseTime)
		newer := newSession(t, coordinator, baseTime.Add(time.Hour))
		done := newSession(t, coordinator, baseTime.Add(2*time.Hour))
		other := newSession(t, id.NewUserID(), baseTime)
		for _, s := range []*models.Session{older, newer, done, other} {
			require.NoError(t, st.Create(ctx, s))
		}
		done.ApplyCancel(baseTime.Add(3 * time.Hour))
		require.NoError(t, st.Save(ctx, done))

		got, err := st.ListResumable(ctx, coordinator)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)
	})
}
