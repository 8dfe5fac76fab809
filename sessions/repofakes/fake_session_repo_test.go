package fakesessionrepo_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/sessions"
	fakesessionrepo "github.com/jrsteele09/go-identity-server/sessions/repofakes"
)

func insertSession(t *testing.T, repo *fakesessionrepo.FakeSessionRepo) *sessions.Session {
	t.Helper()

	now := time.Now().UTC()
	session := &sessions.Session{
		ID:               uuid.NewString(),
		UserID:           uuid.NewString(),
		AccessTokenID:    uuid.NewString(),
		RefreshTokenHash: sessions.HashRefreshToken(uuid.NewString()),
		IsActive:         true,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, repo.Insert(session))
	return session
}

func TestFakeSessionRepo_RotateRefreshHash(t *testing.T) {
	t.Run("conditional on current hash", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		session := insertSession(t, repo)

		newHash := sessions.HashRefreshToken(uuid.NewString())
		rotated, err := repo.RotateRefreshHash(session.ID, session.RefreshTokenHash, newHash, uuid.NewString(), session.ExpiresAt)
		require.NoError(t, err)
		require.True(t, rotated)

		rotated, err = repo.RotateRefreshHash(session.ID, session.RefreshTokenHash, sessions.HashRefreshToken(uuid.NewString()), uuid.NewString(), session.ExpiresAt)
		require.NoError(t, err)
		require.False(t, rotated)
	})

	t.Run("refuses revoked sessions", func(t *testing.T) {
		repo := fakesessionrepo.NewFakeSessionRepo()
		session := insertSession(t, repo)

		require.NoError(t, repo.MarkRevoked(session.ID))

		rotated, err := repo.RotateRefreshHash(session.ID, session.RefreshTokenHash, sessions.HashRefreshToken(uuid.NewString()), uuid.NewString(), session.ExpiresAt)
		require.NoError(t, err)
		require.False(t, rotated)
	})
}
