package sessions_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/sessions"
	fakesessionrepo "github.com/jrsteele09/go-identity-server/sessions/repofakes"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
	fakeuserrepo "github.com/jrsteele09/go-identity-server/users/repofake"
)

type managerFixture struct {
	manager  *sessions.Manager
	repo     *fakesessionrepo.FakeSessionRepo
	userRepo *fakeuserrepo.FakeUserRepo
	user     *users.User
	now      time.Time
}

func newManagerFixture(t *testing.T, options ...sessions.ManagerOption) *managerFixture {
	t.Helper()

	repo := fakesessionrepo.NewFakeSessionRepo()
	userRepo := fakeuserrepo.NewFakeUserRepo()

	signer := token.NewHMACSigner("test-secret")
	minter := token.NewMinter(signer, signer, "https://issuer.test")

	manager, err := sessions.NewManager(repo, userRepo, minter, options...)
	require.NoError(t, err)

	user := &users.User{
		ID:       uuid.NewString(),
		Username: "alice",
		Active:   true,
	}
	require.NoError(t, userRepo.Upsert(user))

	return &managerFixture{
		manager:  manager,
		repo:     repo,
		userRepo: userRepo,
		user:     user,
		now:      time.Now(),
	}
}

func TestManager_Start(t *testing.T) {
	f := newManagerFixture(t)

	bundle, err := f.manager.Start(f.user)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.AccessToken)
	require.NotEmpty(t, bundle.RefreshToken)
	require.True(t, bundle.Session.IsActive)
	require.False(t, bundle.Session.Revoked)

	// Only the hash is stored; the raw value never matches it
	require.Equal(t, sessions.HashRefreshToken(bundle.RefreshToken), bundle.Session.RefreshTokenHash)
	require.NotEqual(t, bundle.RefreshToken, bundle.Session.RefreshTokenHash)

	stored, err := f.repo.GetByID(bundle.Session.ID)
	require.NoError(t, err)
	require.Equal(t, bundle.Session.RefreshTokenHash, stored.RefreshTokenHash)
}

func TestManager_Rotate(t *testing.T) {
	t.Run("rotation chain", func(t *testing.T) {
		f := newManagerFixture(t)

		first, err := f.manager.Start(f.user)
		require.NoError(t, err)

		second, err := f.manager.Rotate(first.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, first.RefreshToken, second.RefreshToken)
		require.Equal(t, first.Session.ID, second.Session.ID)

		third, err := f.manager.Rotate(second.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, second.RefreshToken, third.RefreshToken)
	})

	t.Run("superseded token replay fails", func(t *testing.T) {
		f := newManagerFixture(t)

		first, err := f.manager.Start(f.user)
		require.NoError(t, err)

		_, err = f.manager.Rotate(first.RefreshToken)
		require.NoError(t, err)

		_, err = f.manager.Rotate(first.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrInvalidCredential)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Rotate("never-issued")
		require.ErrorIs(t, err, sessions.ErrInvalidCredential)
	})

	t.Run("orphaned session after user deletion", func(t *testing.T) {
		f := newManagerFixture(t)

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)

		require.NoError(t, f.userRepo.Delete(f.user.ID))

		_, err = f.manager.Rotate(bundle.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrInvalidCredential)
	})

	t.Run("revoked session", func(t *testing.T) {
		f := newManagerFixture(t)

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)
		require.NoError(t, f.manager.Revoke(bundle.Session))

		_, err = f.manager.Rotate(bundle.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionRevoked)
	})

	t.Run("expiry dominates revocation", func(t *testing.T) {
		now := time.Now()
		f := newManagerFixture(t, sessions.WithNowFunc(func() time.Time { return now }))

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)
		require.NoError(t, f.manager.Revoke(bundle.Session))

		// Both expired and revoked: the expired signal wins
		now = now.Add(8 * 24 * time.Hour)
		_, err = f.manager.Rotate(bundle.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionExpired)
	})

	t.Run("expired session fails and is flagged", func(t *testing.T) {
		now := time.Now()
		f := newManagerFixture(t,
			sessions.WithNowFunc(func() time.Time { return now }),
			sessions.WithTokenExpiry(15*time.Minute, time.Hour))

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)

		now = now.Add(2 * time.Hour)
		_, err = f.manager.Rotate(bundle.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionExpired)

		stored, err := f.repo.GetByID(bundle.Session.ID)
		require.NoError(t, err)
		require.True(t, stored.Revoked)
		require.False(t, stored.IsActive)
	})
}

func TestManager_ReconcileExpiry(t *testing.T) {
	now := time.Now()
	f := newManagerFixture(t, sessions.WithNowFunc(func() time.Time { return now }))

	bundle, err := f.manager.Start(f.user)
	require.NoError(t, err)

	t.Run("no-op while session is live", func(t *testing.T) {
		wrote, err := f.manager.ReconcileExpiry(bundle.Session)
		require.NoError(t, err)
		require.False(t, wrote)
	})

	t.Run("first reconcile writes the revocation", func(t *testing.T) {
		now = now.Add(8 * 24 * time.Hour)

		wrote, err := f.manager.ReconcileExpiry(bundle.Session)
		require.ErrorIs(t, err, sessions.ErrSessionExpired)
		require.True(t, wrote)
	})

	t.Run("second reconcile does not rewrite", func(t *testing.T) {
		wrote, err := f.manager.ReconcileExpiry(bundle.Session)
		require.ErrorIs(t, err, sessions.ErrSessionExpired)
		require.False(t, wrote)
	})
}

func TestManager_Revoke(t *testing.T) {
	t.Run("revoke is idempotent", func(t *testing.T) {
		f := newManagerFixture(t)

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)

		require.NoError(t, f.manager.Revoke(bundle.Session))
		require.NoError(t, f.manager.Revoke(bundle.Session))
	})

	t.Run("revoke by refresh token", func(t *testing.T) {
		f := newManagerFixture(t)

		bundle, err := f.manager.Start(f.user)
		require.NoError(t, err)

		require.NoError(t, f.manager.RevokeByRefreshToken(bundle.RefreshToken))

		_, err = f.manager.Rotate(bundle.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionRevoked)
	})

	t.Run("revoke all for user kills every session", func(t *testing.T) {
		f := newManagerFixture(t)

		first, err := f.manager.Start(f.user)
		require.NoError(t, err)
		second, err := f.manager.Start(f.user)
		require.NoError(t, err)

		require.NoError(t, f.manager.RevokeAllForUser(f.user.ID))

		_, err = f.manager.Rotate(first.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionRevoked)
		_, err = f.manager.Rotate(second.RefreshToken)
		require.ErrorIs(t, err, sessions.ErrSessionRevoked)
	})
}

func TestNewRawRefreshToken(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 64; i++ {
		raw, err := sessions.NewRawRefreshToken()
		require.NoError(t, err)
		require.NotContains(t, seen, raw)
		seen[raw] = struct{}{}
	}
}
