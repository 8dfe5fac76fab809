package sqlite_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/audit"
	"github.com/jrsteele09/go-identity-server/authcodes"
	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/internal/storage/sqlite"
	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/sessions"
	"github.com/jrsteele09/go-identity-server/users"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SeedRoles(rbac.DefaultRoles()))
	return store
}

func storeUser(t *testing.T, store *sqlite.Store, username string, roles ...rbac.Role) *users.User {
	t.Helper()

	user := &users.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.test",
		FullName:   "Test " + username,
		Roles:      roles,
		Active:     true,
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(user))
	return user
}

func TestStore_Users(t *testing.T) {
	t.Run("round trip with roles", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice", rbac.DefaultRoles()...)

		got, err := store.GetByUsername("alice")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, user.Email, got.Email)
		require.ElementsMatch(t, []string{"Admin", "User"}, got.RoleNames())

		byID, err := store.GetByID(user.ID)
		require.NoError(t, err)
		require.Equal(t, user.Username, byID.Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := openStore(t)

		_, err := store.GetByUsername("nobody")
		require.ErrorIs(t, err, users.ErrNotFound)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")

		user.Email = "new@example.test"
		require.NoError(t, store.Upsert(user))

		got, err := store.GetByID(user.ID)
		require.NoError(t, err)
		require.Equal(t, "new@example.test", got.Email)
	})

	t.Run("set roles", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")

		require.NoError(t, store.SetRoles(user.ID, []string{"Admin"}))

		got, err := store.GetByID(user.ID)
		require.NoError(t, err)
		require.Equal(t, []string{"Admin"}, got.RoleNames())
	})

	t.Run("set active", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")

		require.NoError(t, store.SetActive(user.ID, false))

		got, err := store.GetByID(user.ID)
		require.NoError(t, err)
		require.False(t, got.Active)
	})

	t.Run("list and delete", func(t *testing.T) {
		store := openStore(t)
		storeUser(t, store, "alice")
		bob := storeUser(t, store, "bob")

		list, err := store.List(0, 10)
		require.NoError(t, err)
		require.Len(t, list, 2)

		require.NoError(t, store.Delete(bob.ID))

		list, err = store.List(0, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "alice", list[0].Username)
	})
}

func TestStore_Clients(t *testing.T) {
	store := openStore(t)

	client := &clients.Client{
		ID:           "web-app",
		Name:         "Web App",
		Secret:       "s3cret",
		RedirectURIs: []string{"https://app.test/callback", "https://app.test/alt"},
		Confidential: true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Clients().Upsert(client))

	got, err := store.Clients().Get("web-app")
	require.NoError(t, err)
	require.Equal(t, client.Name, got.Name)
	require.Equal(t, client.RedirectURIs, got.RedirectURIs)
	require.True(t, got.Confidential)

	_, err = store.Clients().Get("missing")
	require.ErrorIs(t, err, clients.ErrNotFound)

	require.NoError(t, store.Clients().Delete("web-app"))
	_, err = store.Clients().Get("web-app")
	require.ErrorIs(t, err, clients.ErrNotFound)
}

func storeSession(t *testing.T, store *sqlite.Store, userID string) *sessions.Session {
	t.Helper()

	now := time.Now().UTC()
	session := &sessions.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		AccessTokenID:    uuid.NewString(),
		RefreshTokenHash: sessions.HashRefreshToken(uuid.NewString()),
		IsActive:         true,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Hour),
	}
	require.NoError(t, store.Sessions().Insert(session))
	return session
}

func TestStore_Sessions(t *testing.T) {
	t.Run("lookups", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")
		session := storeSession(t, store, user.ID)

		byHash, err := store.Sessions().GetByRefreshHash(session.RefreshTokenHash)
		require.NoError(t, err)
		require.Equal(t, session.ID, byHash.ID)

		byToken, err := store.Sessions().GetByAccessTokenID(session.AccessTokenID)
		require.NoError(t, err)
		require.Equal(t, session.ID, byToken.ID)

		_, err = store.Sessions().GetByRefreshHash("missing")
		require.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("conditional rotation", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")
		session := storeSession(t, store, user.ID)

		newHash := sessions.HashRefreshToken(uuid.NewString())
		newTokenID := uuid.NewString()
		newExpiry := time.Now().UTC().Add(2 * time.Hour)

		rotated, err := store.Sessions().RotateRefreshHash(session.ID, session.RefreshTokenHash, newHash, newTokenID, newExpiry)
		require.NoError(t, err)
		require.True(t, rotated)

		// The same old hash cannot win twice
		rotated, err = store.Sessions().RotateRefreshHash(session.ID, session.RefreshTokenHash, sessions.HashRefreshToken(uuid.NewString()), uuid.NewString(), newExpiry)
		require.NoError(t, err)
		require.False(t, rotated)

		got, err := store.Sessions().GetByID(session.ID)
		require.NoError(t, err)
		require.Equal(t, newHash, got.RefreshTokenHash)
		require.Equal(t, newTokenID, got.AccessTokenID)
	})

	t.Run("rotation refuses revoked sessions", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")
		session := storeSession(t, store, user.ID)

		require.NoError(t, store.Sessions().MarkRevoked(session.ID))

		rotated, err := store.Sessions().RotateRefreshHash(session.ID, session.RefreshTokenHash, sessions.HashRefreshToken(uuid.NewString()), uuid.NewString(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.False(t, rotated)
	})

	t.Run("deleting a user removes its sessions", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")
		session := storeSession(t, store, user.ID)

		require.NoError(t, store.Delete(user.ID))

		_, err := store.Sessions().GetByID(session.ID)
		require.ErrorIs(t, err, sessions.ErrNotFound)

		_, err = store.Sessions().GetByRefreshHash(session.RefreshTokenHash)
		require.ErrorIs(t, err, sessions.ErrNotFound)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		store := openStore(t)
		user := storeUser(t, store, "alice")
		first := storeSession(t, store, user.ID)
		second := storeSession(t, store, user.ID)

		require.NoError(t, store.Sessions().RevokeAllForUser(user.ID))

		for _, id := range []string{first.ID, second.ID} {
			got, err := store.Sessions().GetByID(id)
			require.NoError(t, err)
			require.True(t, got.Revoked)
			require.False(t, got.IsActive)
		}
	})
}

func TestStore_Codes(t *testing.T) {
	insertCode := func(t *testing.T, store *sqlite.Store, expiresAt time.Time) *authcodes.Code {
		t.Helper()
		code := &authcodes.Code{
			Code:                uuid.NewString(),
			UserID:              "user-1",
			ClientID:            "web-app",
			RedirectURI:         "https://app.test/callback",
			CodeChallenge:       "challenge",
			CodeChallengeMethod: "S256",
			Scope:               "openid",
			CreatedAt:           time.Now().UTC(),
			ExpiresAt:           expiresAt,
		}
		require.NoError(t, store.Codes().Insert(code))
		return code
	}

	t.Run("consume is single use", func(t *testing.T) {
		store := openStore(t)
		code := insertCode(t, store, time.Now().UTC().Add(10*time.Minute))

		got, err := store.Codes().ConsumeUnused(code.Code, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, got.Used)
		require.Equal(t, code.CodeChallenge, got.CodeChallenge)

		_, err = store.Codes().ConsumeUnused(code.Code, time.Now().UTC())
		require.ErrorIs(t, err, authcodes.ErrNotConsumable)
	})

	t.Run("expired code cannot be consumed", func(t *testing.T) {
		store := openStore(t)
		code := insertCode(t, store, time.Now().UTC().Add(-time.Minute))

		_, err := store.Codes().ConsumeUnused(code.Code, time.Now().UTC())
		require.ErrorIs(t, err, authcodes.ErrNotConsumable)
	})
}

func TestStore_Audit(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Audit().Record(audit.Event{
		UserID:    "user-1",
		Action:    audit.ActionLogin,
		Details:   "grant_type=password",
		IPAddress: "127.0.0.1",
		UserAgent: "test-agent",
		CreatedAt: time.Now().UTC(),
	}))

	var count int
	require.NoError(t, store.DB().QueryRow(
		`SELECT COUNT(*) FROM audit_events WHERE action = ?`, audit.ActionLogin).Scan(&count))
	require.Equal(t, 1, count)
}
