package authcodes_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/authcodes"
	fakecoderepo "github.com/jrsteele09/go-identity-server/authcodes/repofakes"
)

func issueParams() authcodes.IssueParams {
	return authcodes.IssueParams{
		UserID:              "user-1",
		ClientID:            "web-app",
		RedirectURI:         "https://app.test/callback",
		CodeChallenge:       "challenge",
		CodeChallengeMethod: "S256",
		Scope:               "openid",
	}
}

func TestStore_Issue(t *testing.T) {
	store, err := authcodes.NewStore(fakecoderepo.NewFakeCodeRepo())
	require.NoError(t, err)

	code, err := store.Issue(issueParams())
	require.NoError(t, err)
	require.NotEmpty(t, code.Code)
	require.False(t, code.Used)
	require.Equal(t, "user-1", code.UserID)
	require.Equal(t, "web-app", code.ClientID)
	require.True(t, code.ExpiresAt.After(code.CreatedAt))

	other, err := store.Issue(issueParams())
	require.NoError(t, err)
	require.NotEqual(t, code.Code, other.Code)
}

func TestStore_Consume(t *testing.T) {
	t.Run("consume returns the bound code", func(t *testing.T) {
		store, err := authcodes.NewStore(fakecoderepo.NewFakeCodeRepo())
		require.NoError(t, err)

		issued, err := store.Issue(issueParams())
		require.NoError(t, err)

		consumed, err := store.Consume(issued.Code)
		require.NoError(t, err)
		require.Equal(t, issued.UserID, consumed.UserID)
		require.Equal(t, issued.CodeChallenge, consumed.CodeChallenge)
		require.True(t, consumed.Used)
	})

	t.Run("second consume fails", func(t *testing.T) {
		store, err := authcodes.NewStore(fakecoderepo.NewFakeCodeRepo())
		require.NoError(t, err)

		issued, err := store.Issue(issueParams())
		require.NoError(t, err)

		_, err = store.Consume(issued.Code)
		require.NoError(t, err)

		_, err = store.Consume(issued.Code)
		require.ErrorIs(t, err, authcodes.ErrNotConsumable)
	})

	t.Run("unknown code fails", func(t *testing.T) {
		store, err := authcodes.NewStore(fakecoderepo.NewFakeCodeRepo())
		require.NoError(t, err)

		_, err = store.Consume("never-issued")
		require.ErrorIs(t, err, authcodes.ErrNotConsumable)
	})

	t.Run("expired code fails", func(t *testing.T) {
		now := time.Now()
		store, err := authcodes.NewStore(fakecoderepo.NewFakeCodeRepo(),
			authcodes.WithTTL(10*time.Minute),
			authcodes.WithNowFunc(func() time.Time { return now }))
		require.NoError(t, err)

		issued, err := store.Issue(issueParams())
		require.NoError(t, err)

		now = now.Add(11 * time.Minute)
		_, err = store.Consume(issued.Code)
		require.ErrorIs(t, err, authcodes.ErrNotConsumable)
	})
}
