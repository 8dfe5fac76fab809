package keys_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/token/keys"
)

func signTestToken(t *testing.T, provider *keys.Provider) string {
	t.Helper()
	raw, err := provider.Sign(jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return raw
}

func verifyTestToken(provider *keys.Provider, raw string) error {
	_, err := jwt.Parse(raw, provider.GetVerificationKey,
		jwt.WithValidMethods([]string{"RS256"}))
	return err
}

func TestProvider_SignAndVerify(t *testing.T) {
	provider, err := keys.NewProvider()
	require.NoError(t, err)

	raw := signTestToken(t, provider)
	require.NoError(t, verifyTestToken(provider, raw))
}

func TestProvider_Rotate(t *testing.T) {
	provider, err := keys.NewProvider()
	require.NoError(t, err)

	oldKid := provider.ActiveKeyID()
	oldToken := signTestToken(t, provider)

	require.NoError(t, provider.Rotate())
	require.NotEqual(t, oldKid, provider.ActiveKeyID())

	t.Run("old token verifies through the grace window", func(t *testing.T) {
		require.NoError(t, verifyTestToken(provider, oldToken))
	})

	t.Run("new tokens sign with the new key", func(t *testing.T) {
		newToken := signTestToken(t, provider)
		require.NoError(t, verifyTestToken(provider, newToken))
	})

	t.Run("JWKS publishes active and retired keys", func(t *testing.T) {
		jwks, err := provider.GetJWKS()
		require.NoError(t, err)
		require.Len(t, jwks.Keys, 2)

		kids := []string{jwks.Keys[0].Kid, jwks.Keys[1].Kid}
		require.Contains(t, kids, oldKid)
		require.Contains(t, kids, provider.ActiveKeyID())
	})

	t.Run("DropRetired ends the grace window", func(t *testing.T) {
		provider.DropRetired()

		require.Error(t, verifyTestToken(provider, oldToken))

		jwks, err := provider.GetJWKS()
		require.NoError(t, err)
		require.Len(t, jwks.Keys, 1)
	})
}
