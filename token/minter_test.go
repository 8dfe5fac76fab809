package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
)

func testUser(t *testing.T) *users.User {
	t.Helper()
	return &users.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.test",
		FullName: "Alice Example",
		Roles:    rbac.DefaultRoles(),
		Active:   true,
	}
}

func TestMinter_AccessToken(t *testing.T) {
	signer := token.NewHMACSigner("test-secret")
	minter := token.NewMinter(signer, signer, "https://issuer.test")

	raw, tokenID, err := minter.AccessToken(testUser(t), 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	require.NotEmpty(t, tokenID)

	claims, err := minter.VerifyAccessToken(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, tokenID, claims.TokenID)
	require.Contains(t, claims.Roles, "Admin")
	require.Contains(t, claims.Roles, "User")
	require.True(t, claims.Expiry.After(time.Now()))
}

func TestMinter_VerifyAccessToken(t *testing.T) {
	signer := token.NewHMACSigner("test-secret")
	minter := token.NewMinter(signer, signer, "https://issuer.test")

	t.Run("empty token", func(t *testing.T) {
		_, err := minter.VerifyAccessToken("")
		require.ErrorIs(t, err, token.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := minter.VerifyAccessToken("not.a.jwt")
		require.ErrorIs(t, err, token.ErrInvalidToken)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		otherSigner := token.NewHMACSigner("other-secret")
		otherMinter := token.NewMinter(otherSigner, otherSigner, "https://issuer.test")

		raw, _, err := otherMinter.AccessToken(testUser(t), 15*time.Minute)
		require.NoError(t, err)

		_, err = minter.VerifyAccessToken(raw)
		require.ErrorIs(t, err, token.ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		expiredMinter := token.NewMinter(signer, signer, "https://issuer.test",
			token.WithNowFunc(func() time.Time { return past }))

		raw, _, err := expiredMinter.AccessToken(testUser(t), 15*time.Minute)
		require.NoError(t, err)

		_, err = minter.VerifyAccessToken(raw)
		require.ErrorIs(t, err, token.ErrTokenExpired)
	})
}

func TestMinter_IDToken(t *testing.T) {
	signer := token.NewHMACSigner("test-secret")
	minter := token.NewMinter(signer, signer, "https://issuer.test")

	raw, err := minter.IDToken(testUser(t), "web-app", time.Hour)
	require.NoError(t, err)

	parsed, err := jwt.Parse(raw, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	require.Equal(t, "https://issuer.test", claims["iss"])
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "web-app", claims["aud"])
	require.Equal(t, "Alice Example", claims["name"])
	require.Equal(t, "alice@example.test", claims["email"])
}
