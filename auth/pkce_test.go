package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/auth"
)

func TestVerifyCodeVerifier(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := auth.S256Challenge(verifier)

	t.Run("S256 round trip", func(t *testing.T) {
		require.True(t, auth.VerifyCodeVerifier(verifier, challenge, "S256"))
	})

	t.Run("S256 wrong verifier", func(t *testing.T) {
		require.False(t, auth.VerifyCodeVerifier("not-the-verifier", challenge, "S256"))
	})

	t.Run("method is case sensitive", func(t *testing.T) {
		require.False(t, auth.VerifyCodeVerifier(verifier, challenge, "s256"))
	})

	t.Run("plain compares verbatim", func(t *testing.T) {
		require.True(t, auth.VerifyCodeVerifier("plain-value", "plain-value", "plain"))
		require.False(t, auth.VerifyCodeVerifier("plain-value", "other-value", "plain"))
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		require.False(t, auth.VerifyCodeVerifier(verifier, challenge, "sha1"))
	})

	t.Run("empty method rejected", func(t *testing.T) {
		require.False(t, auth.VerifyCodeVerifier(verifier, challenge, ""))
	})
}
