package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/users"
)

func TestValidatePasswordStrength(t *testing.T) {
	t.Run("valid password", func(t *testing.T) {
		require.NoError(t, users.ValidatePasswordStrength("Password1"))
	})

	t.Run("too short", func(t *testing.T) {
		require.Error(t, users.ValidatePasswordStrength("Pw1"))
	})

	t.Run("missing uppercase", func(t *testing.T) {
		require.Error(t, users.ValidatePasswordStrength("password1"))
	})

	t.Run("missing lowercase", func(t *testing.T) {
		require.Error(t, users.ValidatePasswordStrength("PASSWORD1"))
	})

	t.Run("missing number", func(t *testing.T) {
		require.Error(t, users.ValidatePasswordStrength("Passwords"))
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := users.HashPassword("Password1")
	require.NoError(t, err)
	require.NotEqual(t, "Password1", hash)

	require.True(t, users.CheckPasswordHash("Password1", hash))
	require.False(t, users.CheckPasswordHash("Password2", hash))
	require.False(t, users.CheckPasswordHash("Password1", hash[:len(hash)-1]+"x"))

	// Each hash carries its own salt
	otherHash, err := users.HashPassword("Password1")
	require.NoError(t, err)
	require.NotEqual(t, hash, otherHash)
}

func TestUser_Roles(t *testing.T) {
	user := &users.User{
		ID:    "user-1",
		Roles: rbac.DefaultRoles(),
	}

	require.ElementsMatch(t, []string{"Admin", "User"}, user.RoleNames())
	require.True(t, user.HasRole("Admin"))
	require.True(t, user.HasRole("admin"))
	require.False(t, user.HasRole("Auditor"))
}
