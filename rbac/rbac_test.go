package rbac_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-identity-server/rbac"
)

func TestNewRole(t *testing.T) {
	t.Run("valid name", func(t *testing.T) {
		role, err := rbac.NewRole("Support_2", "second-line support")
		require.NoError(t, err)
		require.Equal(t, "Support_2", role.Name)
	})

	t.Run("invalid characters", func(t *testing.T) {
		_, err := rbac.NewRole("Support Team", "spaces not allowed")
		require.ErrorIs(t, err, rbac.ErrInvalidRoleName)

		_, err = rbac.NewRole("admin!", "")
		require.ErrorIs(t, err, rbac.ErrInvalidRoleName)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := rbac.NewRole("", "")
		require.ErrorIs(t, err, rbac.ErrInvalidRoleName)
	})
}

func TestNewPermission(t *testing.T) {
	t.Run("dots allowed", func(t *testing.T) {
		perm, err := rbac.NewPermission("users.read", "read users")
		require.NoError(t, err)
		require.Equal(t, "users.read", perm.Name)
	})

	t.Run("invalid characters", func(t *testing.T) {
		_, err := rbac.NewPermission("users/read", "")
		require.ErrorIs(t, err, rbac.ErrInvalidPermissionName)
	})
}

func TestRole_HasPermission(t *testing.T) {
	admin := rbac.DefaultRoles()[0]
	require.True(t, admin.HasPermission("users.write"))
	require.False(t, admin.HasPermission("profile.write"))
}

func TestIntersectNames(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		require.True(t, rbac.IntersectNames([]string{"User", "Admin"}, []string{"Admin"}))
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		require.True(t, rbac.IntersectNames([]string{"admin"}, []string{"ADMIN"}))
	})

	t.Run("no overlap", func(t *testing.T) {
		require.False(t, rbac.IntersectNames([]string{"User"}, []string{"Admin"}))
	})

	t.Run("empty sets", func(t *testing.T) {
		require.False(t, rbac.IntersectNames(nil, []string{"Admin"}))
		require.False(t, rbac.IntersectNames([]string{"Admin"}, nil))
	})
}

func TestRoleNames(t *testing.T) {
	require.Equal(t, []string{"Admin", "User"}, rbac.RoleNames(rbac.DefaultRoles()))
	require.Empty(t, rbac.RoleNames(nil))
}
