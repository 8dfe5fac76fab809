package rbac

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	roleNamePattern       = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	permissionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
)

var (
	ErrInvalidRoleName       = errors.New("role name can only contain alphanumeric characters and underscores")
	ErrInvalidPermissionName = errors.New("permission name can only contain alphanumeric characters, underscores and dots")
)

// Permission represents a single named capability, e.g. "users.read".
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Role bundles a set of permissions under a single name.
type Role struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// NewRole creates a role, validating the name charset.
func NewRole(name, description string, permissions ...Permission) (*Role, error) {
	if err := ValidateRoleName(name); err != nil {
		return nil, errors.Wrap(err, "[NewRole]")
	}
	return &Role{
		Name:        name,
		Description: description,
		Permissions: permissions,
	}, nil
}

// NewPermission creates a permission, validating the name charset.
func NewPermission(name, description string) (*Permission, error) {
	if err := ValidatePermissionName(name); err != nil {
		return nil, errors.Wrap(err, "[NewPermission]")
	}
	return &Permission{Name: name, Description: description}, nil
}

// ValidateRoleName checks that a role name is non-empty and charset-restricted.
func ValidateRoleName(name string) error {
	if name == "" || !roleNamePattern.MatchString(name) {
		return ErrInvalidRoleName
	}
	return nil
}

// ValidatePermissionName checks that a permission name is non-empty and charset-restricted.
func ValidatePermissionName(name string) error {
	if name == "" || !permissionNamePattern.MatchString(name) {
		return ErrInvalidPermissionName
	}
	return nil
}

// HasPermission reports whether the role grants the named permission.
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// RoleNames flattens a role set into its names, used for token claims.
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

// IntersectNames reports whether any of the held role names matches any of
// the required names, compared case-insensitively.
func IntersectNames(held, required []string) bool {
	for _, h := range held {
		for _, r := range required {
			if strings.EqualFold(h, r) {
				return true
			}
		}
	}
	return false
}
