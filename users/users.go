package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-identity-server/rbac"
)

// User is the principal an authentication event resolves to.
type User struct {
	ID           string      `json:"id,omitempty"`          // Unique identifier for the user
	Username     string      `json:"username,omitempty"`    // Unique username
	Email        string      `json:"email,omitempty"`       // User's email address
	FullName     string      `json:"full_name,omitempty"`   // Display name
	PasswordHash string      `json:"-"`                     // Hashed version of the user's password - never serialize
	Roles        []rbac.Role `json:"roles,omitempty"`       // Roles assigned to the user
	Active       bool        `json:"active,omitempty"`      // Inactive users cannot authenticate
	DateJoined   time.Time   `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time   `json:"last_login,omitempty"`  // Last time the user logged in
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash verifies a plaintext password against a stored bcrypt
// hash. bcrypt compares on the derived hash, not the plaintext.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// RoleNames returns the flattened role names for token claims.
func (u *User) RoleNames() []string {
	return rbac.RoleNames(u.Roles)
}

// HasRole reports whether the user holds the named role, case-insensitively.
func (u *User) HasRole(name string) bool {
	return rbac.IntersectNames(u.RoleNames(), []string{name})
}
