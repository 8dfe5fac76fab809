package users

import "github.com/pkg/errors"

// ErrNotFound is returned by repos when no user matches the lookup key.
var ErrNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	Delete(id string) error
	GetByUsername(username string) (*User, error)
	GetByID(id string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetActive(id string, active bool) error
	SetRoles(id string, roles []string) error
}
