package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/users"
)

const (
	DefaultAdminUsername = "admin"
	DefaultClientID      = "default-client"
)

// InitialiseSystem creates the admin user and the default public OAuth
// client if they do not already exist. The admin password comes from
// ADMIN_PASSWORD, or is generated and printed once on first boot.
func (s *Server) InitialiseSystem() error {
	if err := s.createDefaultClient(); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap default client: %w", err)
	}

	generatedPassword, err := s.createAdminUser()
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin user: %w", err)
	}

	if generatedPassword != "" {
		log.Printf("Admin credentials (first boot):")
		log.Printf("   Username:    %s", config.GetEnv("ADMIN_USERNAME", DefaultAdminUsername))
		log.Printf("   Password:    %s", generatedPassword)
		log.Printf("Authorization: %s%s", s.config.GetBaseURL(), RouteAuthAuthorize)
		log.Printf("Token:         %s%s", s.config.GetBaseURL(), RouteAuthToken)
		log.Printf("JWKS:          %s%s", s.config.GetBaseURL(), RouteWellKnownJWKS)
	}

	return nil
}

func (s *Server) createDefaultClient() error {
	if _, err := s.repos.Clients.Get(DefaultClientID); err == nil {
		return nil
	} else if !errors.Is(err, clients.ErrNotFound) {
		return err
	}

	return s.repos.Clients.Upsert(&clients.Client{
		ID:           DefaultClientID,
		Name:         s.config.GetAppName(),
		RedirectURIs: []string{s.config.GetBaseURL() + "/callback"},
		Confidential: false, // public client, PKCE required
		CreatedAt:    time.Now().UTC(),
	})
}

// createAdminUser returns the generated password on first creation, empty
// when the admin already exists or ADMIN_PASSWORD is set.
func (s *Server) createAdminUser() (string, error) {
	username := config.GetEnv("ADMIN_USERNAME", DefaultAdminUsername)

	if _, err := s.repos.Users.GetByUsername(username); err == nil {
		return "", nil
	} else if !errors.Is(err, users.ErrNotFound) {
		return "", err
	}

	password := config.GetEnv("ADMIN_PASSWORD", "")
	generated := ""
	if password == "" {
		randomBytes := make([]byte, 18)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", err
		}
		password = base64.RawURLEncoding.EncodeToString(randomBytes)
		generated = password
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return "", err
	}

	admin := &users.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        config.GetEnv("ADMIN_EMAIL", username+"@localhost"),
		FullName:     "Administrator",
		PasswordHash: passwordHash,
		Roles:        rbac.DefaultRoles(),
		Active:       true,
		DateJoined:   time.Now().UTC(),
	}
	if err := s.repos.Users.Upsert(admin); err != nil {
		return "", err
	}
	return generated, nil
}
