package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-identity-server/audit"
	"github.com/jrsteele09/go-identity-server/auth"
	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/users"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// TokenHandler exchanges credentials or an authorization code for tokens.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		grantType := r.FormValue("grant_type")
		grant, err := auth.ParseGrant(grantType, map[string]string{
			"username":      r.FormValue("username"),
			"password":      r.FormValue("password"),
			"code":          r.FormValue("code"),
			"redirect_uri":  r.FormValue("redirect_uri"),
			"client_id":     r.FormValue("client_id"),
			"code_verifier": r.FormValue("code_verifier"),
		})
		if err != nil {
			errorCode, status := oauthErrorStatus(err)
			writeJSONError(w, errorCode, err.Error(), status)
			return
		}

		tokenResponse, err := s.auth.Token(grant)
		if err != nil {
			s.recordAudit(r, "", audit.ActionLoginFailed, "grant_type="+grantType)
			errorCode, status := oauthErrorStatus(err)
			writeJSONError(w, errorCode, err.Error(), status)
			return
		}

		action := audit.ActionLogin
		if grant.Type() == auth.AuthorizationCodeGrantType {
			action = audit.ActionCodeExchanged
		}
		s.recordAudit(r, "", action, "grant_type="+grantType)

		writeTokenResponse(w, tokenResponse)
	}
}

// RefreshHandler rotates a refresh token and returns a fresh token pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken, err := refreshTokenFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		tokenResponse, err := s.auth.Refresh(refreshToken)
		if err != nil {
			errorCode, status := oauthErrorStatus(err)
			writeJSONError(w, errorCode, err.Error(), status)
			return
		}

		s.recordAudit(r, "", audit.ActionTokenRefresh, "")
		writeTokenResponse(w, tokenResponse)
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// RegisterHandler creates a new user account with the default User role.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse request body", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Email == "" {
			writeJSONError(w, "invalid_request", "username and email are required", http.StatusBadRequest)
			return
		}
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		if _, err := s.repos.Users.GetByUsername(req.Username); err == nil {
			writeJSONError(w, "invalid_request", "username already registered", http.StatusBadRequest)
			return
		} else if !errors.Is(err, users.ErrNotFound) {
			writeJSONError(w, "server_error", "failed to check username", http.StatusInternalServerError)
			return
		}

		passwordHash, err := users.HashPassword(req.Password)
		if err != nil {
			writeJSONError(w, "server_error", "failed to hash password", http.StatusInternalServerError)
			return
		}

		user := &users.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			Email:        req.Email,
			FullName:     req.FullName,
			PasswordHash: passwordHash,
			Roles:        defaultUserRoles(),
			Active:       true,
			DateJoined:   time.Now().UTC(),
		}

		if err := s.repos.Users.Upsert(user); err != nil {
			writeJSONError(w, "server_error", "failed to create user", http.StatusInternalServerError)
			return
		}

		s.recordAudit(r, user.ID, audit.ActionRegister, "username="+user.Username)

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(user)
	}
}

// LogoutHandler revokes the session that owns the presented refresh token.
// Revoking an already revoked session is not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken, err := refreshTokenFromRequest(r)
		if err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		if err := s.auth.Logout(refreshToken); err != nil {
			errorCode, status := oauthErrorStatus(err)
			writeJSONError(w, errorCode, err.Error(), status)
			return
		}

		s.recordAudit(r, "", audit.ActionLogout, "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the authenticated user's profile.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil {
			writeJSONError(w, "invalid_token", "no authenticated user", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(user)
	}
}

// refreshTokenFromRequest accepts the refresh token as a form field or a JSON
// body, depending on the client's Content-Type.
func refreshTokenFromRequest(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", errors.New("failed to parse request body")
		}
		if body.RefreshToken == "" {
			return "", errors.New("refresh_token is required")
		}
		return body.RefreshToken, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", errors.New("failed to parse form data")
	}
	refreshToken := r.FormValue("refresh_token")
	if refreshToken == "" {
		return "", errors.New("refresh_token is required")
	}
	return refreshToken, nil
}

func defaultUserRoles() []rbac.Role {
	for _, role := range rbac.DefaultRoles() {
		if role.Name == "User" {
			return []rbac.Role{role}
		}
	}
	return nil
}

// oauthErrorStatus maps service errors onto OAuth2 error codes and HTTP
// statuses. Unrecognised errors are treated as server faults.
func oauthErrorStatus(err error) (string, int) {
	switch {
	case errors.Is(err, auth.ErrMissingParameter):
		return "invalid_request", http.StatusBadRequest
	case errors.Is(err, auth.ErrUnsupportedGrant):
		return "unsupported_grant_type", http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidClient):
		return "invalid_client", http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidCredential),
		errors.Is(err, auth.ErrSessionRevoked),
		errors.Is(err, auth.ErrSessionExpired):
		return "invalid_grant", http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidRedirectURI),
		errors.Is(err, auth.ErrInvalidOrExpiredCode),
		errors.Is(err, auth.ErrCodeBindingMismatch),
		errors.Is(err, auth.ErrInvalidCodeVerifier):
		return "invalid_grant", http.StatusBadRequest
	default:
		return "server_error", http.StatusInternalServerError
	}
}

func writeTokenResponse(w http.ResponseWriter, tokenResponse any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	_ = json.NewEncoder(w).Encode(tokenResponse)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

func (s *Server) recordAudit(r *http.Request, userID, action, details string) {
	event := audit.Event{
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.auditor.Record(event); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("failed to record audit event")
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
