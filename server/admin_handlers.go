package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-identity-server/audit"
)

const adminListPageSize = 500

// AdminDashboardHandler summarises the system for administrators: user and
// client counts plus the user list. Reachable only through the Admin role.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userList, err := s.repos.Users.List(0, adminListPageSize)
		if err != nil {
			writeJSONError(w, "server_error", "failed to list users", http.StatusInternalServerError)
			return
		}
		clientList, err := s.repos.Clients.List(0, adminListPageSize)
		if err != nil {
			writeJSONError(w, "server_error", "failed to list clients", http.StatusInternalServerError)
			return
		}

		admin := userFromContext(r.Context())
		resp := map[string]any{
			"message":      "Welcome to the admin dashboard, " + admin.Username,
			"user_count":   len(userList),
			"client_count": len(clientList),
			"users":        userList,
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// RotateKeysHandler rotates the ID-token signing key. The old public key
// stays in the JWKS until a later DropRetired, so outstanding ID tokens keep
// verifying.
func (s *Server) RotateKeysHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.keys.Rotate(); err != nil {
			writeJSONError(w, "server_error", "failed to rotate keys", http.StatusInternalServerError)
			return
		}

		admin := userFromContext(r.Context())
		s.recordAudit(r, admin.ID, audit.ActionKeyRotated, "kid="+s.keys.ActiveKeyID())

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"active_kid": s.keys.ActiveKeyID()})
	}
}
