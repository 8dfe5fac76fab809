package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) initRoutes() {
	// Token endpoints
	s.RegisterRouteHandler("POST "+RouteAuthToken, ChainMiddleware(s.TokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthTokenRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Account endpoints
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Authorization code flow (HTML login form)
	s.RegisterRouteHandler("GET "+RouteAuthAuthorize, ChainMiddleware(s.AuthorizeGetHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthAuthorize, ChainMiddleware(s.AuthorizePostHandler(), s.HTMLMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))

	// Admin endpoints (Admin role required)
	s.RegisterRouteHandler("GET "+RouteAdminDashboard, ChainMiddleware(s.AdminDashboardHandler(), s.APIMiddleware(s.RequireAuth("Admin"))...))
	s.RegisterRouteHandler("POST "+RouteAdminKeysRotate, ChainMiddleware(s.RotateKeysHandler(), s.APIMiddleware(s.RequireAuth("Admin"))...))

	// OIDC key discovery
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
