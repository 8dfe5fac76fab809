package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Tokens
	RouteAuthToken        = "/auth/token"
	RouteAuthTokenRefresh = "/auth/token/refresh"

	// Auth Routes - Account
	RouteAuthRegister = "/auth/register"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthMe       = "/auth/me"

	// Auth Routes - Authorization code flow
	RouteAuthAuthorize = "/auth/authorize"
	RouteCallback      = "/callback"

	// Admin Routes
	RouteAdminDashboard  = "/admin/dashboard"
	RouteAdminKeysRotate = "/admin/keys/rotate"

	// OAuth2 / OIDC Routes
	RouteWellKnownJWKS = "/.well-known/jwks.json"

	// Operational Routes
	RouteHealth = "/health"
)
