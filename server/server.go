package server

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-identity-server/audit"
	"github.com/jrsteele09/go-identity-server/auth"
	"github.com/jrsteele09/go-identity-server/authcodes"
	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/internal/config"
	"github.com/jrsteele09/go-identity-server/sessions"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/token/keys"
	"github.com/jrsteele09/go-identity-server/users"
)

// Repos holds the persistence dependencies of the Server. A *sqlite.Store
// satisfies all four; tests mix and match fakes.
type Repos struct {
	Users    users.UserRepo
	Clients  clients.Repo
	Sessions sessions.Repo
	Codes    authcodes.Repo
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	repos  Repos

	auth    *auth.Service
	guard   *auth.Guard
	keys    *keys.Provider
	auditor audit.Recorder

	loginTmpl *template.Template
}

func New(cfg config.Config, repos Repos, auditor audit.Recorder) (*Server, error) {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}

	keyProvider, err := keys.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create key provider: %w", err)
	}

	accessSigner := token.NewHMACSigner(cfg.GetAccessTokenSecret())
	minter := token.NewMinter(accessSigner, keyProvider, cfg.GetIssuer())

	sessionManager, err := sessions.NewManager(repos.Sessions, repos.Users, minter,
		sessions.WithTokenExpiry(cfg.GetDefaultAccessTokenExpiry(), cfg.GetDefaultRefreshTokenExpiry()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session manager: %w", err)
	}

	codeStore, err := authcodes.NewStore(repos.Codes, authcodes.WithTTL(cfg.GetAuthCodeTimeout()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create code store: %w", err)
	}

	authService, err := auth.NewService(
		auth.Repos{Users: repos.Users, Clients: repos.Clients},
		sessionManager,
		codeStore,
		minter,
		cfg.GetDefaultAudience(),
		auth.WithIDTokenExpiry(cfg.GetDefaultIDTokenExpiry()),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}

	guard, err := auth.NewGuard(minter, sessionManager, repos.Users)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create guard: %w", err)
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		repos:   repos,
		auth:    authService,
		guard:   guard,
		keys:    keyProvider,
		auditor: auditor,
	}
	s.env = cfg.GetEnv()

	s.loginTmpl, err = template.New("login").Parse(loginPageHTML)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse login template: %w", err)
	}

	// Bootstrap: ensure the default roles, admin user and admin client exist
	if err := s.InitialiseSystem(); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
