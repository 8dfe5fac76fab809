package auth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/rbac"
	"github.com/jrsteele09/go-identity-server/sessions"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
)

// Guard authorizes bearer access tokens against protected operations. It
// verifies the token locally first (signature and expiry - cheap), then
// resolves the linked session and checks its trust state, then the
// principal's roles.
type Guard struct {
	minter         *token.Minter
	sessionManager *sessions.Manager
	userRepo       users.UserRepo
	nowFunc        func() time.Time
}

type GuardOption func(*Guard)

// WithGuardNowFunc sets the now time function (primarily for testing)
func WithGuardNowFunc(now func() time.Time) GuardOption {
	return func(g *Guard) {
		g.nowFunc = now
	}
}

func NewGuard(minter *token.Minter, sessionManager *sessions.Manager, userRepo users.UserRepo, options ...GuardOption) (*Guard, error) {
	if minter == nil {
		return nil, errors.New("[NewGuard] token minter is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewGuard] session manager is required")
	}
	if userRepo == nil {
		return nil, errors.New("[NewGuard] user repo is required")
	}

	g := &Guard{
		minter:         minter,
		sessionManager: sessionManager,
		userRepo:       userRepo,
		nowFunc:        time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// RequireRoles authorizes a raw bearer token against a required role set and
// returns the principal. An empty required set means "authenticated only".
// Role comparison is case-insensitive.
func (g *Guard) RequireRoles(rawAccessToken string, requiredRoles ...string) (*users.User, error) {
	claims, err := g.minter.VerifyAccessToken(rawAccessToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}

	session, err := g.sessionManager.GetByAccessTokenID(claims.TokenID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, errors.Wrap(err, "[Guard.RequireRoles] GetByAccessTokenID")
	}

	if session.Revoked || !session.IsActive {
		return nil, ErrSessionRevoked
	}
	if !g.nowFunc().Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	user, err := g.userRepo.GetByID(session.UserID)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if !user.Active {
		return nil, ErrSessionRevoked
	}

	if len(requiredRoles) == 0 {
		return user, nil
	}

	if !rbac.IntersectNames(user.RoleNames(), requiredRoles) {
		return nil, ErrInsufficientRole
	}
	return user, nil
}

// CurrentUser resolves the authenticated principal for protected endpoints
// that are not role-gated.
func (g *Guard) CurrentUser(rawAccessToken string) (*users.User, error) {
	return g.RequireRoles(rawAccessToken)
}
