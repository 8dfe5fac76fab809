package auth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/authcodes"
	"github.com/jrsteele09/go-identity-server/clients"
	"github.com/jrsteele09/go-identity-server/oauth2"
	"github.com/jrsteele09/go-identity-server/sessions"
	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
)

// Repos holds the repository dependencies of the Service.
type Repos struct {
	Users   users.UserRepo
	Clients clients.Repo
}

// Service is the grant dispatcher: given a typed grant it drives credential
// verification, code consumption, PKCE verification and the session
// lifecycle to produce a token response.
type Service struct {
	repos           Repos
	sessionManager  *sessions.Manager
	codeStore       *authcodes.Store
	minter          *token.Minter
	defaultAudience string
	idTokenTTL      time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithIDTokenExpiry sets the ID token lifetime.
func WithIDTokenExpiry(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.idTokenTTL = ttl
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(
	repos Repos,
	sessionManager *sessions.Manager,
	codeStore *authcodes.Store,
	minter *token.Minter,
	defaultAudience string,
	options ...ServiceOption,
) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewService] Clients repo is required")
	}
	if sessionManager == nil {
		return nil, errors.New("[NewService] session manager is required")
	}
	if codeStore == nil {
		return nil, errors.New("[NewService] code store is required")
	}
	if minter == nil {
		return nil, errors.New("[NewService] token minter is required")
	}

	s := &Service{
		repos:           repos,
		sessionManager:  sessionManager,
		codeStore:       codeStore,
		minter:          minter,
		defaultAudience: defaultAudience,
		idTokenTTL:      time.Hour,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Token handles a token request for any supported grant.
func (s *Service) Token(grant Grant) (*oauth2.TokenResponse, error) {
	if grant == nil {
		return nil, ErrUnsupportedGrant
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	switch g := grant.(type) {
	case PasswordGrant:
		return s.passwordGrant(g)
	case AuthorizationCodeGrant:
		return s.authorizationCodeGrant(g)
	default:
		return nil, ErrUnsupportedGrant
	}
}

// passwordGrant verifies resource-owner credentials and starts a session.
// Unknown user and wrong password are indistinguishable in the response.
func (s *Service) passwordGrant(g PasswordGrant) (*oauth2.TokenResponse, error) {
	user, err := s.AuthenticateCredentials(g.Username, g.Password)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user, s.defaultAudience, "")
}

// authorizationCodeGrant consumes a single-use code, checks its bindings
// and PKCE challenge, then starts a session for the code's principal.
func (s *Service) authorizationCodeGrant(g AuthorizationCodeGrant) (*oauth2.TokenResponse, error) {
	client, err := s.repos.Clients.Get(g.ClientID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, errors.Wrap(err, "[Service.authorizationCodeGrant] Clients.Get")
	}

	if !client.HasRedirectURI(g.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	// Atomic consume: lookup and the used flip happen in one operation, so
	// a second exchange of the same code observes it as already used.
	code, err := s.codeStore.Consume(g.Code)
	if err != nil {
		if errors.Is(err, authcodes.ErrNotConsumable) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, errors.Wrap(err, "[Service.authorizationCodeGrant] Consume")
	}

	// Defend against code substitution across clients or redirect URIs.
	if code.ClientID != client.ID || code.RedirectURI != g.RedirectURI {
		return nil, ErrCodeBindingMismatch
	}

	if code.CodeChallenge != "" {
		if !VerifyCodeVerifier(g.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
			return nil, ErrInvalidCodeVerifier
		}
	}

	user, err := s.repos.Users.GetByID(code.UserID)
	if err != nil || !user.Active {
		return nil, ErrInvalidCredential
	}

	return s.issueTokens(user, client.ID, code.Scope)
}

// Refresh rotates a raw refresh token via the session lifecycle manager and
// returns a fresh token bundle. The superseded raw token is invalid from
// this point, whether or not the client receives the response.
func (s *Service) Refresh(rawRefreshToken string) (*oauth2.TokenResponse, error) {
	if rawRefreshToken == "" {
		return nil, errors.Wrap(ErrMissingParameter, "refresh_token is required")
	}

	bundle, err := s.sessionManager.Rotate(rawRefreshToken)
	if err != nil {
		return nil, err
	}

	return &oauth2.TokenResponse{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.sessionManager.AccessTTL().Seconds()),
	}, nil
}

// Logout revokes the session identified by a raw refresh token. Idempotent
// from the client's perspective: an unknown token is still a successful
// logout.
func (s *Service) Logout(rawRefreshToken string) error {
	err := s.sessionManager.RevokeByRefreshToken(rawRefreshToken)
	if err != nil && !errors.Is(err, ErrInvalidCredential) {
		return errors.Wrap(err, "[Service.Logout]")
	}
	return nil
}

// AuthenticateCredentials verifies a username/password pair and returns the
// principal. Used by the password grant and by the interactive authorize
// login form.
func (s *Service) AuthenticateCredentials(username, password string) (*users.User, error) {
	user, err := s.repos.Users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, errors.Wrap(err, "[Service.AuthenticateCredentials] GetByUsername")
	}
	if !user.Active {
		return nil, ErrInvalidCredential
	}
	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredential
	}
	return user, nil
}

// AuthorizeParams carries the validated query parameters of an interactive
// authorization request.
type AuthorizeParams struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// ValidateAuthorizationRequest checks the client and redirect URI of an
// authorization request before any credentials are collected. The redirect
// URI must match a registered URI exactly; on mismatch the caller must show
// an error page, never redirect.
func (s *Service) ValidateAuthorizationRequest(clientID, redirectURI string) (*clients.Client, error) {
	client, err := s.repos.Clients.Get(clientID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, errors.Wrap(err, "[Service.ValidateAuthorizationRequest] Clients.Get")
	}
	if !client.HasRedirectURI(redirectURI) {
		return nil, ErrInvalidRedirectURI
	}
	return client, nil
}

// IssueAuthorizationCode authenticates the resource owner and mints a
// single-use authorization code bound to the client and redirect URI.
func (s *Service) IssueAuthorizationCode(username, password string, params AuthorizeParams) (*authcodes.Code, error) {
	client, err := s.ValidateAuthorizationRequest(params.ClientID, params.RedirectURI)
	if err != nil {
		return nil, err
	}

	user, err := s.AuthenticateCredentials(username, password)
	if err != nil {
		return nil, err
	}

	code, err := s.codeStore.Issue(authcodes.IssueParams{
		UserID:              user.ID,
		ClientID:            client.ID,
		RedirectURI:         params.RedirectURI,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		Scope:               params.Scope,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueAuthorizationCode] Issue")
	}
	return code, nil
}

// ChangePassword re-hashes the user's password and revokes every active
// session, so the old refresh tokens cannot outlive the old credential.
func (s *Service) ChangePassword(userID, newPassword string) error {
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	user, err := s.repos.Users.GetByID(userID)
	if err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] GetByID")
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] HashPassword")
	}

	user.PasswordHash = hash
	if err := s.repos.Users.Upsert(user); err != nil {
		return errors.Wrap(err, "[Service.ChangePassword] Upsert")
	}

	return s.sessionManager.RevokeAllForUser(userID)
}

// AssignRoles replaces the user's role set and revokes every active session,
// so a privilege change takes effect immediately rather than after refresh.
func (s *Service) AssignRoles(userID string, roleNames []string) error {
	if err := s.repos.Users.SetRoles(userID, roleNames); err != nil {
		return errors.Wrap(err, "[Service.AssignRoles] SetRoles")
	}
	return s.sessionManager.RevokeAllForUser(userID)
}

func (s *Service) issueTokens(user *users.User, audience, scope string) (*oauth2.TokenResponse, error) {
	bundle, err := s.sessionManager.Start(user)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueTokens] Start")
	}

	idToken, err := s.minter.IDToken(user, audience, s.idTokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueTokens] IDToken")
	}

	return &oauth2.TokenResponse{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		IDToken:      idToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.sessionManager.AccessTTL().Seconds()),
		Scope:        scope,
	}, nil
}
