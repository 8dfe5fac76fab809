package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/token"
	"github.com/jrsteele09/go-identity-server/users"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrSessionRevoked    = errors.New("session revoked")
	ErrSessionExpired    = errors.New("session expired")
)

// TokenBundle is the result of starting or rotating a session. RefreshToken
// carries the raw secret; this response is the only place it ever exists.
type TokenBundle struct {
	Session      *Session
	AccessToken  string
	RefreshToken string
}

// Manager owns the session/refresh-token state machine: creation, rotation,
// revocation and lazy expiry detection.
type Manager struct {
	repo       Repo
	userRepo   users.UserRepo
	minter     *token.Minter
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time
}

type ManagerOption func(*Manager)

// WithTokenExpiry sets the access and refresh token lifetimes.
func WithTokenExpiry(accessTTL, refreshTTL time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTTL = accessTTL
		m.refreshTTL = refreshTTL
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(repo Repo, userRepo users.UserRepo, minter *token.Minter, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if userRepo == nil {
		return nil, errors.New("[NewManager] user repo is required")
	}
	if minter == nil {
		return nil, errors.New("[NewManager] token minter is required")
	}

	m := &Manager{
		repo:       repo,
		userRepo:   userRepo,
		minter:     minter,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Start creates a fresh session for a verified principal: a new raw refresh
// token (stored only as its hash), a signed access token linked to the row,
// and a session valid until now+refreshTTL.
func (m *Manager) Start(user *users.User) (*TokenBundle, error) {
	rawRefresh, err := NewRawRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Start]")
	}

	accessToken, tokenID, err := m.minter.AccessToken(user, m.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Start] AccessToken")
	}

	now := m.nowFunc()
	session := &Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		AccessTokenID:    tokenID,
		RefreshTokenHash: HashRefreshToken(rawRefresh),
		IsActive:         true,
		Revoked:          false,
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.refreshTTL),
	}

	if err := m.repo.Insert(session); err != nil {
		return nil, errors.Wrap(err, "[Manager.Start] Insert")
	}

	return &TokenBundle{
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
	}, nil
}

// Rotate exchanges a raw refresh token for a new one, invalidating the old
// value. The stored hash, access-token id and expiry are overwritten on the
// same row in a single conditional write, so a replayed old token can never
// rotate a session a legitimate client has already rotated.
func (m *Manager) Rotate(rawRefreshToken string) (*TokenBundle, error) {
	oldHash := HashRefreshToken(rawRefreshToken)

	session, err := m.repo.GetByRefreshHash(oldHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, errors.Wrap(err, "[Manager.Rotate] GetByRefreshHash")
	}

	// Expiry dominates: an expired session always fails refresh, whether or
	// not it was already flagged revoked.
	if _, err := m.ReconcileExpiry(session); err != nil {
		return nil, err
	}

	if session.Revoked || !session.IsActive {
		return nil, ErrSessionRevoked
	}

	user, err := m.userRepo.GetByID(session.UserID)
	if err != nil {
		// An orphaned session (its principal was deleted) is no longer a
		// usable credential.
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, errors.Wrap(err, "[Manager.Rotate] GetByID")
	}

	newRaw, err := NewRawRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate]")
	}
	newHash := HashRefreshToken(newRaw)

	accessToken, tokenID, err := m.minter.AccessToken(user, m.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate] AccessToken")
	}

	newExpiry := m.nowFunc().Add(m.refreshTTL)
	rotated, err := m.repo.RotateRefreshHash(session.ID, oldHash, newHash, tokenID, newExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate] RotateRefreshHash")
	}
	if !rotated {
		// A concurrent rotation won the conditional write. Treat the losing
		// token as invalid - it may be a stolen-and-replayed old value.
		return nil, ErrInvalidCredential
	}

	session.RefreshTokenHash = newHash
	session.AccessTokenID = tokenID
	session.ExpiresAt = newExpiry

	return &TokenBundle{
		Session:      session,
		AccessToken:  accessToken,
		RefreshToken: newRaw,
	}, nil
}

// ReconcileExpiry lazily detects expiry at use-time. When the session's
// expiry has passed it is flagged revoked and inactive, and ErrSessionExpired
// is returned. The boolean reports whether a revocation write occurred, so
// callers and tests can assert on the side effect rather than discover it.
func (m *Manager) ReconcileExpiry(session *Session) (bool, error) {
	if m.nowFunc().Before(session.ExpiresAt) {
		return false, nil
	}

	wrote := false
	if !session.Revoked || session.IsActive {
		if err := m.repo.MarkRevoked(session.ID); err != nil {
			return false, errors.Wrap(err, "[Manager.ReconcileExpiry] MarkRevoked")
		}
		session.Revoked = true
		session.IsActive = false
		wrote = true
	}
	return wrote, ErrSessionExpired
}

// Revoke terminally invalidates a session. Idempotent.
func (m *Manager) Revoke(session *Session) error {
	if err := m.repo.MarkRevoked(session.ID); err != nil {
		return errors.Wrap(err, "[Manager.Revoke] MarkRevoked")
	}
	session.Revoked = true
	session.IsActive = false
	return nil
}

// RevokeByRefreshToken resolves a session from a raw refresh token and
// revokes it. Used by logout, where the client holds only the raw token.
func (m *Manager) RevokeByRefreshToken(rawRefreshToken string) error {
	session, err := m.repo.GetByRefreshHash(HashRefreshToken(rawRefreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidCredential
		}
		return errors.Wrap(err, "[Manager.RevokeByRefreshToken] GetByRefreshHash")
	}
	return m.Revoke(session)
}

// RevokeAllForUser bulk-revokes every active session for a principal.
// Invoked on password and role changes so that credential or privilege
// changes cannot be bypassed via an already-issued refresh token.
func (m *Manager) RevokeAllForUser(userID string) error {
	if err := m.repo.RevokeAllForUser(userID); err != nil {
		return errors.Wrap(err, "[Manager.RevokeAllForUser]")
	}
	return nil
}

// GetByAccessTokenID resolves the session linked to an access token id.
func (m *Manager) GetByAccessTokenID(tokenID string) (*Session, error) {
	session, err := m.repo.GetByAccessTokenID(tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "[Manager.GetByAccessTokenID]")
	}
	return session, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}
