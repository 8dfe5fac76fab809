package fakesessionrepo

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-identity-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory session store. A single mutex serializes
// all mutations, which makes the conditional rotate genuinely atomic the
// same way a transactional conditional update would be.
type FakeSessionRepo struct {
	byID      map[string]*sessions.Session
	byHash    map[string]string // refresh-token hash to session id
	byTokenID map[string]string // access-token id to session id
	lock      sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		byID:      make(map[string]*sessions.Session),
		byHash:    make(map[string]string),
		byTokenID: make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Insert(session *sessions.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	stored := *session
	sr.byID[stored.ID] = &stored
	sr.byHash[stored.RefreshTokenHash] = stored.ID
	sr.byTokenID[stored.AccessTokenID] = stored.ID
	return nil
}

func (sr *FakeSessionRepo) GetByID(id string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.byID[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) GetByRefreshHash(hash string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	id, ok := sr.byHash[hash]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *sr.byID[id]
	return &copied, nil
}

func (sr *FakeSessionRepo) GetByAccessTokenID(tokenID string) (*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	id, ok := sr.byTokenID[tokenID]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := *sr.byID[id]
	return &copied, nil
}

func (sr *FakeSessionRepo) RotateRefreshHash(id, oldHash, newHash, accessTokenID string, expiresAt time.Time) (bool, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.byID[id]
	if !ok || session.RefreshTokenHash != oldHash || !session.IsActive || session.Revoked {
		return false, nil
	}

	delete(sr.byHash, oldHash)
	delete(sr.byTokenID, session.AccessTokenID)

	session.RefreshTokenHash = newHash
	session.AccessTokenID = accessTokenID
	session.ExpiresAt = expiresAt

	sr.byHash[newHash] = id
	sr.byTokenID[accessTokenID] = id
	return true, nil
}

func (sr *FakeSessionRepo) MarkRevoked(id string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.byID[id]
	if !ok {
		return sessions.ErrNotFound
	}
	session.Revoked = true
	session.IsActive = false
	return nil
}

func (sr *FakeSessionRepo) RevokeAllForUser(userID string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	for _, session := range sr.byID {
		if session.UserID == userID {
			session.Revoked = true
			session.IsActive = false
		}
	}
	return nil
}
