package authcodes

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/pkg/errors"
)

const (
	codeGenerationLength = 32
	// DefaultTTL is the lifetime of an authorization code.
	DefaultTTL = 10 * time.Minute
)

// Code is a single-use grant artifact bound to a principal, a client and a
// redirect URI, optionally carrying a PKCE challenge.
type Code struct {
	Code                string    `json:"code"`
	UserID              string    `json:"user_id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	Scope               string    `json:"scope,omitempty"`
	Used                bool      `json:"used"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// Store issues and single-use-consumes authorization codes.
type Store struct {
	repo    Repo
	ttl     time.Duration
	nowFunc func() time.Time
}

type StoreOption func(*Store)

// WithTTL overrides the code lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(repo Repo, options ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] code repo is required")
	}
	s := &Store{
		repo:    repo,
		ttl:     DefaultTTL,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// IssueParams carries the bindings stamped onto a new authorization code.
type IssueParams struct {
	UserID              string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
}

// Issue generates an unguessable code string and persists it unused with an
// absolute expiry.
func (s *Store) Issue(params IssueParams) (*Code, error) {
	bytes := make([]byte, codeGenerationLength)
	if _, err := rand.Read(bytes); err != nil {
		return nil, errors.Wrap(err, "[Store.Issue] rand.Read")
	}

	now := s.nowFunc()
	code := &Code{
		Code:                base64.RawURLEncoding.EncodeToString(bytes),
		UserID:              params.UserID,
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		Scope:               params.Scope,
		Used:                false,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.ttl),
	}

	if err := s.repo.Insert(code); err != nil {
		return nil, errors.Wrap(err, "[Store.Issue] Insert")
	}
	return code, nil
}

// Consume atomically looks up and marks a code used, filtered by not-used
// and not-expired. Of two concurrent consumers of the same code string,
// exactly one receives the code; the other gets ErrNotConsumable.
func (s *Store) Consume(codeString string) (*Code, error) {
	code, err := s.repo.ConsumeUnused(codeString, s.nowFunc())
	if err != nil {
		if errors.Is(err, ErrNotConsumable) {
			return nil, ErrNotConsumable
		}
		return nil, errors.Wrap(err, "[Store.Consume]")
	}
	return code, nil
}
