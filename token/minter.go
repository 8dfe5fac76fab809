package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/users"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims are the verified claims extracted from an access token.
type AccessClaims struct {
	TokenID string   // jti - links the token to its session row
	Subject string   // sub - user id
	Roles   []string // flattened role names
	Expiry  time.Time
}

// Minter builds and signs access tokens and ID tokens for a verified
// principal. Access tokens are signed symmetrically (only this server
// verifies them); ID tokens are signed asymmetrically so relying parties
// can verify them against the published JWKS.
type Minter struct {
	accessSigner Signer
	idSigner     Signer
	issuer       string
	nowFunc      func() time.Time
}

type MinterOption func(*Minter)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) MinterOption {
	return func(m *Minter) {
		m.nowFunc = now
	}
}

func NewMinter(accessSigner, idSigner Signer, issuer string, options ...MinterOption) *Minter {
	m := &Minter{
		accessSigner: accessSigner,
		idSigner:     idSigner,
		issuer:       issuer,
		nowFunc:      time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// AccessToken mints a signed access token for the user and returns it along
// with its token id (jti), which the session row records for later lookup.
func (m *Minter) AccessToken(user *users.User, ttl time.Duration) (string, string, error) {
	tokenID := uuid.New().String()
	claims := jwt.MapClaims{
		"iss":   m.issuer,
		"sub":   user.ID,
		"roles": user.RoleNames(),
		"iat":   m.nowFunc().Unix(),
		"exp":   m.nowFunc().Add(ttl).Unix(),
		"jti":   tokenID,
	}

	signedToken, err := m.accessSigner.Sign(claims)
	if err != nil {
		return "", "", errors.Wrap(err, "[Minter.AccessToken] Sign")
	}
	return signedToken, tokenID, nil
}

// IDToken mints a signed OpenID Connect ID token carrying identity claims
// for the authenticated principal.
func (m *Minter) IDToken(user *users.User, audience string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"iss":   m.issuer,
		"sub":   user.ID,
		"aud":   audience,
		"name":  user.FullName,
		"email": user.Email,
		"roles": user.RoleNames(),
		"iat":   m.nowFunc().Unix(),
		"exp":   m.nowFunc().Add(ttl).Unix(),
		"jti":   uuid.New().String(),
	}

	signedToken, err := m.idSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Minter.IDToken] Sign")
	}
	return signedToken, nil
}

// VerifyAccessToken checks the signature and expiry of a raw access token
// and returns its claims. This is the cheap, local first line of defense;
// session state is checked separately.
func (m *Minter) VerifyAccessToken(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.Parse(rawToken, m.accessSigner.GetVerificationKey,
		jwt.WithValidMethods([]string{m.accessSigner.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	exp, _ := claims["exp"].(float64)

	var roles []string
	if claimRoles, ok := claims["roles"].([]interface{}); ok {
		roles = interfaceArrayToString(claimRoles)
	}

	return &AccessClaims{
		TokenID: jti,
		Subject: sub,
		Roles:   roles,
		Expiry:  time.Unix(int64(exp), 0),
	}, nil
}

func interfaceArrayToString(iArray []interface{}) []string {
	stringSlice := make([]string, 0)
	for _, v := range iArray {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
