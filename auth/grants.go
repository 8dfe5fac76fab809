package auth

import "github.com/pkg/errors"

// GrantType enumerates the token-endpoint grants this server supports.
type GrantType string

const (
	// PasswordGrantType exchanges resource-owner credentials for tokens.
	PasswordGrantType GrantType = "password"

	// AuthorizationCodeGrantType exchanges a single-use authorization code
	// for tokens, verifying PKCE when the code carries a challenge.
	AuthorizationCodeGrantType GrantType = "authorization_code"
)

// Grant is the tagged union over grant kinds. Each variant carries its own
// required-field set and validates it before dispatch, so parameters for one
// grant can never leak into another's code path.
type Grant interface {
	Type() GrantType
	Validate() error
}

// PasswordGrant carries the parameters of a resource-owner password grant.
type PasswordGrant struct {
	Username string
	Password string
}

func (g PasswordGrant) Type() GrantType { return PasswordGrantType }

func (g PasswordGrant) Validate() error {
	if g.Username == "" || g.Password == "" {
		return errors.Wrap(ErrMissingParameter, "username and password are required")
	}
	return nil
}

// AuthorizationCodeGrant carries the parameters of a code exchange.
type AuthorizationCodeGrant struct {
	Code         string
	ClientID     string
	RedirectURI  string
	CodeVerifier string
}

func (g AuthorizationCodeGrant) Type() GrantType { return AuthorizationCodeGrantType }

func (g AuthorizationCodeGrant) Validate() error {
	if g.Code == "" {
		return errors.Wrap(ErrMissingParameter, "code is required")
	}
	if g.ClientID == "" {
		return errors.Wrap(ErrMissingParameter, "client_id is required")
	}
	if g.RedirectURI == "" {
		return errors.Wrap(ErrMissingParameter, "redirect_uri is required")
	}
	return nil
}

// ParseGrant maps raw token-endpoint form values onto a typed grant. Any
// unrecognised grant_type fails with ErrUnsupportedGrant.
func ParseGrant(grantType string, values map[string]string) (Grant, error) {
	switch GrantType(grantType) {
	case PasswordGrantType:
		return PasswordGrant{
			Username: values["username"],
			Password: values["password"],
		}, nil
	case AuthorizationCodeGrantType:
		return AuthorizationCodeGrant{
			Code:         values["code"],
			ClientID:     values["client_id"],
			RedirectURI:  values["redirect_uri"],
			CodeVerifier: values["code_verifier"],
		}, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedGrant, "grant_type %q", grantType)
	}
}
