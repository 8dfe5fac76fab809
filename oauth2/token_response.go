package oauth2

// TokenResponse is the standard OAuth2 token endpoint response format as
// defined in RFC 6749, returned for the password and authorization_code
// grants and for refresh-token rotation.
type TokenResponse struct {
	// AccessToken is the JWT presented on each protected request.
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque raw refresh secret. This response is the
	// only place the raw value ever exists - storage holds its hash.
	RefreshToken string `json:"refresh_token,omitempty"`

	// IDToken is the OpenID Connect ID token carrying identity claims.
	IDToken string `json:"id_token,omitempty"`

	// TokenType is always "bearer" in this implementation.
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// Scope echoes the granted scopes, when any were bound to the grant.
	Scope string `json:"scope,omitempty"`
}
