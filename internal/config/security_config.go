package config

type SecurityConfig interface {
	GetAccessTokenSecret() string
	GetRequirePKCE() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAccessTokenSecret returns the HMAC secret used to sign access tokens.
// The default is only suitable for development.
func (Security) GetAccessTokenSecret() string {
	return GetEnv("ACCESS_TOKEN_SECRET", "dev-insecure-access-token-secret")
}

// GetRequirePKCE controls whether public clients must present a PKCE
// challenge on the authorize endpoint.
func (Security) GetRequirePKCE() bool {
	return GetEnv("REQUIRE_PKCE", "true") == "true"
}
