package clients

import "time"

// Client is a registered OAuth2 relying party.
type Client struct {
	ID           string    `json:"id"`                     // Public client identifier
	Name         string    `json:"name,omitempty"`         // Human-readable name shown on the consent/login page
	Secret       string    `json:"secret,omitempty"`       // Only set for confidential clients
	RedirectURIs []string  `json:"redirect_uris"`          // Permitted redirect URIs, exact-match
	Confidential bool      `json:"confidential,omitempty"` // Confidential clients can keep secrets (server-side apps)
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// IsPublic returns true if the client cannot keep a secret (SPAs, mobile apps).
func (c *Client) IsPublic() bool {
	return !c.Confidential
}

// HasRedirectURI reports whether uri is a member of the registered list.
// Comparison is exact; no prefix or wildcard matching.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}
