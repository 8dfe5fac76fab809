package keys

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Provider holds the active asymmetric signing key and implements rotation.
// Readers always observe either the previous or the new key pair, never a
// partially replaced one.
//
// Retired public keys remain in the published JWKS so that ID tokens signed
// before a rotation stay verifiable until they expire. Callers that want a
// hard cut can call DropRetired.
type Provider struct {
	mu      sync.RWMutex
	active  *KeyPair
	retired []*KeyPair
}

// NewProvider creates a provider with a freshly generated RSA-2048 key pair.
func NewProvider() (*Provider, error) {
	keyPair, err := GenerateRSAKeyPair(uuid.New().String(), 2048)
	if err != nil {
		return nil, errors.Wrap(err, "[NewProvider] GenerateRSAKeyPair")
	}
	return &Provider{active: keyPair}, nil
}

// NewProviderFromKeyPair creates a provider around existing key material,
// e.g. loaded from PEM at startup.
func NewProviderFromKeyPair(keyPair *KeyPair) *Provider {
	return &Provider{active: keyPair}
}

// Rotate generates a fresh key pair and atomically replaces the active
// signing key. The previous public key moves to the retired set.
func (p *Provider) Rotate() error {
	keyPair, err := GenerateRSAKeyPair(uuid.New().String(), 2048)
	if err != nil {
		return errors.Wrap(err, "[Provider.Rotate] GenerateRSAKeyPair")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.retired = append(p.retired, p.active)
	p.active = keyPair
	return nil
}

// DropRetired removes retired keys from the published set, ending the
// verification grace window for tokens signed before rotation.
func (p *Provider) DropRetired() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.retired = nil
}

// ActiveKeyID returns the key id of the current signing key.
func (p *Provider) ActiveKeyID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active.KeyID
}

// Sign signs claims with the active private key, stamping the kid header.
func (p *Provider) Sign(claims jwt.MapClaims) (string, error) {
	p.mu.RLock()
	keyPair := p.active
	p.mu.RUnlock()

	token := jwt.NewWithClaims(keyPair.GetSigningMethod(), claims)
	token.Header["kid"] = keyPair.KeyID

	signedToken, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with asymmetric key")
	}
	return signedToken, nil
}

// GetVerificationKey resolves the public key for a parsed token by its kid
// header, falling back to the active key when no kid is present.
func (p *Provider) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	kid, _ := token.Header["kid"].(string)
	if kid == "" || kid == p.active.KeyID {
		return p.active.PublicKey, nil
	}
	for _, kp := range p.retired {
		if kp.KeyID == kid {
			return kp.PublicKey, nil
		}
	}
	return nil, errors.Errorf("unknown signing key id %q", kid)
}

// GetSigningMethod returns the JWT signing method of the active key.
func (p *Provider) GetSigningMethod() jwt.SigningMethod {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active.GetSigningMethod()
}

// GetJWKS returns the JSON Web Key Set containing the active public key and
// any retired keys still inside the grace window.
func (p *Provider) GetJWKS() (*JWKS, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keyPairs := append([]*KeyPair{p.active}, p.retired...)
	jwks := &JWKS{Keys: make([]JWK, 0, len(keyPairs))}
	for _, kp := range keyPairs {
		jwk, err := kp.ToJWK()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert key to JWK")
		}
		jwks.Keys = append(jwks.Keys, *jwk)
	}
	return jwks, nil
}
