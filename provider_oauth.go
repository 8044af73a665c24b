package authcore

import "context"

// IdentitySource resolves raw OAuth credentials (an authorization code
// or provider access token) into a canonical identity. Implementations
// own the HTTP conversation with the social provider; the engine never
// calls out itself.
type IdentitySource interface {
	Resolve(ctx context.Context, creds Credentials) (*ProviderIdentity, error)
}

// OAuthProvider adapts a caller-supplied [IdentitySource] to the
// provider contract under a caller-chosen name ("google", "github").
// Logins through it skip the engine's MFA challenge: the external IdP
// already enforced a comparable factor.
type OAuthProvider struct {
	name   string
	source IdentitySource
	fields []string
}

// NewOAuthProvider describes the newoauthprovider operation and its observable behavior.
func NewOAuthProvider(name string, source IdentitySource, requiredFields ...string) *OAuthProvider {
	if len(requiredFields) == 0 {
		requiredFields = []string{"token"}
	}
	return &OAuthProvider{name: name, source: source, fields: requiredFields}
}

// Name describes the name operation and its observable behavior.
func (p *OAuthProvider) Name() string { return p.name }

// RequiredFields describes the requiredfields operation and its observable behavior.
func (p *OAuthProvider) RequiredFields() []string { return p.fields }

// SkipMFA describes the skipmfa operation and its observable behavior.
func (p *OAuthProvider) SkipMFA() bool { return true }

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *OAuthProvider) Validate(ctx context.Context, creds Credentials) (*ProviderIdentity, error) {
	if err := requireFields(creds, p.fields...); err != nil {
		return nil, err
	}

	identity, err := p.source.Resolve(ctx, creds)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if identity == nil || identity.ProviderUserID == "" {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}
