package authcore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// CredentialProvider validates one kind of credential and maps it to a
// canonical provider identity. Implementations only validate; user
// lookup, linking, and session issuance stay in the engine.
type CredentialProvider interface {
	// Name is the registry key, e.g. "password", "phone", "bearer".
	Name() string

	// Validate checks the credentials and returns the canonical
	// identity, or ErrInvalidCredentials / a provider-specific error.
	Validate(ctx context.Context, creds Credentials) (*ProviderIdentity, error)

	// RequiredFields declares the credential keys Validate expects, so
	// callers can reject malformed requests before hitting the engine.
	RequiredFields() []string

	// SkipMFA reports whether logins through this provider bypass the
	// MFA challenge, e.g. an external IdP that already enforced one.
	SkipMFA() bool
}

// ProviderRegistry maps provider names to implementations. Registration
// happens at build time; lookup is concurrent-safe afterwards.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]CredentialProvider
}

// NewProviderRegistry describes the newproviderregistry operation and its observable behavior.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]CredentialProvider)}
}

// Register adds or replaces a provider under its name.
func (r *ProviderRegistry) Register(p CredentialProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(p.Name())] = p
}

// Get returns the provider registered under name.
func (r *ProviderRegistry) Get(name string) (CredentialProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names lists the registered provider names, sorted.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func requireFields(creds Credentials, fields ...string) error {
	for _, f := range fields {
		if creds[f] == "" {
			return ErrMissingCredentialField
		}
	}
	return nil
}
