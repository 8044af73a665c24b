package authcore

import (
	"context"

	"github.com/authcore-dev/authcore/token"
)

// ProviderBearer is an exported constant or variable used by the authentication engine.
const ProviderBearer = "bearer"

// BearerProvider validates an externally issued JWT and maps its
// subject to a canonical identity. The verifying token service is
// configured with the external issuer's keys, not the engine's own.
type BearerProvider struct {
	verifier *token.Service
}

// NewBearerProvider describes the newbearerprovider operation and its observable behavior.
//
// NewBearerProvider may return an error when input validation, dependency calls, or security checks fail.
func NewBearerProvider(cfg token.Config) (*BearerProvider, error) {
	verifier, err := token.NewService(cfg)
	if err != nil {
		return nil, err
	}
	return &BearerProvider{verifier: verifier}, nil
}

// Name describes the name operation and its observable behavior.
func (p *BearerProvider) Name() string { return ProviderBearer }

// RequiredFields describes the requiredfields operation and its observable behavior.
func (p *BearerProvider) RequiredFields() []string { return []string{"token"} }

// SkipMFA describes the skipmfa operation and its observable behavior.
func (p *BearerProvider) SkipMFA() bool { return false }

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *BearerProvider) Validate(ctx context.Context, creds Credentials) (*ProviderIdentity, error) {
	if err := requireFields(creds, "token"); err != nil {
		return nil, err
	}

	claims, err := p.verifier.VerifyToken(creds["token"])
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	return &ProviderIdentity{
		ProviderUserID: claims.Subject,
		Metadata:       map[string]string{"issuer": claims.Issuer},
	}, nil
}
