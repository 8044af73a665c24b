package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/store"
)

// ProviderPassword is an exported constant or variable used by the authentication engine.
const ProviderPassword = "password"

// passwordProvider validates email+password against the local user
// store with argon2id. Email is lowercased before lookup, matching the
// store's case-insensitive uniqueness.
type passwordProvider struct {
	users    store.UserStore
	hasher   *password.Hasher
	tenantOf func(ctx context.Context) string
}

func newPasswordProvider(users store.UserStore, hasher *password.Hasher, tenantOf func(ctx context.Context) string) *passwordProvider {
	return &passwordProvider{users: users, hasher: hasher, tenantOf: tenantOf}
}

func (p *passwordProvider) Name() string { return ProviderPassword }

func (p *passwordProvider) RequiredFields() []string { return []string{"email", "password"} }

func (p *passwordProvider) SkipMFA() bool { return false }

func (p *passwordProvider) Validate(ctx context.Context, creds Credentials) (*ProviderIdentity, error) {
	if err := requireFields(creds, "email", "password"); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(creds["email"]))
	user, err := p.users.GetUserByEmail(ctx, p.tenantOf(ctx), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// burn a hash comparison so absent accounts cost the same
			_, _ = p.hasher.Verify(creds["password"], dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, ErrBackendUnavailable
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	ok, err := p.hasher.Verify(creds["password"], user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return &ProviderIdentity{
		ProviderUserID: user.ID,
		Email:          user.Email,
		EmailVerified:  user.EmailVerified,
		Phone:          user.Phone,
		PhoneVerified:  user.PhoneVerified,
	}, nil
}

// dummyHash keeps lookup-miss timing close to a real verification.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$JHwT2aGiTvg0N0WB1LKhdC6fozIDCAN2RHLuSQWG5Ks"
