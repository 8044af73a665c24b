package authcore

import (
	"context"
	"errors"

	"github.com/authcore-dev/authcore/mfa"
	"github.com/authcore-dev/authcore/store"
)

// ProviderPhone is an exported constant or variable used by the authentication engine.
const ProviderPhone = "phone"

// phoneProvider validates phone plus a login OTP previously issued by
// [Engine.SendPhoneLoginCode]. Consumption is atomic, so one code
// never admits two logins.
type phoneProvider struct {
	users    store.UserStore
	otps     *mfa.OTPStore
	tenantOf func(ctx context.Context) string
}

func newPhoneProvider(users store.UserStore, otps *mfa.OTPStore, tenantOf func(ctx context.Context) string) *phoneProvider {
	return &phoneProvider{users: users, otps: otps, tenantOf: tenantOf}
}

func (p *phoneProvider) Name() string { return ProviderPhone }

func (p *phoneProvider) RequiredFields() []string { return []string{"phone", "code"} }

// SkipMFA is true: possession of the phone was just proven, which is
// the same factor an SMS challenge would test again.
func (p *phoneProvider) SkipMFA() bool { return true }

func (p *phoneProvider) Validate(ctx context.Context, creds Credentials) (*ProviderIdentity, error) {
	if err := requireFields(creds, "phone", "code"); err != nil {
		return nil, err
	}

	tenantID := p.tenantOf(ctx)
	user, err := p.users.GetUserByPhone(ctx, tenantID, creds["phone"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrBackendUnavailable
	}

	if err := p.otps.Consume(ctx, tenantID, user.ID, mfa.PurposeLogin, creds["code"]); err != nil {
		switch {
		case errors.Is(err, mfa.ErrCodeNotFound), errors.Is(err, mfa.ErrCodeAlreadyUsed), errors.Is(err, mfa.ErrCodeInvalid):
			return nil, ErrInvalidCredentials
		default:
			return nil, ErrBackendUnavailable
		}
	}

	return &ProviderIdentity{
		ProviderUserID: user.ID,
		Email:          user.Email,
		EmailVerified:  user.EmailVerified,
		Phone:          user.Phone,
		PhoneVerified:  true,
	}, nil
}
