package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/authcore-dev/authcore/mfa"
	"github.com/authcore-dev/authcore/store"
)

// Signup creates a local (password) account. When email verification
// is required the account starts pending and cannot log in until
// [Engine.VerifyEmail] succeeds; otherwise auto-login applies per
// configuration.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*LoginResult, error) {
	if !e.config.Account.AllowSignup {
		return nil, ErrSignupDisabled
	}
	if req.Email == "" && req.Phone == "" {
		return nil, ErrMissingCredentialField
	}

	tenantID := e.tenantIDFromContext(ctx)

	hash := ""
	if req.Password != "" {
		var err error
		hash, err = e.hasher.Hash(req.Password)
		if err != nil {
			return nil, ErrPasswordPolicy
		}
	}

	status := store.StatusActive
	if e.config.Account.RequireVerifiedEmail && req.Email != "" {
		status = store.StatusPending
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = e.config.Account.DefaultRoles
	}

	user := &store.User{
		TenantID:     tenantID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		PasswordHash: hash,
		Status:       status,
		Roles:        roles,
		Metadata:     req.Metadata,
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metrics.Inc(MetricSignupDuplicate)
			return nil, ErrAccountExists
		}
		return nil, ErrBackendUnavailable
	}

	e.metrics.Inc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSignup,
		UserID:    user.ID,
		TenantID:  tenantID,
		Provider:  ProviderPassword,
		Success:   true,
	})

	if e.config.Account.AutoLoginAfterSignup && user.Status == store.StatusActive {
		result, err := e.establishSession(ctx, user, ProviderPassword, false)
		if err != nil {
			return nil, err
		}
		e.metrics.Inc(MetricLoginSuccess)
		return result, nil
	}

	return &LoginResult{Status: LoginStatusOK, User: user}, nil
}

// SignupWithProvider validates external credentials, creates the
// account from the canonical identity, and links it. Logins through
// the same provider then resolve to this user.
func (e *Engine) SignupWithProvider(ctx context.Context, providerName string, creds Credentials) (*LoginResult, error) {
	if !e.config.Account.AllowSignup {
		return nil, ErrSignupDisabled
	}

	provider, ok := e.providers.Get(providerName)
	if !ok {
		return nil, ErrProviderUnknown
	}

	identity, err := provider.Validate(ctx, creds)
	if err != nil {
		return nil, err
	}

	if _, err := e.identities.FindIdentity(ctx, providerName, identity.ProviderUserID); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, ErrBackendUnavailable
	}

	tenantID := e.tenantIDFromContext(ctx)
	user := &store.User{
		TenantID:      tenantID,
		Email:         strings.ToLower(identity.Email),
		Phone:         identity.Phone,
		EmailVerified: identity.EmailVerified,
		PhoneVerified: identity.PhoneVerified,
		Status:        store.StatusActive,
		Roles:         e.config.Account.DefaultRoles,
		Metadata:      identity.Metadata,
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metrics.Inc(MetricSignupDuplicate)
			return nil, ErrAccountExists
		}
		return nil, ErrBackendUnavailable
	}

	if err := e.LinkIdentity(ctx, user.ID, providerName, identity); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricSignupSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventSignup,
		UserID:    user.ID,
		TenantID:  tenantID,
		Provider:  providerName,
		Success:   true,
	})

	if e.config.Account.AutoLoginAfterSignup {
		result, err := e.establishSession(ctx, user, providerName, false)
		if err != nil {
			return nil, err
		}
		e.metrics.Inc(MetricLoginSuccess)
		return result, nil
	}
	return &LoginResult{Status: LoginStatusOK, User: user}, nil
}

// SendEmailVerificationCode issues a one-time verification code for
// the user's email, returning the plaintext for the external mailer.
func (e *Engine) SendEmailVerificationCode(ctx context.Context, userID string) (string, error) {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.EmailVerified {
		return "", nil
	}

	code, err := e.mfa.SendCode(ctx, user.TenantID, user.ID, mfa.MethodEmail, mfa.PurposeVerification)
	if err != nil {
		return "", ErrBackendUnavailable
	}

	e.metrics.Inc(MetricOTPIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventCodeSent,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Method:    string(mfa.MethodEmail),
		Success:   true,
		Metadata:  map[string]string{"purpose": string(mfa.PurposeVerification), "code": code},
	})
	return code, nil
}

// VerifyEmail consumes a verification code, marking the email verified
// and activating a pending account.
func (e *Engine) VerifyEmail(ctx context.Context, userID, code string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.mfa.ConsumeVerificationCode(ctx, user.TenantID, user.ID, code); err != nil {
		e.metrics.Inc(MetricOTPRejected)
		return mapOTPError(err)
	}
	e.metrics.Inc(MetricOTPConsumed)

	user.EmailVerified = true
	if user.Status == store.StatusPending {
		user.Status = store.StatusActive
	}
	if err := e.users.UpdateUser(ctx, user); err != nil {
		return ErrBackendUnavailable
	}
	return nil
}
