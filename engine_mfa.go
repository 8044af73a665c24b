package authcore

import (
	"context"
	"errors"

	"github.com/authcore-dev/authcore/mfa"
	"github.com/authcore-dev/authcore/store"
)

// SendMFACode issues a one-time code for a pending login challenge
// over email or SMS. The engine never delivers anything itself: the
// plaintext code travels on the emitted code_sent audit event (and the
// return value) for the external deliverer.
func (e *Engine) SendMFACode(ctx context.Context, challengeID string, method string) (string, error) {
	tenantID := e.tenantIDFromContext(ctx)

	challenge, err := e.mfa.Challenge(ctx, tenantID, challengeID)
	if err != nil {
		if errors.Is(err, mfa.ErrChallengeNotFound) {
			return "", ErrMFAChallengeNotFound
		}
		return "", ErrBackendUnavailable
	}

	if !challengeOffers(challenge, mfa.Method(method)) {
		return "", ErrMFAMethodUnavailable
	}

	code, err := e.mfa.SendCode(ctx, tenantID, challenge.UserID, mfa.Method(method), mfa.PurposeMFA)
	if err != nil {
		if errors.Is(err, mfa.ErrMethodUnavailable) {
			return "", ErrMFAMethodUnavailable
		}
		return "", ErrBackendUnavailable
	}

	e.metrics.Inc(MetricOTPIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventCodeSent,
		UserID:    challenge.UserID,
		TenantID:  tenantID,
		Method:    method,
		Success:   true,
		Metadata:  map[string]string{"purpose": string(mfa.PurposeMFA), "code": code},
	})
	return code, nil
}

// ConfirmMFA answers a pending login challenge with a second-factor
// code. On success the deferred session and tokens are issued; with
// rememberDevice, a trusted-device token rides along on the result.
// Failed attempts burn challenge budget; an exhausted challenge is
// deleted and the login must restart.
func (e *Engine) ConfirmMFA(ctx context.Context, challengeID, method, code string, rememberDevice bool) (*LoginResult, error) {
	tenantID := e.tenantIDFromContext(ctx)

	challenge, err := e.mfa.Challenge(ctx, tenantID, challengeID)
	if err != nil {
		if errors.Is(err, mfa.ErrChallengeNotFound) {
			return nil, ErrMFAChallengeNotFound
		}
		return nil, ErrBackendUnavailable
	}

	if !challengeOffers(challenge, mfa.Method(method)) {
		return nil, ErrMFAMethodUnavailable
	}

	user, err := e.users.GetUserByID(ctx, tenantID, challenge.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrBackendUnavailable
	}

	if err := e.mfa.VerifyCode(ctx, user, mfa.Method(method), code); err != nil {
		e.metrics.Inc(MetricMFAFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventMFAFailed,
			UserID:    user.ID,
			TenantID:  tenantID,
			Method:    method,
			Error:     err.Error(),
		})

		if failErr := e.mfa.FailChallenge(ctx, tenantID, challengeID); failErr != nil {
			if errors.Is(failErr, mfa.ErrChallengeAttempts) {
				return nil, ErrMFAChallengeAttempts
			}
			if errors.Is(failErr, mfa.ErrChallengeNotFound) {
				return nil, ErrMFAChallengeNotFound
			}
		}
		return nil, mapMFACodeError(err)
	}

	if err := e.mfa.CompleteChallenge(ctx, tenantID, challengeID); err != nil {
		return nil, ErrBackendUnavailable
	}

	e.metrics.Inc(MetricMFASuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventMFAVerified,
		UserID:    user.ID,
		TenantID:  tenantID,
		Method:    method,
		Success:   true,
	})

	result, err := e.establishSession(ctx, user, "mfa", true)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricLoginSuccess)

	if rememberDevice {
		deviceToken, expiresAt, err := e.mfa.CreateTrustedDevice(ctx, user)
		if err != nil {
			// the login already succeeded; trust is best-effort
			logWarn("trusted device creation failed for user %s: %v", user.ID, err)
		} else {
			result.TrustedDeviceToken = deviceToken
			result.TrustedDeviceExpiresAt = expiresAt
			e.emitAudit(ctx, AuditEvent{
				EventType: EventTrustedDevice,
				UserID:    user.ID,
				TenantID:  tenantID,
				Success:   true,
			})
		}
	}
	return result, nil
}

// SetupTOTPDevice enrolls an unverified authenticator device for the
// user and returns its provisioning material.
func (e *Engine) SetupTOTPDevice(ctx context.Context, userID, label string) (*TOTPEnrollment, error) {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollment, err := e.mfa.SetupTOTPDevice(ctx, user, label)
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	return &TOTPEnrollment{
		DeviceID:        enrollment.DeviceID,
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
	}, nil
}

// ConfirmTOTPDevice marks a pending authenticator device verified once
// the user proves possession with a current code.
func (e *Engine) ConfirmTOTPDevice(ctx context.Context, userID, deviceID, code string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.mfa.VerifyTOTPSetup(ctx, user, deviceID, code); err != nil {
		switch {
		case errors.Is(err, mfa.ErrCodeInvalid):
			return ErrMFACodeInvalid
		case errors.Is(err, mfa.ErrDeviceNotFound):
			return ErrMFAMethodUnavailable
		default:
			return ErrBackendUnavailable
		}
	}
	return nil
}

// EnableMFA turns on the account's MFA flag. Fails when no verified
// method exists or policy forbids self-service toggling.
func (e *Engine) EnableMFA(ctx context.Context, userID string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.mfa.EnableMFA(ctx, user); err != nil {
		return mapMFAToggleError(err)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventMFAEnabled,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}

// DisableMFA turns off the account's MFA flag when policy allows it.
func (e *Engine) DisableMFA(ctx context.Context, userID string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.mfa.DisableMFA(ctx, user); err != nil {
		return mapMFAToggleError(err)
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventMFADisabled,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}

// GenerateRecoveryCode mints the user's single recovery code,
// replacing any prior one. Shown once; only its hash is stored.
func (e *Engine) GenerateRecoveryCode(ctx context.Context, userID string) (string, error) {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return "", err
	}

	code, err := e.mfa.GenerateRecoveryCode(ctx, user)
	if err != nil {
		return "", ErrBackendUnavailable
	}
	return code, nil
}

// ResetMFA consumes the recovery code: on match every TOTP device and
// trusted device is wiped and MFA switched off so the user re-enrolls.
func (e *Engine) ResetMFA(ctx context.Context, userID, recoveryCode string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := e.mfa.ResetMFA(ctx, user, recoveryCode); err != nil {
		if errors.Is(err, mfa.ErrRecoveryCodeInvalid) {
			return ErrRecoveryCodeInvalid
		}
		return ErrBackendUnavailable
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventMFAReset,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}

// CreateTrustedDevice issues an MFA-bypass token for an already
// authenticated user.
func (e *Engine) CreateTrustedDevice(ctx context.Context, userID string) (string, error) {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return "", err
	}

	deviceToken, _, err := e.mfa.CreateTrustedDevice(ctx, user)
	if err != nil {
		return "", ErrBackendUnavailable
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventTrustedDevice,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return deviceToken, nil
}

func (e *Engine) userByID(ctx context.Context, userID string) (*store.User, error) {
	user, err := e.users.GetUserByID(ctx, e.tenantIDFromContext(ctx), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrBackendUnavailable
	}
	return user, nil
}

func challengeOffers(challenge *mfa.Challenge, method mfa.Method) bool {
	for _, m := range challenge.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func mapMFACodeError(err error) error {
	switch {
	case errors.Is(err, mfa.ErrCodeInvalid):
		return ErrMFACodeInvalid
	case errors.Is(err, mfa.ErrCodeExpired), errors.Is(err, mfa.ErrCodeNotFound):
		return ErrMFACodeExpired
	case errors.Is(err, mfa.ErrCodeAlreadyUsed):
		return ErrOTPAlreadyUsed
	case errors.Is(err, mfa.ErrMethodUnavailable):
		return ErrMFAMethodUnavailable
	default:
		return ErrBackendUnavailable
	}
}

func mapMFAToggleError(err error) error {
	switch {
	case errors.Is(err, mfa.ErrTogglingNotAllowed):
		return ErrMFATogglingNotAllowed
	case errors.Is(err, mfa.ErrNoVerifiedMethod):
		return ErrMFANoVerifiedMethod
	default:
		return ErrBackendUnavailable
	}
}
