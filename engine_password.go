package authcore

import (
	"context"
	"errors"

	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/store"
	"github.com/authcore-dev/authcore/token"
)

// ChangePassword verifies the current password and replaces the hash.
// Every other session of the user is revoked; the current one, when
// its ID is supplied, survives.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, currentSessionID string) error {
	user, err := e.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.PasswordHash == "" {
		return ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return ErrPasswordPolicy
		}
		return ErrBackendUnavailable
	}

	user.PasswordHash = newHash
	if err := e.users.UpdateUser(ctx, user); err != nil {
		return ErrBackendUnavailable
	}

	if currentSessionID != "" {
		_, _ = e.sessions.RevokeOthers(ctx, user.TenantID, user.ID, currentSessionID)
	} else {
		_, _ = e.sessions.RevokeAll(ctx, user.TenantID, user.ID)
	}

	e.metrics.Inc(MetricPasswordChanged)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventPasswordChanged,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}

// ForgotPassword issues a password-reset token for the account behind
// the email. Unknown addresses return an empty token with no error, so
// neither error shape nor timing reveals account existence; the caller
// responds identically either way.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (string, error) {
	if !e.config.PasswordReset.Enabled {
		return "", nil
	}

	tenantID := e.tenantIDFromContext(ctx)

	user, err := e.users.GetUserByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", ErrBackendUnavailable
	}

	resetToken, _, err := e.tokens.GeneratePasswordResetToken(user.ID, tenantID, user.PasswordHash)
	if err != nil {
		return "", ErrBackendUnavailable
	}

	e.metrics.Inc(MetricPasswordResetRequested)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventPasswordResetReq,
		UserID:    user.ID,
		TenantID:  tenantID,
		Success:   true,
		Metadata:  map[string]string{"token": resetToken},
	})
	return resetToken, nil
}

// ResetPassword consumes a reset token and installs the new password.
// The token is bound to the password hash it was issued against, so a
// change in the meantime, including a previous reset, invalidates it.
// All sessions of the user are revoked.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if !e.config.PasswordReset.Enabled {
		return ErrResetTokenInvalid
	}

	claims, err := e.tokens.VerifyToken(resetToken)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrResetTokenInvalid
	}
	if claims.Type != token.TypeReset {
		return ErrResetTokenInvalid
	}

	user, err := e.users.GetUserByID(ctx, claims.TenantID, claims.Subject)
	if err != nil {
		return ErrResetTokenInvalid
	}
	if claims.PasswordHint != token.PasswordHint(user.PasswordHash) {
		return ErrResetTokenInvalid
	}

	newHash, err := e.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) {
			return ErrPasswordPolicy
		}
		return ErrBackendUnavailable
	}

	user.PasswordHash = newHash
	if err := e.users.UpdateUser(ctx, user); err != nil {
		return ErrBackendUnavailable
	}

	_, _ = e.sessions.RevokeAll(ctx, user.TenantID, user.ID)

	e.metrics.Inc(MetricPasswordResetConfirmed)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventPasswordReset,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Success:   true,
	})
	return nil
}

// maybeUpgradeHash transparently rehashes the password on login when
// the stored hash predates the current cost parameters. Failures are
// logged and swallowed; login already succeeded.
func (e *Engine) maybeUpgradeHash(ctx context.Context, user *store.User, plaintext string) {
	if !e.config.Password.UpgradeOnLogin || user.PasswordHash == "" || plaintext == "" {
		return
	}

	needs, err := e.hasher.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}

	newHash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}

	user.PasswordHash = newHash
	if err := e.users.UpdateUser(ctx, user); err != nil {
		logWarn("password hash upgrade failed for user %s: %v", user.ID, err)
	}
}
