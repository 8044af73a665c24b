package authcore

// Error is the structured error value every public operation fails
// with: a stable machine-readable code plus a human message. Compare
// with errors.Is against the package sentinels; Is matches on Code, so
// wrapped and annotated values still compare.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = &Error{Code: "auth/invalid_credentials", Message: "invalid credentials"}
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = &Error{Code: "auth/user_not_found", Message: "user not found"}
	// ErrAccountExists is an exported constant or variable used by the authentication engine.
	ErrAccountExists = &Error{Code: "auth/account_exists", Message: "account already exists"}
	// ErrAccountSuspended is an exported constant or variable used by the authentication engine.
	ErrAccountSuspended = &Error{Code: "auth/account_suspended", Message: "account suspended"}
	// ErrAccountInactive is an exported constant or variable used by the authentication engine.
	ErrAccountInactive = &Error{Code: "auth/account_inactive", Message: "account not yet active"}
	// ErrAccountLocked is an exported constant or variable used by the authentication engine.
	ErrAccountLocked = &Error{Code: "auth/account_locked", Message: "account locked"}
	// ErrAccountDeleted is an exported constant or variable used by the authentication engine.
	ErrAccountDeleted = &Error{Code: "auth/account_deleted", Message: "account deleted"}
	// ErrEmailNotVerified is an exported constant or variable used by the authentication engine.
	ErrEmailNotVerified = &Error{Code: "auth/email_not_verified", Message: "email address not verified"}
	// ErrProviderUnknown is an exported constant or variable used by the authentication engine.
	ErrProviderUnknown = &Error{Code: "auth/provider_unknown", Message: "unknown credential provider"}
	// ErrMissingCredentialField is an exported constant or variable used by the authentication engine.
	ErrMissingCredentialField = &Error{Code: "auth/missing_credential_field", Message: "required credential field missing"}
	// ErrSignupDisabled is an exported constant or variable used by the authentication engine.
	ErrSignupDisabled = &Error{Code: "auth/signup_disabled", Message: "signup disabled"}
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = &Error{Code: "auth/login_rate_limited", Message: "login rate limited"}
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = &Error{Code: "auth/refresh_rate_limited", Message: "refresh rate limited"}
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = &Error{Code: "auth/password_policy", Message: "password policy violation"}
	// ErrPermissionDenied is an exported constant or variable used by the authentication engine.
	ErrPermissionDenied = &Error{Code: "auth/permission_denied", Message: "permission denied"}

	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = &Error{Code: "token/invalid", Message: "token invalid"}
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = &Error{Code: "token/expired", Message: "token expired"}
	// ErrTokenWrongType is an exported constant or variable used by the authentication engine.
	ErrTokenWrongType = &Error{Code: "token/wrong_type", Message: "wrong token type"}
	// ErrRefreshTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrRefreshTokenInvalid = &Error{Code: "token/refresh_invalid", Message: "refresh token invalid"}
	// ErrRefreshTokenExpired is an exported constant or variable used by the authentication engine.
	ErrRefreshTokenExpired = &Error{Code: "token/refresh_expired", Message: "refresh token expired"}
	// ErrResetTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrResetTokenInvalid = &Error{Code: "token/reset_invalid", Message: "password reset token invalid"}

	// ErrMFANotEnabled is an exported constant or variable used by the authentication engine.
	ErrMFANotEnabled = &Error{Code: "mfa/not_enabled", Message: "mfa not enabled"}
	// ErrMFARequired is an exported constant or variable used by the authentication engine.
	ErrMFARequired = &Error{Code: "mfa/required", Message: "mfa verification required"}
	// ErrMFACodeInvalid is an exported constant or variable used by the authentication engine.
	ErrMFACodeInvalid = &Error{Code: "mfa/code_invalid", Message: "mfa code invalid"}
	// ErrMFACodeExpired is an exported constant or variable used by the authentication engine.
	ErrMFACodeExpired = &Error{Code: "mfa/code_expired", Message: "mfa code expired"}
	// ErrMFAMethodUnavailable is an exported constant or variable used by the authentication engine.
	ErrMFAMethodUnavailable = &Error{Code: "mfa/method_unavailable", Message: "mfa method unavailable"}
	// ErrMFATogglingNotAllowed is an exported constant or variable used by the authentication engine.
	ErrMFATogglingNotAllowed = &Error{Code: "mfa/toggling_not_allowed", Message: "mfa toggling not allowed"}
	// ErrMFANoVerifiedMethod is an exported constant or variable used by the authentication engine.
	ErrMFANoVerifiedMethod = &Error{Code: "mfa/no_verified_method", Message: "cannot enable mfa without a verified method"}
	// ErrRecoveryCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrRecoveryCodeInvalid = &Error{Code: "mfa/recovery_code_invalid", Message: "recovery code invalid"}
	// ErrMFAChallengeNotFound is an exported constant or variable used by the authentication engine.
	ErrMFAChallengeNotFound = &Error{Code: "mfa/challenge_not_found", Message: "mfa challenge not found or expired"}
	// ErrMFAChallengeAttempts is an exported constant or variable used by the authentication engine.
	ErrMFAChallengeAttempts = &Error{Code: "mfa/challenge_attempts", Message: "mfa challenge attempts exceeded"}
	// ErrTrustedDeviceInvalid is an exported constant or variable used by the authentication engine.
	ErrTrustedDeviceInvalid = &Error{Code: "mfa/trusted_device_invalid", Message: "trusted device token invalid"}

	// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
	ErrSessionNotFound = &Error{Code: "session/not_found", Message: "session not found"}
	// ErrSessionExpired is an exported constant or variable used by the authentication engine.
	ErrSessionExpired = &Error{Code: "session/expired", Message: "session expired"}
	// ErrMaxSessionsReached is an exported constant or variable used by the authentication engine.
	ErrMaxSessionsReached = &Error{Code: "session/max_reached", Message: "maximum sessions reached"}

	// ErrOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrOTPInvalid = &Error{Code: "otp/invalid", Message: "one-time code invalid"}
	// ErrOTPExpired is an exported constant or variable used by the authentication engine.
	ErrOTPExpired = &Error{Code: "otp/expired", Message: "one-time code expired"}
	// ErrOTPAlreadyUsed is an exported constant or variable used by the authentication engine.
	ErrOTPAlreadyUsed = &Error{Code: "otp/already_used", Message: "one-time code already used"}
	// ErrOTPNotFound is an exported constant or variable used by the authentication engine.
	ErrOTPNotFound = &Error{Code: "otp/not_found", Message: "one-time code not found"}

	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = &Error{Code: "internal/backend_unavailable", Message: "backend unavailable"}
)
