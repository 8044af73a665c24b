package mfa

import "errors"

var (
	// ErrNotEnabled is an exported constant or variable used by the authentication engine.
	ErrNotEnabled = errors.New("mfa not enabled")
	// ErrCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrCodeInvalid = errors.New("mfa code invalid")
	// ErrCodeExpired is an exported constant or variable used by the authentication engine.
	ErrCodeExpired = errors.New("mfa code expired")
	// ErrCodeAlreadyUsed is an exported constant or variable used by the authentication engine.
	ErrCodeAlreadyUsed = errors.New("mfa code already used")
	// ErrCodeNotFound is an exported constant or variable used by the authentication engine.
	ErrCodeNotFound = errors.New("mfa code not found")
	// ErrMethodUnavailable is an exported constant or variable used by the authentication engine.
	ErrMethodUnavailable = errors.New("mfa method unavailable")
	// ErrTogglingNotAllowed is an exported constant or variable used by the authentication engine.
	ErrTogglingNotAllowed = errors.New("mfa toggling not allowed")
	// ErrNoVerifiedMethod is an exported constant or variable used by the authentication engine.
	ErrNoVerifiedMethod = errors.New("mfa requires a verified method")
	// ErrRecoveryCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrRecoveryCodeInvalid = errors.New("recovery code invalid")
	// ErrDeviceNotFound is an exported constant or variable used by the authentication engine.
	ErrDeviceNotFound = errors.New("totp device not found")
	// ErrChallengeNotFound is an exported constant or variable used by the authentication engine.
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	// ErrChallengeAttempts is an exported constant or variable used by the authentication engine.
	ErrChallengeAttempts = errors.New("mfa challenge attempts exceeded")
	// ErrTrustedDeviceInvalid is an exported constant or variable used by the authentication engine.
	ErrTrustedDeviceInvalid = errors.New("trusted device token invalid")
	// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
