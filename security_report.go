package authcore

import "time"

// SecurityReport defines a public type used by authcore APIs.
//
// SecurityReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityReport struct {
	ProductionMode         bool
	SigningAlgorithm       string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	Argon2                 PasswordConfigReport
	MFAEnabled             bool
	MFARequired            bool
	MFAMethods             []string
	DefaultOTPEnabled      bool
	TrustedDevicesEnabled  bool
	SessionCapsActive      bool
	SlidingSessionsActive  bool
	RateLimitingActive     bool
	IPThrottlingActive     bool
	PasswordResetActive    bool
	EmailVerificationGated bool
	SecureCookies          bool
	MultiTenant            bool
	AuditingActive         bool
}

// PasswordConfigReport defines a public type used by authcore APIs.
//
// PasswordConfigReport instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes the securityreport operation and its observable behavior.
//
// SecurityReport is safe for concurrent use when the Engine itself is used concurrently.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		MFAEnabled:             e.config.MFA.Enabled,
		MFARequired:            e.config.MFA.Required,
		MFAMethods:             append([]string(nil), e.config.MFA.Methods...),
		DefaultOTPEnabled:      e.config.MFA.DefaultOTP != "",
		TrustedDevicesEnabled:  e.config.MFA.Enabled && e.config.MFA.TrustedDeviceTTL > 0,
		SessionCapsActive:      e.config.Session.MaxSessionsPerUser > 0,
		SlidingSessionsActive:  e.config.Session.SlidingExpiration,
		RateLimitingActive:     e.config.RateLimit.Enabled,
		IPThrottlingActive:     e.config.RateLimit.Enabled && e.config.RateLimit.EnableIPThrottle,
		PasswordResetActive:    e.config.PasswordReset.Enabled,
		EmailVerificationGated: e.config.Account.RequireVerifiedEmail,
		SecureCookies:          e.config.Cookies.Secure,
		MultiTenant:            e.config.MultiTenant.Enabled,
		AuditingActive:         e.config.Audit.Enabled,
	}
}
