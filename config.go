package authcore

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/authcore-dev/authcore/mfa"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	MFA           MFAConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
	MultiTenant   MultiTenantConfig
	Cookies       CookieConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authcore APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix        string
	Lifetime           time.Duration
	SlidingExpiration  bool
	MaxSessionsPerUser int // 0 = unlimited
	JitterEnabled      bool
	JitterRange        time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig defines a public type used by authcore APIs.
//
// MFAConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MFAConfig struct {
	Enabled                bool
	Required               bool
	Methods                []string // "totp", "email", "sms"
	OTPLength              int
	OTPTTL                 time.Duration
	ChallengeTTL           time.Duration
	MaxChallengeAttempts   int
	TrustedDeviceTTL       time.Duration
	AllowSelfServiceToggle bool
	Issuer                 string

	// DefaultOTP, when non-empty, satisfies every email/SMS challenge
	// with a fixed literal. Development escape hatch only: Validate
	// rejects it under Security.ProductionMode and SecurityReport
	// flags it whenever set.
	DefaultOTP string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

// PasswordResetConfig defines a public type used by authcore APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	Enabled  bool
	TokenTTL time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig defines a public type used by authcore APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	AllowSignup          bool
	RequireVerifiedEmail bool
	AutoLoginAfterSignup bool
	DefaultRoles         []string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by authcore APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	MaxRefreshPerMin int
}

/*
====================================
AUDIT / METRICS / SECURITY
====================================
*/

// AuditConfig defines a public type used by authcore APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig defines a public type used by authcore APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
}

// MultiTenantConfig defines a public type used by authcore APIs.
//
// MultiTenantConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MultiTenantConfig struct {
	Enabled       bool
	DefaultTenant string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by authcore APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	Path        string
	Secure      bool
	SameSite    http.SameSite
}

// DefaultConfig returns the development-grade defaults the builder
// starts from.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			ResetTTL:      15 * time.Minute,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:        "authcore",
			Lifetime:           7 * 24 * time.Hour,
			SlidingExpiration:  true,
			MaxSessionsPerUser: 10,
			JitterEnabled:      true,
			JitterRange:        5 * time.Minute,
		},
		MFA: MFAConfig{
			Enabled:                true,
			Methods:                []string{"totp", "email"},
			OTPLength:              6,
			OTPTTL:                 5 * time.Minute,
			ChallengeTTL:           5 * time.Minute,
			MaxChallengeAttempts:   5,
			TrustedDeviceTTL:       30 * 24 * time.Hour,
			AllowSelfServiceToggle: true,
			Issuer:                 "authcore",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:  true,
			TokenTTL: 15 * time.Minute,
		},
		Account: AccountConfig{
			AllowSignup:          true,
			AutoLoginAfterSignup: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			EnableIPThrottle: true,
			MaxLoginAttempts: 10,
			LoginWindow:      15 * time.Minute,
			MaxRefreshPerMin: 30,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		MultiTenant: MultiTenantConfig{
			DefaultTenant: "0",
		},
		Cookies: CookieConfig{
			AccessName:  "access_token",
			RefreshName: "refresh_token",
			Path:        "/",
			Secure:      true,
			SameSite:    http.SameSiteLaxMode,
		},
	}
}

// Validate checks the configuration for internal consistency and,
// under ProductionMode, for settings that must never reach production.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("jwt TTLs must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.Secret) < 32 {
			return errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires private and public keys")
		}
	default:
		return fmt.Errorf("unsupported signing method %q", c.JWT.SigningMethod)
	}

	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("max sessions per user must be >= 0")
	}
	if c.Session.JitterEnabled && (c.Session.JitterRange <= 0 || c.Session.JitterRange >= c.Session.Lifetime) {
		return errors.New("session jitter range must be positive and below the lifetime")
	}

	if c.MFA.Enabled {
		if c.MFA.OTPLength < 4 || c.MFA.OTPLength > 10 {
			return errors.New("otp length must be between 4 and 10")
		}
		if c.MFA.OTPTTL <= 0 {
			return errors.New("otp ttl must be positive")
		}
		for _, m := range c.MFA.Methods {
			switch mfa.Method(m) {
			case mfa.MethodTOTP, mfa.MethodEmail, mfa.MethodSMS:
			default:
				return fmt.Errorf("unsupported mfa method %q", m)
			}
		}
	}

	if c.MultiTenant.DefaultTenant == "" {
		return errors.New("default tenant must not be empty")
	}

	if c.Security.ProductionMode {
		if c.MFA.DefaultOTP != "" {
			return errors.New("production mode forbids MFA.DefaultOTP")
		}
		if !c.RateLimit.Enabled {
			return errors.New("production mode requires rate limiting")
		}
		if !c.Cookies.Secure {
			return errors.New("production mode requires secure cookies")
		}
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	out.MFA.Methods = append([]string(nil), cfg.MFA.Methods...)
	out.Account.DefaultRoles = append([]string(nil), cfg.Account.DefaultRoles...)
	return out
}

// ParseDuration parses Go duration strings plus a day suffix, so
// configuration can say "15m" or "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days * 24 * float64(time.Hour)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
