package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/authcore-dev/authcore/internal/audit"
	"github.com/authcore-dev/authcore/mfa"
	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/rate"
	"github.com/authcore-dev/authcore/rbac"
	"github.com/authcore-dev/authcore/session"
	"github.com/authcore-dev/authcore/store"
	"github.com/authcore-dev/authcore/token"
)

// Builder defines a public type used by authcore APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users      store.UserStore
	identities store.IdentityStore
	devices    store.TOTPDeviceStore

	providers []CredentialProvider
	auditSink AuditSink
	roles     *rbac.Builder

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		roles:  rbac.NewBuilder(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore describes the withuserstore operation and its observable behavior.
func (b *Builder) WithUserStore(s store.UserStore) *Builder {
	b.users = s
	return b
}

// WithIdentityStore describes the withidentitystore operation and its observable behavior.
func (b *Builder) WithIdentityStore(s store.IdentityStore) *Builder {
	b.identities = s
	return b
}

// WithTOTPDeviceStore describes the withtotpdevicestore operation and its observable behavior.
func (b *Builder) WithTOTPDeviceStore(s store.TOTPDeviceStore) *Builder {
	b.devices = s
	return b
}

// WithProvider registers an additional credential provider. The
// built-in password and phone providers are always wired; a provider
// registered under the same name replaces them.
func (b *Builder) WithProvider(p CredentialProvider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRole registers a role and its permissions within a guard.
func (b *Builder) WithRole(guard, role string, permissions ...string) *Builder {
	b.roles.Role(guard, role, permissions...)
	return b
}

// WithProductionMode describes the withproductionmode operation and its observable behavior.
func (b *Builder) WithProductionMode(enabled bool) *Builder {
	b.config.Security.ProductionMode = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}

	identities := b.identities
	if identities == nil {
		is, ok := b.users.(store.IdentityStore)
		if !ok {
			return nil, errors.New("identity store is required")
		}
		identities = is
	}

	devices := b.devices
	if devices == nil {
		ds, ok := b.users.(store.TOTPDeviceStore)
		if !ok {
			return nil, errors.New("totp device store is required")
		}
		devices = ds
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewService(token.Config{
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshTTL:    b.config.JWT.RefreshTTL,
		ResetTTL:      b.config.PasswordReset.TokenTTL,
		SigningMethod: token.SigningMethod(b.config.JWT.SigningMethod),
		Secret:        b.config.JWT.Secret,
		PrivateKey:    b.config.JWT.PrivateKey,
		PublicKey:     b.config.JWT.PublicKey,
		Issuer:        b.config.JWT.Issuer,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	sessionStore := session.NewStore(b.redis, b.config.Session.RedisPrefix)
	sessions, err := session.NewManager(sessionStore, session.Config{
		Lifetime:           b.config.Session.Lifetime,
		SlidingExpiration:  b.config.Session.SlidingExpiration,
		MaxSessionsPerUser: b.config.Session.MaxSessionsPerUser,
		JitterEnabled:      b.config.Session.JitterEnabled,
		JitterRange:        b.config.Session.JitterRange,
	})
	if err != nil {
		return nil, err
	}

	prefix := b.config.Session.RedisPrefix
	otps := mfa.NewOTPStore(b.redis, prefix)
	trusted := mfa.NewTrustedDeviceStore(b.redis, prefix)
	challenges := mfa.NewChallengeStore(b.redis, prefix, b.config.MFA.ChallengeTTL, b.config.MFA.MaxChallengeAttempts)

	methods := make([]mfa.Method, 0, len(b.config.MFA.Methods))
	for _, m := range b.config.MFA.Methods {
		methods = append(methods, mfa.Method(m))
	}

	mfaService, err := mfa.NewService(mfa.Config{
		Enabled:                b.config.MFA.Enabled,
		Required:               b.config.MFA.Required,
		Methods:                methods,
		OTPLength:              b.config.MFA.OTPLength,
		OTPTTL:                 b.config.MFA.OTPTTL,
		ChallengeTTL:           b.config.MFA.ChallengeTTL,
		MaxChallengeAttempts:   b.config.MFA.MaxChallengeAttempts,
		TrustedDeviceTTL:       b.config.MFA.TrustedDeviceTTL,
		AllowSelfServiceToggle: b.config.MFA.AllowSelfServiceToggle,
		Issuer:                 b.config.MFA.Issuer,
		DefaultOTP:             b.config.MFA.DefaultOTP,
	}, otps, trusted, challenges, devices, b.users, hasher)
	if err != nil {
		return nil, err
	}

	limiter := rate.New(b.redis, rate.Config{
		Enabled:          b.config.RateLimit.Enabled,
		EnableIPThrottle: b.config.RateLimit.EnableIPThrottle,
		MaxLoginAttempts: b.config.RateLimit.MaxLoginAttempts,
		LoginWindow:      b.config.RateLimit.LoginWindow,
		MaxRefreshPerMin: b.config.RateLimit.MaxRefreshPerMin,
		RedisPrefix:      prefix,
	})

	engine := &Engine{
		config:     b.config,
		redis:      b.redis,
		users:      b.users,
		identities: identities,
		devices:    devices,
		providers:  NewProviderRegistry(),
		tokens:     tokens,
		sessions:   sessions,
		mfa:        mfaService,
		hasher:     hasher,
		limiter:    limiter,
		roles:      b.roles.Build(),
		metrics:    NewMetrics(b.config.Metrics),
	}

	engine.auditor = audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	engine.providers.Register(newPasswordProvider(b.users, hasher, engine.tenantIDFromContext))
	engine.providers.Register(newPhoneProvider(b.users, otps, engine.tenantIDFromContext))
	for _, p := range b.providers {
		engine.providers.Register(p)
	}

	if b.config.MFA.DefaultOTP != "" {
		logWarn("MFA.DefaultOTP is set; every email/SMS challenge accepts the configured literal. Never enable this outside development.")
	}

	return engine, nil
}
