package authcore

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
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

// Engine is the authentication orchestrator: it composes credential
// providers, the token service, the session manager, and the MFA
// service into the end-to-end login, signup, refresh, and logout
// flows. Construct it with [New] and the [Builder]; the zero value is
// unusable.
type Engine struct {
	config Config

	redis      redis.UniversalClient
	users      store.UserStore
	identities store.IdentityStore
	devices    store.TOTPDeviceStore

	providers *ProviderRegistry
	tokens    *token.Service
	sessions  *session.Manager
	mfa       *mfa.Service
	hasher    *password.Hasher
	limiter   *rate.Limiter
	roles     *rbac.Registry

	auditor *audit.Dispatcher
	metrics *Metrics
}

// Close stops the audit dispatcher, draining buffered events.
func (e *Engine) Close() {
	e.auditor.Close()
}

// Config returns a copy of the engine's resolved configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Providers returns the provider registry, so embedders can inspect
// what is wired.
func (e *Engine) Providers() *ProviderRegistry {
	return e.providers
}

// Roles returns the role registry.
func (e *Engine) Roles() *rbac.Registry {
	return e.roles
}

// HasPermission reports whether the role set grants the permission
// within the guard.
func (e *Engine) HasPermission(guard string, roles []string, permission string) bool {
	return e.roles.HasPermission(guard, roles, permission)
}

// Login runs the full credential flow for one provider: validate,
// gate on account status and MFA policy, then mint a session and
// token pair. When a second factor is owed the result carries an MFA
// challenge instead of tokens.
//
// A trusted-device token may ride along in creds["trusted_device"];
// when it validates, the MFA challenge is bypassed.
func (e *Engine) Login(ctx context.Context, providerName string, creds Credentials) (*LoginResult, error) {
	provider, ok := e.providers.Get(providerName)
	if !ok {
		return nil, ErrProviderUnknown
	}

	tenantID := e.tenantIDFromContext(ctx)
	identifier := loginIdentifier(creds)
	ip := clientIPFromContext(ctx)

	if err := e.limiter.CheckLogin(ctx, tenantID, identifier, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
			return nil, ErrLoginRateLimited
		}
		return nil, ErrBackendUnavailable
	}

	identity, err := provider.Validate(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			_ = e.limiter.RecordLoginFailure(ctx, tenantID, identifier, ip)
		}
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLoginFailed,
			TenantID:  tenantID,
			Provider:  providerName,
			Error:     err.Error(),
		})
		return nil, err
	}

	user, err := e.resolveUser(ctx, tenantID, providerName, identity)
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		return nil, err
	}

	if err := e.accountGate(providerName, user); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventLoginFailed,
			UserID:    user.ID,
			TenantID:  tenantID,
			Provider:  providerName,
			Error:     err.Error(),
		})
		return nil, err
	}

	mfaVerified := false
	if !provider.SkipMFA() && e.mfa.RequiresMFA(user) {
		bypassed, err := e.mfa.ValidateTrustedDevice(ctx, user, creds["trusted_device"])
		if err != nil {
			return nil, ErrBackendUnavailable
		}
		if !bypassed {
			return e.openMFAChallenge(ctx, providerName, user)
		}
		e.metrics.Inc(MetricTrustedDeviceBypass)
		mfaVerified = true
	}

	_ = e.limiter.ResetLogin(ctx, tenantID, identifier, ip)

	if providerName == ProviderPassword {
		e.maybeUpgradeHash(ctx, user, creds["password"])
	}

	result, err := e.establishSession(ctx, user, providerName, mfaVerified)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	return result, nil
}

func (e *Engine) openMFAChallenge(ctx context.Context, providerName string, user *store.User) (*LoginResult, error) {
	challenge, err := e.mfa.OpenChallenge(ctx, user)
	if err != nil {
		if errors.Is(err, mfa.ErrNoVerifiedMethod) {
			return nil, ErrMFAMethodUnavailable
		}
		return nil, ErrBackendUnavailable
	}

	e.metrics.Inc(MetricMFAChallengeIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventMFAChallenge,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		Provider:  providerName,
		Success:   true,
	})

	methods := make([]string, len(challenge.Methods))
	for i, m := range challenge.Methods {
		methods[i] = string(m)
	}

	return &LoginResult{
		Status: LoginStatusMFARequired,
		User:   user,
		MFA: &MFAChallengeInfo{
			ChallengeID: challenge.ID,
			Methods:     methods,
			ExpiresIn:   e.config.MFA.ChallengeTTL,
		},
	}, nil
}

// establishSession mints the session record and token pair for an
// authenticated user.
func (e *Engine) establishSession(ctx context.Context, user *store.User, providerName string, mfaVerified bool) (*LoginResult, error) {
	sessionID := uuid.NewString()

	refreshToken, jti, refreshExp, err := e.tokens.GenerateRefreshToken(token.Identity{
		UserID:    user.ID,
		SessionID: sessionID,
		TenantID:  user.TenantID,
	})
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	s := &session.Session{
		ID:          sessionID,
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Roles:       user.Roles,
		RefreshHash: token.HashJTI(jti),
		DeviceName:  deviceNameFromContext(ctx),
		UserAgent:   userAgentFromContext(ctx),
		IPAddress:   clientIPFromContext(ctx),
		MFAVerified: mfaVerified,
	}

	evicted, err := e.sessions.Create(ctx, s)
	if err != nil {
		return nil, ErrBackendUnavailable
	}
	e.metrics.Inc(MetricSessionCreated)
	for _, evictedID := range evicted {
		e.metrics.Inc(MetricSessionEvicted)
		e.emitAudit(ctx, AuditEvent{
			EventType: EventSessionEvicted,
			UserID:    user.ID,
			TenantID:  user.TenantID,
			SessionID: evictedID,
			Success:   true,
		})
	}

	accessToken, accessExp, err := e.tokens.GenerateAccessToken(token.Identity{
		UserID:      user.ID,
		SessionID:   sessionID,
		TenantID:    user.TenantID,
		Roles:       user.Roles,
		MFAVerified: mfaVerified,
	})
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogin,
		UserID:    user.ID,
		TenantID:  user.TenantID,
		SessionID: sessionID,
		Provider:  providerName,
		Success:   true,
	})

	return &LoginResult{
		Status:    LoginStatusOK,
		User:      user,
		SessionID: sessionID,
		Tokens: &TokenPair{
			AccessToken:      accessToken,
			AccessExpiresAt:  accessExp,
			RefreshToken:     refreshToken,
			RefreshExpiresAt: refreshExp,
		},
	}, nil
}

// Refresh rotates a refresh token: verify the JWT, compare-and-swap
// the session's rotation nonce, and mint a new pair. Of any set of
// concurrent callers presenting the same token exactly one wins; the
// rest fail with ErrRefreshTokenInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := e.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		switch {
		case errors.Is(err, token.ErrTokenExpired):
			return nil, ErrRefreshTokenExpired
		default:
			return nil, ErrRefreshTokenInvalid
		}
	}

	if err := e.limiter.CheckRefresh(ctx, claims.SessionID); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricRefreshRateLimited)
			return nil, ErrRefreshRateLimited
		}
		return nil, ErrBackendUnavailable
	}

	current, err := e.sessions.Get(ctx, claims.TenantID, claims.SessionID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		return nil, mapSessionError(err)
	}

	newRefresh, newJTI, refreshExp, err := e.tokens.GenerateRefreshToken(token.Identity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		TenantID:  claims.TenantID,
	})
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	err = e.sessions.Rotate(ctx, claims.TenantID, claims.Subject, claims.SessionID,
		token.HashJTI(claims.ID), token.HashJTI(newJTI))
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, session.ErrRefreshMismatch) {
			e.metrics.Inc(MetricRefreshRotationLost)
			e.emitAudit(ctx, AuditEvent{
				EventType: EventRefreshFailed,
				UserID:    claims.Subject,
				TenantID:  claims.TenantID,
				SessionID: claims.SessionID,
				Error:     "rotation nonce mismatch",
			})
			return nil, ErrRefreshTokenInvalid
		}
		return nil, mapSessionError(err)
	}

	accessToken, accessExp, err := e.tokens.GenerateAccessToken(token.Identity{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID,
		TenantID:    claims.TenantID,
		Roles:       current.Roles,
		MFAVerified: current.MFAVerified,
	})
	if err != nil {
		return nil, ErrBackendUnavailable
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventRefresh,
		UserID:    claims.Subject,
		TenantID:  claims.TenantID,
		SessionID: claims.SessionID,
		Success:   true,
	})

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ValidateAccessToken verifies signature, expiry, and token type.
// Purely stateless; use [Engine.ValidateAccessTokenStrict] to also
// cross-check that the session still exists.
func (e *Engine) ValidateAccessToken(tokenStr string) (*token.Claims, error) {
	claims, err := e.tokens.VerifyAccessToken(tokenStr)
	if err != nil {
		return nil, mapTokenError(err)
	}
	return claims, nil
}

// ValidateAccessTokenStrict verifies the token and confirms the
// backing session has not been revoked.
func (e *Engine) ValidateAccessTokenStrict(ctx context.Context, tokenStr string) (*token.Claims, error) {
	claims, err := e.ValidateAccessToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if _, err := e.sessions.Get(ctx, claims.TenantID, claims.SessionID); err != nil {
		return nil, mapSessionError(err)
	}
	return claims, nil
}

// Logout revokes one session. Revoking an already-gone session
// succeeds.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	tenantID := e.tenantIDFromContext(ctx)

	s, err := e.sessions.Get(ctx, tenantID, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return nil
		}
		return ErrBackendUnavailable
	}

	if err := e.sessions.Revoke(ctx, tenantID, s.UserID, sessionID); err != nil {
		return ErrBackendUnavailable
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogout,
		UserID:    s.UserID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   true,
	})
	return nil
}

// LogoutAll revokes every session of the user.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	tenantID := e.tenantIDFromContext(ctx)

	if _, err := e.sessions.RevokeAll(ctx, tenantID, userID); err != nil {
		return ErrBackendUnavailable
	}

	e.metrics.Inc(MetricLogoutAll)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventLogoutAll,
		UserID:    userID,
		TenantID:  tenantID,
		Success:   true,
	})
	return nil
}

// resolveUser maps a validated provider identity to the canonical
// user: a linked identity first, then a direct local ID for the
// built-in providers whose providerUserID is the user ID itself.
func (e *Engine) resolveUser(ctx context.Context, tenantID, providerName string, identity *ProviderIdentity) (*store.User, error) {
	link, err := e.identities.FindIdentity(ctx, providerName, identity.ProviderUserID)
	switch {
	case err == nil:
		user, err := e.users.GetUserByID(ctx, link.TenantID, link.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, ErrBackendUnavailable
		}
		return user, nil
	case errors.Is(err, store.ErrNotFound):
		user, err := e.users.GetUserByID(ctx, tenantID, identity.ProviderUserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, ErrBackendUnavailable
		}
		return user, nil
	default:
		return nil, ErrBackendUnavailable
	}
}

// accountGate rejects logins for accounts in a non-loginable state.
func (e *Engine) accountGate(providerName string, user *store.User) error {
	switch user.Status {
	case store.StatusActive, "":
	case store.StatusPending:
		return ErrAccountInactive
	case store.StatusSuspended:
		return ErrAccountSuspended
	case store.StatusLocked:
		return ErrAccountLocked
	case store.StatusDeleted:
		return ErrAccountDeleted
	default:
		return ErrAccountSuspended
	}

	if e.config.Account.RequireVerifiedEmail && providerName == ProviderPassword && !user.EmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// LinkIdentity attaches a provider identity to an existing user.
func (e *Engine) LinkIdentity(ctx context.Context, userID, providerName string, identity *ProviderIdentity) error {
	tenantID := e.tenantIDFromContext(ctx)

	err := e.identities.LinkIdentity(ctx, &store.Identity{
		UserID:         userID,
		TenantID:       tenantID,
		Provider:       providerName,
		ProviderUserID: identity.ProviderUserID,
		Metadata:       identity.Metadata,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAccountExists
		}
		return ErrBackendUnavailable
	}

	e.emitAudit(ctx, AuditEvent{
		EventType: EventIdentityLinked,
		UserID:    userID,
		TenantID:  tenantID,
		Provider:  providerName,
		Success:   true,
	})
	return nil
}

// SendPhoneLoginCode issues the one-time code the phone provider
// consumes at login, returning the plaintext for the external SMS
// deliverer. Unknown phones succeed without issuing anything so the
// operation does not reveal account existence.
func (e *Engine) SendPhoneLoginCode(ctx context.Context, phone string) (string, error) {
	tenantID := e.tenantIDFromContext(ctx)

	user, err := e.users.GetUserByPhone(ctx, tenantID, phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", ErrBackendUnavailable
	}

	code, err := e.mfa.SendCode(ctx, tenantID, user.ID, mfa.MethodSMS, mfa.PurposeLogin)
	if err != nil {
		return "", ErrBackendUnavailable
	}

	e.metrics.Inc(MetricOTPIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: EventCodeSent,
		UserID:    user.ID,
		TenantID:  tenantID,
		Method:    string(mfa.MethodSMS),
		Success:   true,
		Metadata:  map[string]string{"purpose": string(mfa.PurposeLogin), "code": code},
	})
	return code, nil
}

func loginIdentifier(creds Credentials) string {
	for _, key := range []string{"email", "phone", "token"} {
		if v := creds[key]; v != "" {
			return v
		}
	}
	return ""
}

func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return ErrSessionExpired
	default:
		return ErrBackendUnavailable
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongTokenType):
		return ErrTokenWrongType
	default:
		return ErrTokenInvalid
	}
}

func mapOTPError(err error) error {
	switch {
	case errors.Is(err, mfa.ErrCodeNotFound):
		return ErrOTPNotFound
	case errors.Is(err, mfa.ErrCodeAlreadyUsed):
		return ErrOTPAlreadyUsed
	case errors.Is(err, mfa.ErrCodeInvalid):
		return ErrOTPInvalid
	case errors.Is(err, mfa.ErrCodeExpired):
		return ErrOTPExpired
	default:
		return ErrBackendUnavailable
	}
}

func logWarn(format string, args ...interface{}) {
	log.Printf("authcore: "+format, args...)
}
