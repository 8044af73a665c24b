// Package mfa orchestrates second-factor state: email/SMS one-time
// codes, TOTP authenticator devices, trusted-device bypass tokens,
// recovery codes, and pending login challenges.
package mfa

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/authcore-dev/authcore/internal"
	"github.com/authcore-dev/authcore/store"
)

// Method defines a public type used by authcore APIs.
type Method string

const (
	// MethodTOTP is an exported constant or variable used by the authentication engine.
	MethodTOTP Method = "totp"
	// MethodEmail is an exported constant or variable used by the authentication engine.
	MethodEmail Method = "email"
	// MethodSMS is an exported constant or variable used by the authentication engine.
	MethodSMS Method = "sms"
)

// CodeHasher hashes and verifies recovery codes. The engine wires the
// argon2id password hasher in here.
type CodeHasher interface {
	Hash(code string) (string, error)
	Verify(code, encodedHash string) (bool, error)
}

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Enabled                bool
	Required               bool
	Methods                []Method
	OTPLength              int
	OTPTTL                 time.Duration
	ChallengeTTL           time.Duration
	MaxChallengeAttempts   int
	TrustedDeviceTTL       time.Duration
	AllowSelfServiceToggle bool
	Issuer                 string

	// DefaultOTP, when non-empty, satisfies every email/SMS challenge.
	// Development escape hatch only; Config.Validate rejects it in
	// production mode and SecurityReport surfaces it.
	DefaultOTP string
}

// Service defines a public type used by authcore APIs.
//
// Service instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Service struct {
	cfg        Config
	otps       *OTPStore
	trusted    *TrustedDeviceStore
	challenges *ChallengeStore
	devices    store.TOTPDeviceStore
	users      store.UserStore
	hasher     CodeHasher
}

// NewService describes the newservice operation and its observable behavior.
//
// NewService may return an error when input validation, dependency calls, or security checks fail.
func NewService(cfg Config, otps *OTPStore, trusted *TrustedDeviceStore, challenges *ChallengeStore, devices store.TOTPDeviceStore, users store.UserStore, hasher CodeHasher) (*Service, error) {
	if otps == nil || trusted == nil || challenges == nil {
		return nil, errors.New("nil mfa store")
	}
	if users == nil {
		return nil, errors.New("nil user store")
	}
	if hasher == nil {
		return nil, errors.New("nil code hasher")
	}
	if cfg.OTPLength < 4 || cfg.OTPLength > 10 {
		return nil, errors.New("invalid otp length")
	}
	if cfg.OTPTTL <= 0 {
		return nil, errors.New("invalid otp ttl")
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []Method{MethodTOTP}
	}
	if cfg.TrustedDeviceTTL <= 0 {
		cfg.TrustedDeviceTTL = 30 * 24 * time.Hour
	}

	return &Service{
		cfg:        cfg,
		otps:       otps,
		trusted:    trusted,
		challenges: challenges,
		devices:    devices,
		users:      users,
		hasher:     hasher,
	}, nil
}

// RequiresMFA reports whether a login for this user must pass a second
// factor: globally required, or enabled on the account. A globally
// disabled policy wins over the per-user flag.
func (s *Service) RequiresMFA(user *store.User) bool {
	if !s.cfg.Enabled {
		return false
	}
	return s.cfg.Required || user.MFAEnabled
}

// MethodAllowed reports whether policy offers this method at all.
func (s *Service) MethodAllowed(method Method) bool {
	for _, m := range s.cfg.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// SendCode issues a fresh one-time code for an email/SMS challenge and
// returns the plaintext for the external deliverer. Any prior
// unconsumed code for the same purpose is invalidated by the issue.
func (s *Service) SendCode(ctx context.Context, tenantID, userID string, method Method, purpose Purpose) (string, error) {
	if method != MethodEmail && method != MethodSMS {
		return "", ErrMethodUnavailable
	}
	if purpose == PurposeMFA && !s.MethodAllowed(method) {
		return "", ErrMethodUnavailable
	}

	code, err := internal.NewOTP(s.cfg.OTPLength)
	if err != nil {
		return "", err
	}
	if err := s.otps.Issue(ctx, tenantID, userID, purpose, code, s.cfg.OTPTTL); err != nil {
		return "", err
	}
	return code, nil
}

// ConsumeVerificationCode spends a contact-verification code issued
// through [OTPStore.Issue] with [PurposeVerification].
func (s *Service) ConsumeVerificationCode(ctx context.Context, tenantID, userID, code string) error {
	return s.otps.Consume(ctx, tenantID, userID, PurposeVerification, code)
}

// VerifyCode checks a second-factor code. TOTP codes are tried against
// every verified device with one step of skew; email/SMS codes are
// consumed atomically so each validates at most once.
func (s *Service) VerifyCode(ctx context.Context, user *store.User, method Method, code string) error {
	if s.cfg.DefaultOTP != "" && subtle.ConstantTimeCompare([]byte(code), []byte(s.cfg.DefaultOTP)) == 1 {
		return nil
	}

	switch method {
	case MethodTOTP:
		return s.verifyTOTP(ctx, user, code)
	case MethodEmail, MethodSMS:
		return s.otps.Consume(ctx, user.TenantID, user.ID, PurposeMFA, code)
	default:
		return ErrMethodUnavailable
	}
}

func (s *Service) verifyTOTP(ctx context.Context, user *store.User, code string) error {
	devices, err := s.devices.Devices(ctx, user.TenantID, user.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, d := range devices {
		if !d.Verified {
			continue
		}
		if validateTOTP(code, d.Secret, now) {
			_ = s.devices.TouchDevice(ctx, user.TenantID, user.ID, d.ID)
			return nil
		}
	}
	return ErrCodeInvalid
}

// SetupTOTPDevice enrolls an unverified authenticator device and
// returns the provisioning material. The device satisfies nothing
// until [Service.VerifyTOTPSetup] confirms it.
func (s *Service) SetupTOTPDevice(ctx context.Context, user *store.User, label string) (*Enrollment, error) {
	accountName := user.Email
	if accountName == "" {
		accountName = user.ID
	}

	secret, uri, err := generateTOTPSecret(s.cfg.Issuer, accountName)
	if err != nil {
		return nil, err
	}

	device := &store.TOTPDevice{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Label:    label,
		Secret:   secret,
	}
	if err := s.devices.CreateDevice(ctx, device); err != nil {
		return nil, err
	}

	return &Enrollment{
		DeviceID:        device.ID,
		Secret:          secret,
		ProvisioningURI: uri,
	}, nil
}

// VerifyTOTPSetup confirms a pending device once the user proves
// possession with a current code.
func (s *Service) VerifyTOTPSetup(ctx context.Context, user *store.User, deviceID, code string) error {
	devices, err := s.devices.Devices(ctx, user.TenantID, user.ID)
	if err != nil {
		return err
	}

	for _, d := range devices {
		if d.ID != deviceID {
			continue
		}
		if !validateTOTP(code, d.Secret, time.Now()) {
			return ErrCodeInvalid
		}
		return s.devices.ConfirmDevice(ctx, user.TenantID, user.ID, d.ID)
	}
	return ErrDeviceNotFound
}

// VerifiedMethodExists reports whether the user has at least one
// method that can actually satisfy a challenge.
func (s *Service) VerifiedMethodExists(ctx context.Context, user *store.User) (bool, error) {
	devices, err := s.devices.Devices(ctx, user.TenantID, user.ID)
	if err != nil {
		return false, err
	}
	for _, d := range devices {
		if d.Verified {
			return true, nil
		}
	}

	// email/SMS count once the contact point itself is verified
	if s.MethodAllowed(MethodEmail) && user.EmailVerified {
		return true, nil
	}
	if s.MethodAllowed(MethodSMS) && user.PhoneVerified {
		return true, nil
	}
	return false, nil
}

// EnableMFA turns the account flag on, refusing when no verified
// method exists or policy forbids self-service toggling.
func (s *Service) EnableMFA(ctx context.Context, user *store.User) error {
	if !s.cfg.AllowSelfServiceToggle {
		return ErrTogglingNotAllowed
	}

	ok, err := s.VerifiedMethodExists(ctx, user)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoVerifiedMethod
	}

	user.MFAEnabled = true
	return s.users.UpdateUser(ctx, user)
}

// DisableMFA turns the account flag off when policy allows it.
func (s *Service) DisableMFA(ctx context.Context, user *store.User) error {
	if !s.cfg.AllowSelfServiceToggle {
		return ErrTogglingNotAllowed
	}

	user.MFAEnabled = false
	return s.users.UpdateUser(ctx, user)
}

// CreateTrustedDevice issues an MFA-bypass bearer token for the user.
// Only the token hash is stored.
func (s *Service) CreateTrustedDevice(ctx context.Context, user *store.User) (token string, expiresAt time.Time, err error) {
	token, err = internal.NewTrustedDeviceToken()
	if err != nil {
		return "", time.Time{}, err
	}

	ttl := s.cfg.TrustedDeviceTTL
	if err := s.trusted.Create(ctx, user.TenantID, user.ID, internal.HashToken(token), ttl); err != nil {
		return "", time.Time{}, err
	}
	return token, time.Now().Add(ttl), nil
}

// ValidateTrustedDevice reports whether the presented token still
// grants an MFA bypass for this user.
func (s *Service) ValidateTrustedDevice(ctx context.Context, user *store.User, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.trusted.Validate(ctx, user.TenantID, user.ID, internal.HashToken(token))
}

// GenerateRecoveryCode mints a single recovery code, overwriting any
// prior one, and stores only its hash on the user record.
func (s *Service) GenerateRecoveryCode(ctx context.Context, user *store.User) (string, error) {
	code, err := internal.NewRecoveryCode()
	if err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", err
	}

	user.RecoveryCodeHash = hash
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return "", err
	}
	return code, nil
}

// ResetMFA burns the recovery code and wipes every TOTP device so the
// user re-enrolls from scratch. MFA is switched off because nothing
// verified remains.
func (s *Service) ResetMFA(ctx context.Context, user *store.User, code string) error {
	if user.RecoveryCodeHash == "" {
		return ErrRecoveryCodeInvalid
	}

	ok, err := s.hasher.Verify(code, user.RecoveryCodeHash)
	if err != nil || !ok {
		return ErrRecoveryCodeInvalid
	}

	if err := s.devices.DeleteDevices(ctx, user.TenantID, user.ID); err != nil {
		return err
	}
	if err := s.trusted.RevokeAll(ctx, user.TenantID, user.ID); err != nil {
		return err
	}

	user.RecoveryCodeHash = ""
	user.MFAEnabled = false
	return s.users.UpdateUser(ctx, user)
}

// OpenChallenge records a pending login awaiting its second factor and
// returns the challenge handle plus the methods the user may answer
// with.
func (s *Service) OpenChallenge(ctx context.Context, user *store.User) (*Challenge, error) {
	methods, err := s.availableMethods(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, ErrNoVerifiedMethod
	}
	return s.challenges.Create(ctx, user.TenantID, user.ID, methods)
}

// Challenge loads a pending login challenge.
func (s *Service) Challenge(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	return s.challenges.Get(ctx, tenantID, challengeID)
}

// FailChallenge burns one attempt; the challenge is deleted when the
// budget runs out.
func (s *Service) FailChallenge(ctx context.Context, tenantID, challengeID string) error {
	return s.challenges.Fail(ctx, tenantID, challengeID)
}

// CompleteChallenge closes a challenge after a successful second
// factor.
func (s *Service) CompleteChallenge(ctx context.Context, tenantID, challengeID string) error {
	return s.challenges.Complete(ctx, tenantID, challengeID)
}

func (s *Service) availableMethods(ctx context.Context, user *store.User) ([]Method, error) {
	var methods []Method

	if s.MethodAllowed(MethodTOTP) {
		devices, err := s.devices.Devices(ctx, user.TenantID, user.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range devices {
			if d.Verified {
				methods = append(methods, MethodTOTP)
				break
			}
		}
	}
	if s.MethodAllowed(MethodEmail) && user.EmailVerified {
		methods = append(methods, MethodEmail)
	}
	if s.MethodAllowed(MethodSMS) && user.PhoneVerified {
		methods = append(methods, MethodSMS)
	}
	return methods, nil
}
