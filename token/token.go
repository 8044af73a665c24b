// Package token signs and verifies the engine's JWTs: access tokens,
// refresh tokens, and password-reset tokens. Verification is pure
// (signature and time claims only); session existence is the session
// store's concern.
package token

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators embedded in the typ claim to prevent
// cross-use of one token kind where another is expected.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeReset   = "reset"
)

// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
var ErrTokenInvalid = errors.New("token invalid")

// ErrTokenExpired is an exported constant or variable used by the authentication engine.
var ErrTokenExpired = errors.New("token expired")

// ErrWrongTokenType is an exported constant or variable used by the authentication engine.
var ErrWrongTokenType = errors.New("wrong token type")

// ErrPasswordChanged is returned when a reset token's password hint no
// longer matches the account's current hash.
var ErrPasswordChanged = errors.New("password changed since token issuance")

// SigningMethod defines a public type used by authcore APIs.
type SigningMethod string

const (
	// MethodHS256 is an exported constant or variable used by the authentication engine.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 is an exported constant or variable used by the authentication engine.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	SigningMethod SigningMethod
	Secret        []byte // hs256
	PrivateKey    []byte // ed25519 seed, raw key, or PEM
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims defines a public type used by authcore APIs.
//
// Claims instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Claims struct {
	Type         string   `json:"typ"`
	SessionID    string   `json:"sid,omitempty"`
	TenantID     string   `json:"tid,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	MFAVerified  bool     `json:"mfa,omitempty"`
	PasswordHint string   `json:"pwh,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// Service defines a public type used by authcore APIs.
//
// Service instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Service struct {
	config Config
}

// NewService describes the newservice operation and its observable behavior.
//
// NewService may return an error when input validation, dependency calls, or security checks fail.
// NewService does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewService(cfg Config) (*Service, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 15 * time.Minute
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Service{config: cfg}, nil
}

// Identity is the claim material common to access and refresh tokens.
type Identity struct {
	UserID      string
	SessionID   string
	TenantID    string
	Roles       []string
	MFAVerified bool
}

// GenerateAccessToken describes the generateaccesstoken operation and its observable behavior.
//
// GenerateAccessToken may return an error when input validation, dependency calls, or security checks fail.
// GenerateAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) GenerateAccessToken(id Identity) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.config.AccessTTL)

	claims := Claims{
		Type:        TypeAccess,
		SessionID:   id.SessionID,
		TenantID:    id.TenantID,
		Roles:       id.Roles,
		MFAVerified: id.MFAVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := s.sign(claims)
	return signed, exp, err
}

// GenerateRefreshToken issues a refresh token carrying a fresh jti
// rotation nonce. The caller persists HashJTI(jti) on the session so
// rotation can be compared-and-swapped server side.
func (s *Service) GenerateRefreshToken(id Identity) (token string, jti string, exp time.Time, err error) {
	now := time.Now()
	exp = now.Add(s.config.RefreshTTL)
	jti = uuid.NewString()

	claims := Claims{
		Type:      TypeRefresh,
		SessionID: id.SessionID,
		TenantID:  id.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    s.config.Issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err = s.sign(claims)
	return token, jti, exp, err
}

// VerifyToken describes the verifytoken operation and its observable behavior.
//
// VerifyToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) VerifyToken(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return s.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// VerifyAccessToken verifies signature and expiry and rejects
// non-access token types.
func (s *Service) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return s.verifyTyped(tokenStr, TypeAccess)
}

// VerifyRefreshToken verifies signature and expiry and rejects
// non-refresh token types.
func (s *Service) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return s.verifyTyped(tokenStr, TypeRefresh)
}

func (s *Service) verifyTyped(tokenStr, wantType string) (*Claims, error) {
	claims, err := s.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// GeneratePasswordResetToken issues a reset token whose pwh claim
// binds it to the account's current password hash. A password change
// in the meantime invalidates every outstanding reset token.
func (s *Service) GeneratePasswordResetToken(userID, tenantID, currentPasswordHash string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.config.ResetTTL)

	claims := Claims{
		Type:         TypeReset,
		TenantID:     tenantID,
		PasswordHint: PasswordHint(currentPasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := s.sign(claims)
	return signed, exp, err
}

// VerifyPasswordResetToken describes the verifypasswordresettoken operation and its observable behavior.
//
// VerifyPasswordResetToken may return an error when input validation, dependency calls, or security checks fail.
// VerifyPasswordResetToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) VerifyPasswordResetToken(tokenStr, currentPasswordHash string) (*Claims, error) {
	claims, err := s.verifyTyped(tokenStr, TypeReset)
	if err != nil {
		return nil, err
	}
	if claims.PasswordHint != PasswordHint(currentPasswordHash) {
		return nil, ErrPasswordChanged
	}
	return claims, nil
}

// PasswordHint derives the short hash prefix embedded in reset tokens.
func PasswordHint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:6])
}

// HashJTI returns the hex sha256 of a refresh rotation nonce. Sessions
// store only the hash.
func HashJTI(jti string) string {
	sum := sha256.Sum256([]byte(jti))
	return hex.EncodeToString(sum[:])
}

func (s *Service) sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(s.method(), claims)

	key, err := s.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

func (s *Service) method() jwt.SigningMethod {
	switch s.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (s *Service) signKey() (interface{}, error) {
	switch s.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(s.config.PrivateKey)
	default:
		return s.config.Secret, nil
	}
}

func (s *Service) verifyKey() (interface{}, error) {
	switch s.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(s.config.PublicKey)
	default:
		return s.config.Secret, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	pk, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key")
	}
	return pk, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	pk, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key")
	}
	return pk, nil
}
