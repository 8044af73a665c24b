// Package store defines the repository contracts the engine persists
// identity data through, plus an in-memory reference implementation.
//
// The engine never assumes a persistence technology. Callers hand the
// builder implementations of [UserStore], [IdentityStore], and
// [TOTPDeviceStore]; everything racy (refresh rotation, OTP
// consumption, session eviction) lives in the Redis-backed stores, so
// these contracts stay plain Create/Find/Update operations.
package store

import "time"

// UserStatus defines a public type used by authcore APIs.
type UserStatus string

const (
	// StatusActive is an exported constant or variable used by the authentication engine.
	StatusActive UserStatus = "active"
	// StatusPending is an exported constant or variable used by the authentication engine.
	StatusPending UserStatus = "pending"
	// StatusSuspended is an exported constant or variable used by the authentication engine.
	StatusSuspended UserStatus = "suspended"
	// StatusLocked is an exported constant or variable used by the authentication engine.
	StatusLocked UserStatus = "locked"
	// StatusDeleted is an exported constant or variable used by the authentication engine.
	StatusDeleted UserStatus = "deleted"
)

// User is the canonical identity record.
//
// Email and Phone are unique per tenant when set. PasswordHash holds a
// PHC-format argon2id string, empty for users created through external
// providers only. RecoveryCodeHash holds at most one hashed MFA
// recovery code.
type User struct {
	ID               string
	TenantID         string
	Email            string
	Phone            string
	PasswordHash     string
	EmailVerified    bool
	PhoneVerified    bool
	MFAEnabled       bool
	RecoveryCodeHash string
	Status           UserStatus
	Roles            []string
	Metadata         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Identity links a user to one credential provider's account.
// Uniqueness is (Provider, ProviderUserID).
type Identity struct {
	ID             string
	UserID         string
	TenantID       string
	Provider       string
	ProviderUserID string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// TOTPDevice is one enrolled authenticator app. Unverified devices do
// not satisfy MFA and do not count toward enabled methods.
type TOTPDevice struct {
	ID         string
	UserID     string
	TenantID   string
	Label      string
	Secret     string
	Verified   bool
	CreatedAt  time.Time
	LastUsedAt time.Time
}
