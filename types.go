package authcore

import (
	"time"

	"github.com/authcore-dev/authcore/store"
)

// Credentials is the raw caller-supplied credential map handed to a
// provider, e.g. {"email": ..., "password": ...}.
type Credentials map[string]string

// ProviderIdentity is the canonical result of credential validation:
// who the provider says this is, plus whatever contact points it can
// vouch for.
type ProviderIdentity struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Phone          string
	PhoneVerified  bool
	Metadata       map[string]string
}

// TokenPair defines a public type used by authcore APIs.
//
// TokenPair instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginStatus defines a public type used by authcore APIs.
type LoginStatus string

const (
	// LoginStatusOK is an exported constant or variable used by the authentication engine.
	LoginStatusOK LoginStatus = "ok"
	// LoginStatusMFARequired is an exported constant or variable used by the authentication engine.
	LoginStatusMFARequired LoginStatus = "mfa_required"
)

// MFAChallengeInfo is handed back in place of tokens when a login
// still owes a second factor.
type MFAChallengeInfo struct {
	ChallengeID string
	Methods     []string
	ExpiresIn   time.Duration
}

// LoginResult defines a public type used by authcore APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	Status    LoginStatus
	User      *store.User
	SessionID string
	Tokens    *TokenPair
	MFA       *MFAChallengeInfo

	// TrustedDeviceToken is set when an MFA confirmation asked to
	// remember the device. Hand it back on future logins in
	// creds["trusted_device"].
	TrustedDeviceToken     string
	TrustedDeviceExpiresAt time.Time
}

// SessionInfo is the caller-facing view of one session record.
type SessionInfo struct {
	ID           string
	DeviceName   string
	UserAgent    string
	IPAddress    string
	CreatedAt    time.Time
	LastActiveAt time.Time
	ExpiresAt    time.Time
	Current      bool
}

// SignupRequest defines a public type used by authcore APIs.
//
// SignupRequest instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SignupRequest struct {
	Email    string
	Phone    string
	Password string
	Roles    []string
	Metadata map[string]string
}

// TOTPEnrollment is the provisioning material for a newly registered
// authenticator device. The secret is shown once and never stored in
// plaintext outside the device store.
type TOTPEnrollment struct {
	DeviceID        string
	Secret          string
	ProvisioningURI string
}
