package store

import (
	"context"
	"errors"
)

// ErrNotFound is an exported constant or variable used by the authentication engine.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is an exported constant or variable used by the authentication engine.
var ErrDuplicate = errors.New("record already exists")

// UserStore persists canonical users. Lookup methods return
// [ErrNotFound] for missing records, never a nil user with nil error.
// Email lookups receive already-lowercased addresses.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, tenantID, id string) (*User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*User, error)
	GetUserByPhone(ctx context.Context, tenantID, phone string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// IdentityStore persists provider links. LinkIdentity returns
// [ErrDuplicate] when (provider, providerUserID) is already linked.
type IdentityStore interface {
	LinkIdentity(ctx context.Context, identity *Identity) error
	FindIdentity(ctx context.Context, provider, providerUserID string) (*Identity, error)
	IdentitiesForUser(ctx context.Context, userID string) ([]*Identity, error)
	UnlinkIdentity(ctx context.Context, provider, providerUserID string) error
}

// TOTPDeviceStore persists enrolled authenticator devices.
type TOTPDeviceStore interface {
	CreateDevice(ctx context.Context, device *TOTPDevice) error
	Devices(ctx context.Context, tenantID, userID string) ([]*TOTPDevice, error)
	ConfirmDevice(ctx context.Context, tenantID, userID, deviceID string) error
	TouchDevice(ctx context.Context, tenantID, userID, deviceID string) error
	DeleteDevice(ctx context.Context, tenantID, userID, deviceID string) error
	DeleteDevices(ctx context.Context, tenantID, userID string) error
}
