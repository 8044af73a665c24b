package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory implementation of all three store contracts.
// Intended for tests and single-process embedding; every returned
// record is a copy so callers cannot mutate store state in place.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*User     // tenant "\x00" id
	byEmail    map[string]string    // tenant "\x00" email -> id
	byPhone    map[string]string    // tenant "\x00" phone -> id
	identities map[string]*Identity // provider "\x00" providerUserID
	devices    map[string][]*TOTPDevice
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*User),
		byEmail:    make(map[string]string),
		byPhone:    make(map[string]string),
		identities: make(map[string]*Identity),
		devices:    make(map[string][]*TOTPDevice),
	}
}

func key2(a, b string) string { return a + "\x00" + b }

func copyUser(u *User) *User {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	if u.Metadata != nil {
		c.Metadata = make(map[string]string, len(u.Metadata))
		for k, v := range u.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (m *Memory) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = StatusActive
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Email = strings.ToLower(user.Email)

	if _, ok := m.users[key2(user.TenantID, user.ID)]; ok {
		return ErrDuplicate
	}
	if user.Email != "" {
		if _, ok := m.byEmail[key2(user.TenantID, user.Email)]; ok {
			return ErrDuplicate
		}
	}
	if user.Phone != "" {
		if _, ok := m.byPhone[key2(user.TenantID, user.Phone)]; ok {
			return ErrDuplicate
		}
	}

	m.users[key2(user.TenantID, user.ID)] = copyUser(user)
	if user.Email != "" {
		m.byEmail[key2(user.TenantID, user.Email)] = user.ID
	}
	if user.Phone != "" {
		m.byPhone[key2(user.TenantID, user.Phone)] = user.ID
	}
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, tenantID, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[key2(tenantID, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, tenantID, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[key2(tenantID, strings.ToLower(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.users[key2(tenantID, id)]), nil
}

func (m *Memory) GetUserByPhone(_ context.Context, tenantID, phone string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPhone[key2(tenantID, phone)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.users[key2(tenantID, id)]), nil
}

func (m *Memory) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.users[key2(user.TenantID, user.ID)]
	if !ok {
		return ErrNotFound
	}

	user.Email = strings.ToLower(user.Email)
	user.UpdatedAt = time.Now().UTC()

	if prev.Email != user.Email {
		delete(m.byEmail, key2(user.TenantID, prev.Email))
		if user.Email != "" {
			m.byEmail[key2(user.TenantID, user.Email)] = user.ID
		}
	}
	if prev.Phone != user.Phone {
		delete(m.byPhone, key2(user.TenantID, prev.Phone))
		if user.Phone != "" {
			m.byPhone[key2(user.TenantID, user.Phone)] = user.ID
		}
	}

	m.users[key2(user.TenantID, user.ID)] = copyUser(user)
	return nil
}

func (m *Memory) LinkIdentity(_ context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now().UTC()
	}

	k := key2(identity.Provider, identity.ProviderUserID)
	if _, ok := m.identities[k]; ok {
		return ErrDuplicate
	}

	c := *identity
	m.identities[k] = &c
	return nil
}

func (m *Memory) FindIdentity(_ context.Context, provider, providerUserID string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.identities[key2(provider, providerUserID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *id
	return &c, nil
}

func (m *Memory) IdentitiesForUser(_ context.Context, userID string) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Identity
	for _, id := range m.identities {
		if id.UserID == userID {
			c := *id
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Memory) UnlinkIdentity(_ context.Context, provider, providerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.identities, key2(provider, providerUserID))
	return nil
}

func (m *Memory) CreateDevice(_ context.Context, device *TOTPDevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	k := key2(device.TenantID, device.UserID)
	c := *device
	m.devices[k] = append(m.devices[k], &c)
	return nil
}

func (m *Memory) Devices(_ context.Context, tenantID, userID string) ([]*TOTPDevice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.devices[key2(tenantID, userID)]
	out := make([]*TOTPDevice, 0, len(list))
	for _, d := range list {
		c := *d
		out = append(out, &c)
	}
	return out, nil
}

func (m *Memory) ConfirmDevice(_ context.Context, tenantID, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices[key2(tenantID, userID)] {
		if d.ID == deviceID {
			d.Verified = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) TouchDevice(_ context.Context, tenantID, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.devices[key2(tenantID, userID)] {
		if d.ID == deviceID {
			d.LastUsedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteDevice(_ context.Context, tenantID, userID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key2(tenantID, userID)
	list := m.devices[k]
	for i, d := range list {
		if d.ID == deviceID {
			m.devices[k] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteDevices(_ context.Context, tenantID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.devices, key2(tenantID, userID))
	return nil
}
