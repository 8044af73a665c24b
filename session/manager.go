package session

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Lifetime           time.Duration
	SlidingExpiration  bool
	MaxSessionsPerUser int
	JitterEnabled      bool
	JitterRange        time.Duration
}

// Manager applies session policy (lifetime, sliding expiration, the
// per-user cap) on top of the raw [Store].
type Manager struct {
	store *Store
	cfg   Config
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
func NewManager(store *Store, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("nil session store")
	}
	if cfg.Lifetime <= 0 {
		return nil, errors.New("invalid session lifetime")
	}
	if cfg.MaxSessionsPerUser < 0 {
		return nil, errors.New("invalid max sessions per user")
	}
	if cfg.JitterEnabled && (cfg.JitterRange <= 0 || cfg.JitterRange >= cfg.Lifetime) {
		return nil, errors.New("invalid session jitter range")
	}
	return &Manager{store: store, cfg: cfg}, nil
}

// Create stamps lifecycle timestamps onto the session and inserts it,
// evicting the user's least-recently-active sessions at the cap.
func (m *Manager) Create(ctx context.Context, s *Session) ([]string, error) {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.LastActiveAt = now
	s.ExpiresAt = now.Add(m.lifetimeWithJitter())

	return m.store.Create(ctx, s, m.cfg.MaxSessionsPerUser)
}

// Rotate swaps the refresh nonce hash under the configured sliding
// policy. Exactly one of any set of concurrent callers presenting the
// same expected hash succeeds.
func (m *Manager) Rotate(ctx context.Context, tenantID, userID, sessionID, expectedHash, newHash string) error {
	sliding := time.Duration(0)
	if m.cfg.SlidingExpiration {
		sliding = m.lifetimeWithJitter()
	}
	return m.store.Rotate(ctx, tenantID, userID, sessionID, expectedHash, newHash, sliding)
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	return m.store.Get(ctx, tenantID, sessionID)
}

// Revoke deletes one session. Absent sessions are treated as already
// revoked, not as an error.
func (m *Manager) Revoke(ctx context.Context, tenantID, userID, sessionID string) error {
	_, err := m.store.Delete(ctx, tenantID, userID, sessionID)
	return err
}

// RevokeAll deletes every session of the user.
func (m *Manager) RevokeAll(ctx context.Context, tenantID, userID string) (int, error) {
	return m.store.DeleteAll(ctx, tenantID, userID)
}

// RevokeOthers deletes every session of the user except the current one.
func (m *Manager) RevokeOthers(ctx context.Context, tenantID, userID, currentSessionID string) (int, error) {
	return m.store.DeleteOthers(ctx, tenantID, userID, currentSessionID)
}

// ListActive returns live sessions ordered by last activity descending.
// When currentSessionID names a live session it is moved to the front;
// the engine cannot know "current" on its own, the caller marks it.
func (m *Manager) ListActive(ctx context.Context, tenantID, userID, currentSessionID string) ([]*Session, error) {
	sessions, err := m.store.ListActive(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if currentSessionID != "" {
		for i, s := range sessions {
			if s.ID == currentSessionID && i > 0 {
				current := sessions[i]
				copy(sessions[1:i+1], sessions[:i])
				sessions[0] = current
				break
			}
		}
	}
	return sessions, nil
}

// Count returns the number of indexed sessions for the user.
func (m *Manager) Count(ctx context.Context, tenantID, userID string) (int, error) {
	return m.store.Count(ctx, tenantID, userID)
}

// SetData replaces the opaque server-side blob on a session.
func (m *Manager) SetData(ctx context.Context, tenantID, sessionID, data string) error {
	return m.store.SetData(ctx, tenantID, sessionID, data)
}

// lifetimeWithJitter spreads expiry so large fleets do not expire a
// login wave in the same instant.
func (m *Manager) lifetimeWithJitter() time.Duration {
	if !m.cfg.JitterEnabled {
		return m.cfg.Lifetime
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(m.cfg.JitterRange)))
	if err != nil {
		return m.cfg.Lifetime
	}
	return m.cfg.Lifetime + time.Duration(n.Int64())
}
