package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mgr, err := NewManager(NewStore(client, "authcore"), cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return mgr, mr
}

func defaultManagerConfig() Config {
	return Config{
		Lifetime:           time.Hour,
		SlidingExpiration:  true,
		MaxSessionsPerUser: 10,
	}
}

func newSession(id string) *Session {
	return &Session{
		ID:          id,
		UserID:      "user-1",
		TenantID:    "0",
		Roles:       []string{"member"},
		RefreshHash: "hash-" + id,
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t, defaultManagerConfig())

	s := newSession("s1")
	s.DeviceName = "laptop"
	s.UserAgent = "agent/1.0"
	s.IPAddress = "203.0.113.7"
	s.MFAVerified = true
	s.Data = `{"k":"v"}`

	evicted, err := mgr.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(evicted) != 0 {
		t.Fatalf("unexpected evictions: %v", evicted)
	}

	got, err := mgr.Get(context.Background(), "0", "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "user-1" || got.RefreshHash != "hash-s1" || !got.MFAVerified {
		t.Fatalf("session mismatch: %+v", got)
	}
	if got.DeviceName != "laptop" || got.UserAgent != "agent/1.0" || got.IPAddress != "203.0.113.7" {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if got.Data != `{"k":"v"}` {
		t.Fatalf("data mismatch: %q", got.Data)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "member" {
		t.Fatalf("roles mismatch: %v", got.Roles)
	}
	if got.CreatedAt.IsZero() || got.ExpiresAt.Before(got.CreatedAt) {
		t.Fatalf("timestamps not stamped: %+v", got)
	}
}

func TestGetMissingSession(t *testing.T) {
	mgr, _ := newTestManager(t, defaultManagerConfig())

	if _, err := mgr.Get(context.Background(), "0", "ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateEvictsLeastRecentlyActive(t *testing.T) {
	cfg := defaultManagerConfig()
	cfg.MaxSessionsPerUser = 2
	mgr, _ := newTestManager(t, cfg)

	for i := 1; i <= 2; i++ {
		if _, err := mgr.Create(context.Background(), newSession(fmt.Sprintf("s%d", i))); err != nil {
			t.Fatalf("Create s%d failed: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	evicted, err := mgr.Create(context.Background(), newSession("s3"))
	if err != nil {
		t.Fatalf("Create s3 failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != "s1" {
		t.Fatalf("expected [s1] evicted, got %v", evicted)
	}

	if _, err := mgr.Get(context.Background(), "0", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("evicted session still readable: %v", err)
	}
	if n, err := mgr.Count(context.Background(), "0", "user-1"); err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d err %v", n, err)
	}
}

func TestUncappedSessionsNeverEvict(t *testing.T) {
	cfg := defaultManagerConfig()
	cfg.MaxSessionsPerUser = 0
	mgr, _ := newTestManager(t, cfg)

	for i := 0; i < 20; i++ {
		evicted, err := mgr.Create(context.Background(), newSession(fmt.Sprintf("s%d", i)))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(evicted) != 0 {
			t.Fatalf("uncapped store evicted %v", evicted)
		}
	}
}

func TestRotateSingleWinner(t *testing.T) {
	mgr, _ := newTestManager(t, defaultManagerConfig())

	if _, err := mgr.Create(context.Background(), newSession("s1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mgr.Rotate(context.Background(), "0", "user-1", "s1", "hash-s1", "hash-2"); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// the old nonce is spent
	err := mgr.Rotate(context.Background(), "0", "user-1", "s1", "hash-s1", "hash-3")
	if !errors.Is(err, ErrRefreshMismatch) {
		t.Fatalf("expected ErrRefreshMismatch, got %v", err)
	}

	got, err := mgr.Get(context.Background(), "0", "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RefreshHash != "hash-2" {
		t.Fatalf("expected hash-2, got %s", got.RefreshHash)
	}
}

func TestRotateMissingSession(t *testing.T) {
	mgr, _ := newTestManager(t, defaultManagerConfig())

	err := mgr.Rotate(context.Background(), "0", "user-1", "ghost", "a", "b")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRotateSlidesExpiry(t *testing.T) {
	cfg := defaultManagerConfig()
	cfg.Lifetime = time.Hour
	mgr, mr := newTestManager(t, cfg)

	if _, err := mgr.Create(context.Background(), newSession("s1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// burn half the lifetime, then rotate
	mr.FastForward(30 * time.Minute)
	if err := mgr.Rotate(context.Background(), "0", "user-1", "s1", "hash-s1", "hash-2"); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// a full fresh lifetime from the rotation keeps the session alive
	mr.FastForward(45 * time.Minute)
	if _, err := mgr.Get(context.Background(), "0", "s1"); err != nil {
		t.Fatalf("slid session should still live: %v", err)
	}
}

func TestFixedExpiryWithoutSliding(t *testing.T) {
	cfg := defaultManagerConfig()
	cfg.SlidingExpiration = false
	cfg.Lifetime = time.Hour
	mgr, mr := newTestManager(t, cfg)

	if _, err := mgr.Create(context.Background(), newSession("s1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mr.FastForward(30 * time.Minute)
	if err := mgr.Rotate(context.Background(), "0", "user-1", "s1", "hash-s1", "hash-2"); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// rotation must not have extended the original expiry
	mr.FastForward(45 * time.Minute)
	if _, err := mgr.Get(context.Background(), "0", "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session expired away, got %v", err)
	}
}

func TestDeleteOthersKeepsCurrent(t *testing.T) {
	mgr, _ := newTestManager(t, defaultManagerConfig())

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := mgr.Create(context.Background(), newSession(id)); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	n, err := mgr.RevokeOthers(context.Background(), "0", "user-1", "s2")
	if err != nil {
		t.Fatalf("RevokeOthers failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}
	if _, err := mgr.Get(context.Background(), "0", "s2"); err != nil {
		t.Fatalf("current session must survive: %v", err)
	}
}

func TestListActivePrunesDeadEntries(t *testing.T) {
	mgr, mr := newTestManager(t, defaultManagerConfig())

	if _, err := mgr.Create(context.Background(), newSession("s1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := mgr.Create(context.Background(), newSession("s2")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// kill one hash behind the index's back, as TTL expiry would
	mr.Del("authcore:sess:0:s1")

	sessions, err := mgr.ListActive(context.Background(), "0", "user-1", "")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s2" {
		t.Fatalf("expected only s2, got %+v", sessions)
	}
}
