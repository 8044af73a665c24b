package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// loginN opens n sessions for alice, oldest first, spacing activity
// timestamps so ordering is deterministic.
func loginN(t *testing.T, engine *Engine, n int) []*LoginResult {
	t.Helper()

	results := make([]*LoginResult, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, loginAlice(t, engine))
		time.Sleep(2 * time.Millisecond)
	}
	return results
}

func TestSessionCapEvictsOldest(t *testing.T) {
	engine, mem, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Session.MaxSessionsPerUser = 3
	})
	user := seedUser(t, engine, mem, "alice@example.com", "correct horse battery")

	sessions := loginN(t, engine, 4)

	n, err := engine.SessionCount(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("SessionCount failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sessions after eviction, got %d", n)
	}

	// the least recently active session was the victim
	if _, err := engine.ValidateAccessTokenStrict(context.Background(), sessions[0].Tokens.AccessToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected oldest session evicted, got %v", err)
	}
	for i := 1; i < 4; i++ {
		if _, err := engine.ValidateAccessTokenStrict(context.Background(), sessions[i].Tokens.AccessToken); err != nil {
			t.Fatalf("session %d should survive: %v", i, err)
		}
	}
}

func TestSessionsListingOrderAndCurrentFlag(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, engine, mem, "alice@example.com", "correct horse battery")

	sessions := loginN(t, engine, 3)
	current := sessions[0].SessionID // oldest, to prove the float

	infos, err := engine.Sessions(context.Background(), user.ID, current)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(infos))
	}
	if infos[0].ID != current || !infos[0].Current {
		t.Fatalf("expected current session first, got %s (current=%v)", infos[0].ID, infos[0].Current)
	}
	// the rest are most recently active first
	if infos[1].ID != sessions[2].SessionID || infos[2].ID != sessions[1].SessionID {
		t.Fatalf("unexpected order: %s, %s", infos[1].ID, infos[2].ID)
	}
	for _, info := range infos[1:] {
		if info.Current {
			t.Fatalf("session %s wrongly flagged current", info.ID)
		}
	}
}

func TestRevokeOtherSessions(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, engine, mem, "alice@example.com", "correct horse battery")

	sessions := loginN(t, engine, 3)
	keep := sessions[1].SessionID

	revoked, err := engine.RevokeOtherSessions(context.Background(), user.ID, keep)
	if err != nil {
		t.Fatalf("RevokeOtherSessions failed: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("expected 2 revoked, got %d", revoked)
	}

	infos, err := engine.Sessions(context.Background(), user.ID, keep)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != keep {
		t.Fatalf("expected only %s to survive, got %v", keep, infos)
	}
}

func TestRevokeSessionIdempotent(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, engine, mem, "alice@example.com", "correct horse battery")
	res := loginAlice(t, engine)

	if err := engine.RevokeSession(context.Background(), user.ID, res.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if err := engine.RevokeSession(context.Background(), user.ID, res.SessionID); err != nil {
		t.Fatalf("second RevokeSession failed: %v", err)
	}
}

func TestSetSessionData(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, engine, mem, "alice@example.com", "correct horse battery")
	res := loginAlice(t, engine)

	if err := engine.SetSessionData(context.Background(), res.SessionID, `{"theme":"dark"}`); err != nil {
		t.Fatalf("SetSessionData failed: %v", err)
	}
	if err := engine.SetSessionData(context.Background(), "no-such-session", "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionMetadataCaptured(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, engine, mem, "alice@example.com", "correct horse battery")

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	ctx = WithUserAgent(ctx, "test-agent/1.0")
	ctx = WithDeviceName(ctx, "laptop")

	res, err := engine.Login(ctx, ProviderPassword, Credentials{
		"email":    "alice@example.com",
		"password": "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	infos, err := engine.Sessions(context.Background(), user.ID, res.SessionID)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 session, got %d", len(infos))
	}
	if infos[0].IPAddress != "203.0.113.7" || infos[0].UserAgent != "test-agent/1.0" || infos[0].DeviceName != "laptop" {
		t.Fatalf("metadata not captured: %+v", infos[0])
	}
}
