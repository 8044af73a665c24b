package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		Enabled:          true,
		MaxLoginAttempts: 3,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "0", "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := l.RecordLoginFailure(ctx, "0", "alice", ""); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "0", "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// other identifiers are unaffected
	if err := l.CheckLogin(ctx, "0", "bob", ""); err != nil {
		t.Fatalf("bob should be clean: %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		Enabled:          true,
		MaxLoginAttempts: 1,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "0", "alice", ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.CheckLogin(ctx, "0", "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckLogin(ctx, "0", "alice", ""); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		Enabled:          true,
		EnableIPThrottle: true,
		MaxLoginAttempts: 1,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "0", "alice", "203.0.113.7"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.CheckLogin(ctx, "0", "alice", "203.0.113.7"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if err := l.ResetLogin(ctx, "0", "alice", "203.0.113.7"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.CheckLogin(ctx, "0", "alice", "203.0.113.7"); err != nil {
		t.Fatalf("expected clean slate, got %v", err)
	}
}

func TestIPThrottleSpansIdentifiers(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		Enabled:          true,
		EnableIPThrottle: true,
		MaxLoginAttempts: 2,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "0", "alice", "203.0.113.7"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.RecordLoginFailure(ctx, "0", "bob", "203.0.113.7"); err != nil {
		t.Fatalf("record: %v", err)
	}

	// carol is clean by identifier but the IP burned its budget
	if err := l.CheckLogin(ctx, "0", "carol", "203.0.113.7"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "0", "carol", "198.51.100.1"); err != nil {
		t.Fatalf("other IP should pass: %v", err)
	}
}

func TestRefreshBudget(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		Enabled:          true,
		MaxRefreshPerMin: 2,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "sess-1"); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	if err := l.CheckRefresh(ctx, "sess-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.CheckRefresh(ctx, "sess-1"); err != nil {
		t.Fatalf("window should have expired: %v", err)
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l, _ := newTestLimiter(t, Config{Enabled: false, MaxLoginAttempts: 1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.RecordLoginFailure(ctx, "0", "alice", ""); err != nil {
			t.Fatalf("record: %v", err)
		}
		if err := l.CheckLogin(ctx, "0", "alice", ""); err != nil {
			t.Fatalf("disabled limiter must not throttle: %v", err)
		}
	}
}
