// Package rate enforces fixed-window login and refresh throttles with
// Redis counters.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is an exported constant or variable used by the authentication engine.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// incrScript bumps the window counter, attaching the window TTL only
// on the first hit so the window is fixed, not sliding.
const incrScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrLua = redis.NewScript(incrScript)

// Config holds throttle tuning parameters.
type Config struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxLoginAttempts int
	LoginWindow      time.Duration
	MaxRefreshPerMin int
	RedisPrefix      string
}

// Limiter enforces per-identifier and per-IP budgets for login and a
// per-session budget for refresh.
type Limiter struct {
	client redis.UniversalClient
	cfg    Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "authcore"
	}
	return &Limiter{client: client, cfg: cfg}
}

func (l *Limiter) loginIdentKey(tenantID, identifier string) string {
	return l.cfg.RedisPrefix + ":rl:login:" + tenantID + ":" + identifier
}

func (l *Limiter) loginIPKey(ip string) string {
	return l.cfg.RedisPrefix + ":rl:ip:" + ip
}

func (l *Limiter) refreshKey(sessionID string) string {
	return l.cfg.RedisPrefix + ":rl:refresh:" + sessionID
}

// CheckLogin reports whether another login attempt is within budget
// for the identifier and, when IP throttling is on, the caller IP.
func (l *Limiter) CheckLogin(ctx context.Context, tenantID, identifier, ip string) error {
	if !l.cfg.Enabled {
		return nil
	}

	if err := l.check(ctx, l.loginIdentKey(tenantID, identifier), l.cfg.MaxLoginAttempts); err != nil {
		return err
	}
	if l.cfg.EnableIPThrottle && ip != "" {
		return l.check(ctx, l.loginIPKey(ip), l.cfg.MaxLoginAttempts)
	}
	return nil
}

// RecordLoginFailure counts a failed attempt against the identifier
// and IP windows.
func (l *Limiter) RecordLoginFailure(ctx context.Context, tenantID, identifier, ip string) error {
	if !l.cfg.Enabled {
		return nil
	}

	if _, err := l.incr(ctx, l.loginIdentKey(tenantID, identifier), l.cfg.LoginWindow); err != nil {
		return err
	}
	if l.cfg.EnableIPThrottle && ip != "" {
		if _, err := l.incr(ctx, l.loginIPKey(ip), l.cfg.LoginWindow); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears failure counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, tenantID, identifier, ip string) error {
	if !l.cfg.Enabled {
		return nil
	}

	keys := []string{l.loginIdentKey(tenantID, identifier)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, l.loginIPKey(ip))
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts a refresh attempt for the session against a
// one-minute window.
func (l *Limiter) CheckRefresh(ctx context.Context, sessionID string) error {
	if !l.cfg.Enabled || l.cfg.MaxRefreshPerMin <= 0 {
		return nil
	}

	count, err := l.incr(ctx, l.refreshKey(sessionID), time.Minute)
	if err != nil {
		return err
	}
	if count > int64(l.cfg.MaxRefreshPerMin) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, key string, max int) error {
	if max <= 0 {
		return nil
	}

	count, err := l.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(max) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := incrLua.Run(ctx, l.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}
