package mfa

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// touchTrustedScript updates last-used without touching the key TTL,
// so validation can never extend an expiring token's life.
const touchTrustedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "lu", ARGV[1])
return 1
`

var touchTrustedLua = redis.NewScript(touchTrustedScript)

// TrustedDeviceStore persists MFA-bypass bearer tokens, keyed by token
// hash so the plaintext never lands in Redis. Expiry is the key TTL.
type TrustedDeviceStore struct {
	client redis.UniversalClient
	prefix string
}

// NewTrustedDeviceStore describes the newtrusteddevicestore operation and its observable behavior.
//
// NewTrustedDeviceStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewTrustedDeviceStore(client redis.UniversalClient, prefix string) *TrustedDeviceStore {
	if prefix == "" {
		prefix = "authcore"
	}
	return &TrustedDeviceStore{client: client, prefix: prefix}
}

func (t *TrustedDeviceStore) key(tenantID, userID, tokenHash string) string {
	return t.prefix + ":trust:" + tenantID + ":" + userID + ":" + tokenHash
}

// Create registers a trusted-device token hash for the user with the
// given lifetime.
func (t *TrustedDeviceStore) Create(ctx context.Context, tenantID, userID, tokenHash string, ttl time.Duration) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	key := t.key(tenantID, userID, tokenHash)

	pipe := t.client.TxPipeline()
	pipe.HSet(ctx, key, "cat", now, "lu", now)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Validate reports whether the token is still live, updating its
// last-used timestamp when it is. Expired tokens have already been
// dropped by Redis; the check cannot revive them.
func (t *TrustedDeviceStore) Validate(ctx context.Context, tenantID, userID, tokenHash string) (bool, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	live, err := touchTrustedLua.Run(ctx, t.client,
		[]string{t.key(tenantID, userID, tokenHash)},
		now,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return live == 1, nil
}

// Revoke drops one trusted-device token.
func (t *TrustedDeviceStore) Revoke(ctx context.Context, tenantID, userID, tokenHash string) error {
	if err := t.client.Del(ctx, t.key(tenantID, userID, tokenHash)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAll drops every trusted-device token of the user.
func (t *TrustedDeviceStore) RevokeAll(ctx context.Context, tenantID, userID string) error {
	pattern := t.key(tenantID, userID, "*")

	iter := t.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := t.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
