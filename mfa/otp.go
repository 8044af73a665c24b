package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purpose tags one-time codes so a verification code can never satisfy
// an MFA challenge and vice versa.
type Purpose string

const (
	// PurposeVerification is an exported constant or variable used by the authentication engine.
	PurposeVerification Purpose = "verify"
	// PurposeMFA is an exported constant or variable used by the authentication engine.
	PurposeMFA Purpose = "mfa"
	// PurposeReset is an exported constant or variable used by the authentication engine.
	PurposeReset Purpose = "reset"
	// PurposeLogin is an exported constant or variable used by the authentication engine.
	PurposeLogin Purpose = "login"
)

// usedMarker replaces a consumed code for the rest of its TTL so a
// replay can be distinguished from a code that never existed. The
// leading NUL cannot collide with generated codes.
const usedMarker = "\x00used"

const (
	consumeStatusNotFound int64 = 0
	consumeStatusUsed     int64 = 1
	consumeStatusMismatch int64 = 2
	consumeStatusConsumed int64 = 3
)

// consumeScript is the single-use guarantee: compare and replace with
// the used marker in one step, so two concurrent presentations of the
// same code have exactly one winner.
const consumeScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return 0
end
if v == ARGV[2] then
  return 1
end
if v ~= ARGV[1] then
  return 2
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 1 then
  ttl = 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
return 3
`

var consumeLua = redis.NewScript(consumeScript)

// OTPStore keeps at most one live code per (tenant, user, purpose).
// Issuing a new code overwrites, and thereby invalidates, any prior
// unconsumed one.
type OTPStore struct {
	client redis.UniversalClient
	prefix string
}

// NewOTPStore describes the newotpstore operation and its observable behavior.
//
// NewOTPStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewOTPStore(client redis.UniversalClient, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "authcore"
	}
	return &OTPStore{client: client, prefix: prefix}
}

func (o *OTPStore) key(tenantID, userID string, purpose Purpose) string {
	return o.prefix + ":otp:" + tenantID + ":" + userID + ":" + string(purpose)
}

// Issue stores the code with the given TTL, replacing any outstanding
// code for the same purpose.
func (o *OTPStore) Issue(ctx context.Context, tenantID, userID string, purpose Purpose, code string, ttl time.Duration) error {
	if err := o.client.Set(ctx, o.key(tenantID, userID, purpose), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Consume validates and spends the code atomically. A second attempt
// with an already-spent code fails with [ErrCodeAlreadyUsed]; an
// expired or never-issued code fails with [ErrCodeNotFound].
func (o *OTPStore) Consume(ctx context.Context, tenantID, userID string, purpose Purpose, code string) error {
	status, err := consumeLua.Run(ctx, o.client,
		[]string{o.key(tenantID, userID, purpose)},
		code, usedMarker,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case consumeStatusConsumed:
		return nil
	case consumeStatusNotFound:
		return ErrCodeNotFound
	case consumeStatusUsed:
		return ErrCodeAlreadyUsed
	case consumeStatusMismatch:
		return ErrCodeInvalid
	default:
		return fmt.Errorf("unexpected consume status %d", status)
	}
}

// Invalidate drops any outstanding code for the purpose.
func (o *OTPStore) Invalidate(ctx context.Context, tenantID, userID string, purpose Purpose) error {
	if err := o.client.Del(ctx, o.key(tenantID, userID, purpose)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
