package mfa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Challenge is the pending-MFA half of a login: credentials already
// validated, second factor still outstanding. The challenge ID is the
// only thing handed back to the caller until verification succeeds.
type Challenge struct {
	ID       string
	UserID   string
	TenantID string
	Methods  []Method
	Attempts int
}

// failChallengeScript counts a failed attempt and burns the challenge
// once the budget is spent, in one step.
const failChallengeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local attempts = redis.call("HINCRBY", KEYS[1], "att", 1)
if attempts >= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  return -2
end
return attempts
`

var failChallengeLua = redis.NewScript(failChallengeScript)

// ChallengeStore persists pending MFA challenges with a TTL and a
// bounded attempt budget.
type ChallengeStore struct {
	client      redis.UniversalClient
	prefix      string
	ttl         time.Duration
	maxAttempts int
}

// NewChallengeStore describes the newchallengestore operation and its observable behavior.
//
// NewChallengeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewChallengeStore(client redis.UniversalClient, prefix string, ttl time.Duration, maxAttempts int) *ChallengeStore {
	if prefix == "" {
		prefix = "authcore"
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &ChallengeStore{client: client, prefix: prefix, ttl: ttl, maxAttempts: maxAttempts}
}

func (c *ChallengeStore) key(tenantID, challengeID string) string {
	return c.prefix + ":chal:" + tenantID + ":" + challengeID
}

// Create opens a challenge for the user and returns it.
func (c *ChallengeStore) Create(ctx context.Context, tenantID, userID string, methods []Method) (*Challenge, error) {
	ch := &Challenge{
		ID:       uuid.NewString(),
		UserID:   userID,
		TenantID: tenantID,
		Methods:  methods,
	}

	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}

	key := c.key(tenantID, ch.ID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, "uid", userID, "m", strings.Join(names, ","), "att", "0")
	pipe.PExpire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ch, nil
}

// Get loads a pending challenge.
func (c *ChallengeStore) Get(ctx context.Context, tenantID, challengeID string) (*Challenge, error) {
	m, err := c.client.HGetAll(ctx, c.key(tenantID, challengeID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(m) == 0 {
		return nil, ErrChallengeNotFound
	}

	ch := &Challenge{
		ID:       challengeID,
		UserID:   m["uid"],
		TenantID: tenantID,
	}
	for _, name := range strings.Split(m["m"], ",") {
		if name != "" {
			ch.Methods = append(ch.Methods, Method(name))
		}
	}
	ch.Attempts, _ = strconv.Atoi(m["att"])
	return ch, nil
}

// Fail records a failed verification attempt. Once the attempt budget
// is exhausted the challenge is deleted and [ErrChallengeAttempts] is
// returned; the caller must restart the login.
func (c *ChallengeStore) Fail(ctx context.Context, tenantID, challengeID string) error {
	res, err := failChallengeLua.Run(ctx, c.client,
		[]string{c.key(tenantID, challengeID)},
		c.maxAttempts,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch res {
	case -1:
		return ErrChallengeNotFound
	case -2:
		return ErrChallengeAttempts
	default:
		return nil
	}
}

// Complete closes a challenge after successful verification.
func (c *ChallengeStore) Complete(ctx context.Context, tenantID, challengeID string) error {
	if err := c.client.Del(ctx, c.key(tenantID, challengeID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
