package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is an exported constant or variable used by the authentication engine.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is an exported constant or variable used by the authentication engine.
var ErrSessionExpired = errors.New("session expired")

// ErrRefreshMismatch is returned when a rotation attempt presents a
// nonce hash that is no longer the session's current one. Under
// concurrent refresh exactly one caller rotates; the rest see this.
var ErrRefreshMismatch = errors.New("refresh nonce mismatch")

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusExpired  int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
)

// createScript inserts the session hash and index entry, evicting the
// least-recently-active sessions first when the user is at the cap.
// Count, evict, and insert run inside one script so concurrent logins
// cannot push a user past the cap.
const createScript = `
local max = tonumber(ARGV[1])
local evicted = {}
if max > 0 then
  while redis.call("ZCARD", KEYS[1]) >= max do
    local oldest = redis.call("ZPOPMIN", KEYS[1])
    if #oldest == 0 then
      break
    end
    redis.call("DEL", ARGV[2] .. oldest[1])
    evicted[#evicted + 1] = oldest[1]
  end
end
redis.call("HSET", KEYS[2], unpack(ARGV, 6))
redis.call("PEXPIRE", KEYS[2], ARGV[5])
redis.call("ZADD", KEYS[1], ARGV[4], ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return evicted
`

var createLua = redis.NewScript(createScript)

// rotateScript is the single-winner refresh rotation: the stored nonce
// hash must still equal the presented one, otherwise nothing changes.
const rotateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("ZREM", KEYS[2], ARGV[5])
  return 0
end
local now = tonumber(ARGV[3])
local exp = tonumber(redis.call("HGET", KEYS[1], "exp") or "0")
if exp > 0 and exp <= now then
  redis.call("DEL", KEYS[1])
  redis.call("ZREM", KEYS[2], ARGV[5])
  return 1
end
local current = redis.call("HGET", KEYS[1], "rh")
if current ~= ARGV[1] then
  return 2
end
redis.call("HSET", KEYS[1], "rh", ARGV[2], "lat", ARGV[3])
local sliding = tonumber(ARGV[4])
if sliding > 0 then
  redis.call("HSET", KEYS[1], "exp", tostring(now + sliding))
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
  redis.call("PEXPIRE", KEYS[2], ARGV[4])
end
redis.call("ZADD", KEYS[2], "XX", ARGV[3], ARGV[5])
return 3
`

var rotateLua = redis.NewScript(rotateScript)

const deleteScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return existed
`

var deleteLua = redis.NewScript(deleteScript)

// Store persists sessions in Redis: one HASH per session plus one
// per-user ZSET scored by last-activity milliseconds.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "authcore"
	}
	return &Store{client: client, prefix: prefix}
}

func (st *Store) sessionKeyPrefix(tenantID string) string {
	return st.prefix + ":sess:" + tenantID + ":"
}

func (st *Store) sessionKey(tenantID, sessionID string) string {
	return st.sessionKeyPrefix(tenantID) + sessionID
}

func (st *Store) indexKey(tenantID, userID string) string {
	return st.prefix + ":sidx:" + tenantID + ":" + userID
}

// Create inserts the session, evicting oldest-activity sessions when
// maxPerUser > 0 and the user is at the cap. Returns the evicted
// session IDs.
func (st *Store) Create(ctx context.Context, s *Session, maxPerUser int) ([]string, error) {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil, ErrSessionExpired
	}

	args := []interface{}{
		maxPerUser,
		st.sessionKeyPrefix(s.TenantID),
		s.ID,
		s.LastActiveAt.UnixMilli(),
		ttl.Milliseconds(),
	}
	args = append(args, s.fields()...)

	res, err := createLua.Run(ctx, st.client,
		[]string{st.indexKey(s.TenantID, s.UserID), st.sessionKey(s.TenantID, s.ID)},
		args...,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var evicted []string
	if list, ok := res.([]interface{}); ok {
		for _, v := range list {
			if id, ok := v.(string); ok {
				evicted = append(evicted, id)
			}
		}
	}
	return evicted, nil
}

// Rotate atomically swaps the refresh nonce hash and advances
// last-activity. sliding > 0 also extends expiry from now by that
// amount; sliding == 0 leaves the absolute expiry untouched.
func (st *Store) Rotate(ctx context.Context, tenantID, userID, sessionID, expectedHash, newHash string, sliding time.Duration) error {
	now := time.Now()

	status, err := rotateLua.Run(ctx, st.client,
		[]string{st.sessionKey(tenantID, sessionID), st.indexKey(tenantID, userID)},
		expectedHash,
		newHash,
		now.UnixMilli(),
		sliding.Milliseconds(),
		sessionID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrSessionNotFound
	case rotateStatusExpired:
		return ErrSessionExpired
	case rotateStatusMismatch:
		return ErrRefreshMismatch
	default:
		return fmt.Errorf("unexpected rotate status %d", status)
	}
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (st *Store) Get(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	m, err := st.client.HGetAll(ctx, st.sessionKey(tenantID, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(m) == 0 {
		return nil, ErrSessionNotFound
	}

	s := sessionFromMap(sessionID, m)
	if !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionExpired
	}
	return s, nil
}

// Delete removes one session. Deleting an absent session is success;
// the bool reports whether anything existed.
func (st *Store) Delete(ctx context.Context, tenantID, userID, sessionID string) (bool, error) {
	existed, err := deleteLua.Run(ctx, st.client,
		[]string{st.sessionKey(tenantID, sessionID), st.indexKey(tenantID, userID)},
		sessionID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// DeleteAll removes every session of a user. Returns how many existed.
func (st *Store) DeleteAll(ctx context.Context, tenantID, userID string) (int, error) {
	return st.deleteWhere(ctx, tenantID, userID, "")
}

// DeleteOthers removes every session of a user except keepSessionID.
func (st *Store) DeleteOthers(ctx context.Context, tenantID, userID, keepSessionID string) (int, error) {
	return st.deleteWhere(ctx, tenantID, userID, keepSessionID)
}

func (st *Store) deleteWhere(ctx context.Context, tenantID, userID, keep string) (int, error) {
	ids, err := st.client.ZRange(ctx, st.indexKey(tenantID, userID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	deleted := 0
	for _, id := range ids {
		if id == keep {
			continue
		}
		existed, err := st.Delete(ctx, tenantID, userID, id)
		if err != nil {
			return deleted, err
		}
		if existed {
			deleted++
		}
	}
	return deleted, nil
}

// ListActive returns a user's live sessions ordered by last activity,
// most recent first. Index entries whose hash already expired are
// pruned as a side effect.
func (st *Store) ListActive(ctx context.Context, tenantID, userID string) ([]*Session, error) {
	ids, err := st.client.ZRevRange(ctx, st.indexKey(tenantID, userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := st.Get(ctx, tenantID, id)
		switch {
		case err == nil:
			out = append(out, s)
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
			_, _ = st.Delete(ctx, tenantID, userID, id)
		default:
			return nil, err
		}
	}
	return out, nil
}

// Count returns the number of index entries for a user. May include
// sessions that just expired but were not pruned yet.
func (st *Store) Count(ctx context.Context, tenantID, userID string) (int, error) {
	n, err := st.client.ZCard(ctx, st.indexKey(tenantID, userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(n), nil
}

// SetData replaces the opaque server-side blob on a live session.
func (st *Store) SetData(ctx context.Context, tenantID, sessionID, data string) error {
	key := st.sessionKey(tenantID, sessionID)
	exists, err := st.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	if err := st.client.HSet(ctx, key, fieldData, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
