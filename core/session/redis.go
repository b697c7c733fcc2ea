package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions live in a hash so the version can be checked server-side without
// decoding the JSON payload inside the script.
const putIfVersionScript = `
local ver = redis.call("HGET", KEYS[1], "version")
if ver then
  if tonumber(ver) ~= tonumber(ARGV[1]) then
    return 0
  end
elseif tonumber(ARGV[1]) ~= 0 then
  return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[2], "data", ARGV[3])
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`

var putIfVersionLua = redis.NewScript(putIfVersionScript)

// RedisStore is the production Store backed by Redis with per-key TTL.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore wraps an existing Redis client. keyPrefix namespaces session
// keys, e.g. "bot:session:".
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "bot:session:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStore) key(userID int64) string {
	return r.keyPrefix + strconv.FormatInt(userID, 10)
}

// Get loads the session for a user, or ErrNotFound when absent or expired.
func (r *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := r.client.HGet(ctx, r.key(userID), "data").Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		// A corrupt blob is unrecoverable; treat it as absent so the engine
		// starts the user over instead of failing every message.
		return nil, ErrNotFound
	}
	if !s.State.Valid() {
		return nil, ErrNotFound
	}
	return &s, nil
}

// PutIfVersion commits s when the stored version still matches expectedVersion.
func (r *RedisStore) PutIfVersion(ctx context.Context, s *Session, expectedVersion int64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session: non-positive ttl %v", ttl)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	res, err := putIfVersionLua.Run(ctx, r.client,
		[]string{r.key(s.UserID)},
		expectedVersion, s.Version, string(payload), ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res != 1 {
		return ErrVersionConflict
	}
	return nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
