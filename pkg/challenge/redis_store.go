package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "mfa:challenge:"

// verifyScript runs the whole check-compare-increment-or-delete sequence
// server-side so concurrent attempts against one challenge serialize on the
// Redis event loop. Returns a status string plus user_id and method on
// success.
var verifyScript = redis.NewScript(`
local key = KEYS[1]
local code = ARGV[1]
local now_ms = tonumber(ARGV[2])
if redis.call("EXISTS", key) == 0 then
  return {"not_found"}
end
local expires = tonumber(redis.call("HGET", key, "expires_at_ms"))
if now_ms > expires then
  redis.call("DEL", key)
  return {"expired"}
end
local attempts = tonumber(redis.call("HGET", key, "attempts"))
local max = tonumber(redis.call("HGET", key, "max_attempts"))
if attempts >= max then
  redis.call("DEL", key)
  return {"attempts_exceeded"}
end
if redis.call("HGET", key, "code") ~= code then
  redis.call("HINCRBY", key, "attempts", 1)
  return {"code_mismatch"}
end
local vals = redis.call("HMGET", key, "user_id", "method")
redis.call("DEL", key)
return {"ok", vals[1], vals[2]}
`)

// RedisStore implements Store on a shared Redis instance so a horizontally
// scaled deployment sees one challenge set. The key TTL doubles as a safety
// net for challenges nobody ever verifies.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default challenge key prefix
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.keyPrefix = prefix
	}
}

// NewRedisStore creates a Redis-backed challenge store
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

// Put stores a challenge as a hash with a TTL derived from ExpiresAt
func (s *RedisStore) Put(ctx context.Context, ch Challenge) error {
	key := s.key(ch.ID)
	fields := map[string]interface{}{
		"user_id":       ch.UserID.String(),
		"method":        ch.Method,
		"code":          ch.Code,
		"expires_at_ms": ch.ExpiresAt.UnixMilli(),
		"attempts":      ch.Attempts,
		"max_attempts":  ch.MaxAttempts,
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	// Keep the key around a little past the deadline so Verify can still
	// report ErrExpired instead of ErrNotFound near the boundary.
	ttl := time.Until(ch.ExpiresAt) + time.Minute
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set challenge TTL: %w", err)
	}
	return nil
}

// Verify runs the atomic verification script against the stored challenge
func (s *RedisStore) Verify(ctx context.Context, id, code string) (Challenge, error) {
	res, err := verifyScript.Run(ctx, s.client, []string{s.key(id)}, code, time.Now().UnixMilli()).Slice()
	if err != nil {
		return Challenge{}, fmt.Errorf("challenge verify script failed: %w", err)
	}
	if len(res) == 0 {
		return Challenge{}, ErrNotFound
	}

	status, _ := res[0].(string)
	switch status {
	case "ok":
		ch := Challenge{ID: id}
		if len(res) == 3 {
			if uid, ok := res[1].(string); ok {
				parsed, err := uuid.Parse(uid)
				if err != nil {
					return Challenge{}, fmt.Errorf("stored challenge has invalid user id %q: %w", uid, err)
				}
				ch.UserID = parsed
			}
			if method, ok := res[2].(string); ok {
				ch.Method = method
			}
		}
		return ch, nil
	case "expired":
		return Challenge{}, ErrExpired
	case "attempts_exceeded":
		return Challenge{}, ErrAttemptsExceeded
	case "code_mismatch":
		return Challenge{}, ErrCodeMismatch
	default:
		return Challenge{}, ErrNotFound
	}
}

// Delete removes a challenge regardless of state
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
