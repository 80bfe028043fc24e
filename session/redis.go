package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Each script receives the four per-user keys in this order:
// KEYS[1] order zset (score = per-user insert sequence)
// KEYS[2] expiry zset (score = expiresAt unix ms)
// KEYS[3] metadata hash (token digest -> JSON)
// KEYS[4] sequence counter
const luaSessionHelpers = `
local function drop(h)
  redis.call("ZREM", KEYS[1], h)
  redis.call("ZREM", KEYS[2], h)
  redis.call("HDEL", KEYS[3], h)
end

local function cleanup(now)
  local expired = redis.call("ZRANGEBYSCORE", KEYS[2], "-inf", now)
  for _, h in ipairs(expired) do
    drop(h)
  end
end

local function forget_if_empty()
  if redis.call("ZCARD", KEYS[1]) == 0 then
    redis.call("DEL", KEYS[1], KEYS[2], KEYS[3], KEYS[4])
    return true
  end
  return false
end

local function insert(h, expires_at, cap, meta, ttl)
  if redis.call("ZCARD", KEYS[1]) >= cap then
    local oldest = redis.call("ZRANGE", KEYS[1], 0, 0)
    if oldest[1] then
      drop(oldest[1])
    end
  end
  if redis.call("ZSCORE", KEYS[1], h) then
    drop(h)
  end
  local seq = redis.call("INCR", KEYS[4])
  redis.call("ZADD", KEYS[1], seq, h)
  redis.call("ZADD", KEYS[2], expires_at, h)
  redis.call("HSET", KEYS[3], h, meta)
  for i = 1, 4 do
    redis.call("PEXPIRE", KEYS[i], ttl)
  end
end
`

// ARGV: digest, now, expiresAt, cap, meta, ttl
var storeSessionLua = redis.NewScript(luaSessionHelpers + `
cleanup(ARGV[2])
insert(ARGV[1], ARGV[3], tonumber(ARGV[4]), ARGV[5], ARGV[6])
return 1
`)

// ARGV: digest, now
var validateSessionLua = redis.NewScript(luaSessionHelpers + `
cleanup(ARGV[2])
if forget_if_empty() then
  return 0
end
if redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  return 1
end
return 0
`)

// ARGV: digest
var revokeSessionLua = redis.NewScript(luaSessionHelpers + `
local removed = redis.call("ZREM", KEYS[1], ARGV[1])
redis.call("ZREM", KEYS[2], ARGV[1])
redis.call("HDEL", KEYS[3], ARGV[1])
forget_if_empty()
return removed
`)

var revokeAllSessionsLua = redis.NewScript(`
local n = redis.call("ZCARD", KEYS[1])
redis.call("DEL", KEYS[1], KEYS[2], KEYS[3], KEYS[4])
return n
`)

// ARGV: now
var countSessionsLua = redis.NewScript(luaSessionHelpers + `
cleanup(ARGV[1])
if forget_if_empty() then
  return 0
end
return redis.call("ZCARD", KEYS[1])
`)

// ARGV: oldDigest, newDigest, now, expiresAt, cap, meta, ttl
var rotateSessionLua = redis.NewScript(luaSessionHelpers + `
cleanup(ARGV[3])
if not redis.call("ZSCORE", KEYS[1], ARGV[1]) then
  forget_if_empty()
  return 0
end
drop(ARGV[1])
insert(ARGV[2], ARGV[4], tonumber(ARGV[5]), ARGV[6], ARGV[7])
return 1
`)

type redisSessionMeta struct {
	CreatedAt int64 `json:"createdAt"`
	Metadata
}

// RedisStore is a [Store] shared across processes through Redis.
//
// Every operation runs as one Lua script over the user's keys, which gives
// the same per-user serialization as [MemoryStore]. Keys use a hash tag on
// the user ID so they stay in one cluster slot. Tokens are stored as SHA-256
// digests.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisStore creates a [RedisStore]. prefix namespaces every key.
func NewRedisStore(client redis.UniversalClient, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "ts"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		cfg:    cfg.withDefaults(),
	}
}

func (s *RedisStore) keys(userID string) []string {
	base := s.prefix + ":{" + userID + "}:"
	return []string{base + "order", base + "exp", base + "meta", base + "seq"}
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *RedisStore) encodeMeta(now time.Time, meta Metadata) (string, error) {
	raw, err := json.Marshal(redisSessionMeta{CreatedAt: now.UnixMilli(), Metadata: meta})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Store implements [Store].
func (s *RedisStore) Store(ctx context.Context, userID, token string, meta Metadata) error {
	now := s.cfg.Now()
	encoded, err := s.encodeMeta(now, meta)
	if err != nil {
		return err
	}

	_, err = s.run(ctx, storeSessionLua, userID,
		digest(token),
		now.UnixMilli(),
		now.Add(s.cfg.Lifetime).UnixMilli(),
		s.cfg.MaxSessionsPerUser,
		encoded,
		s.cfg.Lifetime.Milliseconds(),
	)
	return err
}

// Validate implements [Store].
func (s *RedisStore) Validate(ctx context.Context, userID, token string) (bool, error) {
	n, err := s.run(ctx, validateSessionLua, userID, digest(token), s.cfg.Now().UnixMilli())
	return n == 1, err
}

// Revoke implements [Store].
func (s *RedisStore) Revoke(ctx context.Context, userID, token string) (bool, error) {
	n, err := s.run(ctx, revokeSessionLua, userID, digest(token))
	return n == 1, err
}

// RevokeAllForUser implements [Store].
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := s.run(ctx, revokeAllSessionsLua, userID)
	return int(n), err
}

// ActiveCount implements [Store].
func (s *RedisStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	n, err := s.run(ctx, countSessionsLua, userID, s.cfg.Now().UnixMilli())
	return int(n), err
}

// Rotate implements [Store].
func (s *RedisStore) Rotate(ctx context.Context, userID, oldToken, newToken string, meta Metadata) (bool, error) {
	now := s.cfg.Now()
	encoded, err := s.encodeMeta(now, meta)
	if err != nil {
		return false, err
	}

	n, err := s.run(ctx, rotateSessionLua, userID,
		digest(oldToken),
		digest(newToken),
		now.UnixMilli(),
		now.Add(s.cfg.Lifetime).UnixMilli(),
		s.cfg.MaxSessionsPerUser,
		encoded,
		s.cfg.Lifetime.Milliseconds(),
	)
	return n == 1, err
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) run(ctx context.Context, script *redis.Script, userID string, args ...interface{}) (int64, error) {
	result, err := script.Run(ctx, s.redis, s.keys(userID), args...).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	n, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected script reply %T", ErrStoreCorrupt, result)
	}
	return n, nil
}
