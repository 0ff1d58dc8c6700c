package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy decides what a call site does when the limiter backend is
// unreachable. Redemption endpoints must deny (FailClosed); generic
// request throttling may admit (FailOpen).
type Policy int

const (
	FailOpen Policy = iota
	FailClosed
)

// allowScript implements a token bucket as a single atomic Redis call.
// The bucket starts full and is created lazily on first use. Refill and
// admission happen in one script execution so two racing callers cannot
// both take the last token.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local cost = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'refilled_at')
local tokens = tonumber(bucket[1])
local refilled_at = tonumber(bucket[2])

if tokens == nil then
    tokens = capacity
    refilled_at = now
end

local elapsed = now - refilled_at
if elapsed < 0 then
    elapsed = 0
end
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call('HSET', key, 'tokens', tokens, 'refilled_at', now)

-- Drop idle buckets once a full refill has long since happened.
if rate > 0 then
    redis.call('EXPIRE', key, math.ceil(capacity / rate) * 2 + 60)
end

return allowed
`)

const keyPrefix = "ratelimit:"

// Limiter is a token-bucket rate limiter backed by Redis.
type Limiter struct {
	rdb *redis.Client
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// Allow refills the bucket for key and admits the request if at least
// cost tokens remain. The read-modify-write is atomic per key.
func (l *Limiter) Allow(ctx context.Context, key string, cost, capacity, refillPerSec float64) (bool, error) {
	if capacity <= 0 || cost <= 0 {
		return false, fmt.Errorf("ratelimit: capacity and cost must be positive")
	}

	now := float64(time.Now().UnixMicro()) / 1e6
	result, err := allowScript.Run(ctx, l.rdb, []string{keyPrefix + key}, cost, capacity, refillPerSec, now).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit: unexpected script result type %T", result)
	}
	return code == 1, nil
}

// Decide applies a fail-open/fail-closed policy to an Allow result.
// Call sites pass their policy explicitly so the behavior on backend
// failure is visible at the call site and coverable by tests.
func Decide(allowed bool, err error, policy Policy) bool {
	if err != nil {
		return policy == FailOpen
	}
	return allowed
}
