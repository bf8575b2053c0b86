package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens are stored scaled by tokenScale so fractional refills survive the
// integer reply conversion.
const tokenScale = 1000

// KEYS[1] bucket key
// ARGV[1] refill per second, ARGV[2] burst, ARGV[3] key ttl in ms
const takeScript = `
local per_sec = tonumber(ARGV[1])
local burst   = tonumber(ARGV[2])
local clock   = redis.call("TIME")
local now_ms  = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state  = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last   = tonumber(state[2]) or now_ms
if now_ms > last then
  tokens = math.min(burst, tokens + ((now_ms - last) / 1000) * per_sec)
end

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait_ms = math.ceil(((1 - tokens) / per_sec) * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now_ms)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return {allowed, math.floor(tokens * 1000), wait_ms}
`

// Budget is a token bucket refilled at PerSecond up to Burst.
type Budget struct {
	PerSecond float64
	Burst     int
}

func (b Budget) validate() error {
	if b.PerSecond <= 0 || b.Burst <= 0 {
		return fmt.Errorf("ratelimit: invalid budget %.3f/s burst %d", b.PerSecond, b.Burst)
	}
	return nil
}

// keyTTL keeps an idle bucket around for twice its full refill time.
func (b Budget) keyTTL() time.Duration {
	if b.PerSecond <= 0 || b.Burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(2*float64(b.Burst)/b.PerSecond))
	return time.Duration(seconds) * time.Second
}

type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

var errEmptyKey = errors.New("ratelimit: empty key")

type bucket struct {
	client redis.Scripter
	take   *redis.Script
}

func newBucket(client redis.Scripter) *bucket {
	return &bucket{client: client, take: redis.NewScript(takeScript)}
}

func (b *bucket) allow(ctx context.Context, key string, budget Budget) (*RateLimitResult, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	if err := budget.validate(); err != nil {
		return nil, err
	}

	reply, err := b.take.Run(ctx, b.client, []string{key},
		budget.PerSecond, budget.Burst, budget.keyTTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	return decodeTake(reply)
}

func decodeTake(reply []int64) (*RateLimitResult, error) {
	if len(reply) != 3 {
		return nil, fmt.Errorf("ratelimit: unexpected reply length %d", len(reply))
	}
	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Remaining:  int(reply[1] / tokenScale),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}
