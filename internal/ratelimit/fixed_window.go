package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Returns {count, pttl}. The expiry is only set by the first hit in a slot.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

const redisTimeout = 2 * time.Second

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter limits requests per key in a fixed time window backed by
// Redis, so several server instances share one quota.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	client *redis.Client
	prefix string
}

// NewRedisClient builds a client and checks connectivity.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	pingCtx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// NewFixedWindowLimiter creates a limiter that allows limit hits per key per window.
func NewFixedWindowLimiter(client *redis.Client, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "tablica:ratelimit"
	}
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		client: client,
		prefix: prefix,
	}, nil
}

// Allow counts one hit for key. On Redis failures it fails closed and
// returns the error alongside a rejecting decision.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil {
		return Decision{}, errors.New("rate limiter is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	vals, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64Slice()
	if err != nil {
		return Decision{Limit: l.limit, RetryAfter: l.window}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(vals) != 2 {
		return Decision{Limit: l.limit, RetryAfter: l.window}, fmt.Errorf("rate limit %s: unexpected reply %v", key, vals)
	}
	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond
	if ttl <= 0 {
		ttl = l.window
	}
	d := Decision{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: max(l.limit-int(count), 0),
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}
