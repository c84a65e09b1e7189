package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, srv *miniredis.Miniredis, limit int) *FixedWindowLimiter {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	fixed := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	return limiter
}

func TestFixedWindowLimiterRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newLimiter(t, srv, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "ip-1")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d should pass: %+v %v", i+1, d, err)
		}
	}
	d, err := limiter.Allow(ctx, "ip-1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 {
		t.Fatalf("third request should be blocked: %+v", d)
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry after out of range: %v", d.RetryAfter)
	}

	other, err := limiter.Allow(ctx, "ip-2")
	if err != nil || !other.Allowed || other.Remaining != 1 {
		t.Fatalf("keys must not share quota: %+v %v", other, err)
	}
}

func TestFixedWindowLimiterNewWindowResets(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newLimiter(t, srv, 1)
	ctx := context.Background()

	if d, _ := limiter.Allow(ctx, "ip-1"); !d.Allowed {
		t.Fatalf("first request should pass")
	}
	if d, _ := limiter.Allow(ctx, "ip-1"); d.Allowed {
		t.Fatalf("second request should be blocked")
	}
	next := time.Date(2024, 5, 1, 12, 1, 30, 0, time.UTC)
	limiter.now = func() time.Time { return next }
	if d, _ := limiter.Allow(ctx, "ip-1"); !d.Allowed {
		t.Fatalf("next window should reset the quota")
	}
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newLimiter(t, srv, 1)
	srv.Close()
	d, err := limiter.Allow(context.Background(), "ip-1")
	if err == nil || d.Allowed {
		t.Fatalf("limiter should fail closed on redis errors: %+v %v", d, err)
	}
}

func TestNewFixedWindowLimiterValidation(t *testing.T) {
	if _, err := NewFixedWindowLimiter(nil, "x", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if _, err := NewFixedWindowLimiter(client, "x", 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestNewRedisClientRequiresAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "")
	if err == nil || client != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
	srv := miniredis.RunT(t)
	client, err = NewRedisClient(context.Background(), srv.Addr(), "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = client.Close()
}
