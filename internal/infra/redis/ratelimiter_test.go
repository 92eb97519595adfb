package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMutationLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newMutationLimiter(rdb, 2, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMutationLimiter() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third request in the same second should be rejected")
	}

	now = now.Add(time.Second)
	allowed, err = limiter.Allow(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("new second window should allow the request")
	}
}

func TestMutationLimiterAllowPerUser(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newMutationLimiter(rdb, 1, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newMutationLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Allow(user-1) error = %v", err)
	}
	if !allowed {
		t.Fatal("user-1 should be allowed on first request")
	}

	allowed, err = limiter.Allow(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("Allow(user-2) error = %v", err)
	}
	if !allowed {
		t.Fatal("one user's burst must not throttle another")
	}

	allowed, err = limiter.Allow(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Allow(user-1) error = %v", err)
	}
	if allowed {
		t.Fatal("user-1 second request should be rejected")
	}
}

func TestMutationLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := newMutationLimiter(nil, 1, nil); err == nil {
		t.Fatal("expected error for nil client")
	}

	rdb := newTestRedisClient(t)
	limiter, err := NewMutationLimiter(rdb, 0)
	if err != nil {
		t.Fatalf("NewMutationLimiter() error = %v", err)
	}
	if limiter.limitPerSec != defaultMutationsPerSec {
		t.Fatalf("limitPerSec = %d, want default %d", limiter.limitPerSec, defaultMutationsPerSec)
	}

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank user id")
	}
}
