package ratelimit_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/loyaltyhub/points-api/internal/pkg/ratelimit"
)

func TestDecidePolicy(t *testing.T) {
	backendErr := errors.New("redis down")

	cases := []struct {
		name    string
		allowed bool
		err     error
		policy  ratelimit.Policy
		want    bool
	}{
		{"allowed no error", true, nil, ratelimit.FailClosed, true},
		{"denied no error", false, nil, ratelimit.FailOpen, false},
		{"error fail open", false, backendErr, ratelimit.FailOpen, true},
		{"error fail closed", false, backendErr, ratelimit.FailClosed, false},
		{"error overrides allowed", true, backendErr, ratelimit.FailClosed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ratelimit.Decide(tc.allowed, tc.err, tc.policy); got != tc.want {
				t.Fatalf("Decide(%v, %v, %v) = %v, want %v", tc.allowed, tc.err, tc.policy, got, tc.want)
			}
		})
	}
}

func TestAllowRejectsBadArguments(t *testing.T) {
	limiter := ratelimit.NewLimiter(nil)

	if _, err := limiter.Allow(context.Background(), "k", 1, 0, 1); err == nil {
		t.Fatal("expected error for zero capacity")
	}
	if _, err := limiter.Allow(context.Background(), "k", 0, 10, 1); err == nil {
		t.Fatal("expected error for zero cost")
	}
}

func TestBurstDrainsBucket(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	limiter := ratelimit.NewLimiter(rdb)
	key := fmt.Sprintf("test:%s", uuid.New())

	// Slow refill so the burst dominates.
	for i := 0; i < 10; i++ {
		ok, err := limiter.Allow(context.Background(), key, 1, 10, 0.001)
		if err != nil {
			t.Fatalf("allow %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied within capacity", i)
		}
	}

	ok, err := limiter.Allow(context.Background(), key, 1, 10, 0.001)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if ok {
		t.Fatal("11th request admitted past capacity")
	}
}

func TestRefillAdmitsAgain(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	limiter := ratelimit.NewLimiter(rdb)
	key := fmt.Sprintf("test:%s", uuid.New())

	ok, err := limiter.Allow(context.Background(), key, 1, 1, 20)
	if err != nil || !ok {
		t.Fatalf("first request should pass: ok=%v err=%v", ok, err)
	}

	ok, err = limiter.Allow(context.Background(), key, 1, 1, 20)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if ok {
		t.Fatal("empty bucket admitted a request")
	}

	time.Sleep(100 * time.Millisecond)

	ok, err = limiter.Allow(context.Background(), key, 1, 1, 20)
	if err != nil || !ok {
		t.Fatalf("refilled bucket should admit: ok=%v err=%v", ok, err)
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return rdb
}
