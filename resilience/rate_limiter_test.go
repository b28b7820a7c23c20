package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkoca/meshkit/resilience"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "test",
		Rate:  1,
		Burst: 3,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if rl.Allow() {
		t.Fatal("request beyond burst should be limited")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "test",
		Rate:  100,
		Burst: 1,
	})

	if !rl.Allow() {
		t.Fatal("first request should pass")
	}
	if rl.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("bucket should have refilled")
	}
}

func TestRateLimiter_OnLimitCallback(t *testing.T) {
	var limited string
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:    "orders",
		Rate:    1,
		Burst:   1,
		OnLimit: func(name string) { limited = name },
	})

	rl.Allow()
	rl.Allow()
	if limited != "orders" {
		t.Fatalf("OnLimit not invoked, got %q", limited)
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:  "test",
		Rate:  0.001,
		Burst: 1,
	})
	rl.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}
