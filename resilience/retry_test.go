package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkoca/meshkit/resilience"
)

func fastRetryConfig(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := resilience.Retry(context.Background(), fastRetryConfig(5), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := resilience.Retry(context.Background(), fastRetryConfig(3), func() (int, error) {
		calls++
		return 0, errBoom
	})
	if !errors.Is(err, resilience.ErrMaxRetriesExceeded) {
		t.Fatalf("expected ErrMaxRetriesExceeded, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatal("last error should be joined")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	cfg := fastRetryConfig(5)
	cfg.RetryIf = func(err error) bool { return false }

	calls := 0
	_, err := resilience.Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resilience.Retry(ctx, fastRetryConfig(3), func() (int, error) {
		return 0, errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo(t *testing.T) {
	calls := 0
	err := resilience.Do(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("Do: err=%v calls=%d", err, calls)
	}
}
