package logger_test

import (
	"context"
	"testing"

	"github.com/dkoca/meshkit/logger"
)

func TestFields_PairsBecomeMap(t *testing.T) {
	m := logger.Fields("app", "billing", "instances", 3)
	if m["app"] != "billing" {
		t.Fatalf("expected app=billing, got %v", m["app"])
	}
	if m["instances"] != 3 {
		t.Fatalf("expected instances=3, got %v", m["instances"])
	}
}

func TestFields_DanglingKeyIgnored(t *testing.T) {
	m := logger.Fields("app", "billing", "dangling")
	if len(m) != 1 {
		t.Fatalf("expected 1 field, got %d", len(m))
	}
}

func TestContextRequestID_RoundTrip(t *testing.T) {
	ctx := logger.ContextWithRequestID(context.Background(), "req-42")
	if got := logger.RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("expected req-42, got %q", got)
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if got := logger.RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &logger.Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
