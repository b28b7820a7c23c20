package observability_test

import (
	"testing"

	"github.com/dkoca/meshkit/observability"
)

func TestServiceHealth_Aggregation(t *testing.T) {
	sh := observability.NewServiceHealth("gateway", "1.0.0")
	if sh.Status != observability.HealthStatusUp {
		t.Fatalf("expected up, got %s", sh.Status)
	}

	sh.AddComponent(observability.Health{Name: "registry-client", Status: observability.HealthStatusUp})
	if sh.Status != observability.HealthStatusUp {
		t.Fatalf("up component must not degrade, got %s", sh.Status)
	}

	sh.AddComponent(observability.Health{Name: "limiter", Status: observability.HealthStatusDegraded})
	if sh.Status != observability.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", sh.Status)
	}

	sh.AddComponent(observability.Health{Name: "proxy", Status: observability.HealthStatusDown})
	if sh.Status != observability.HealthStatusDown {
		t.Fatalf("expected down, got %s", sh.Status)
	}

	// Down is sticky: later degraded components must not upgrade it.
	sh.AddComponent(observability.Health{Name: "late", Status: observability.HealthStatusDegraded})
	if sh.Status != observability.HealthStatusDown {
		t.Fatalf("down should be sticky, got %s", sh.Status)
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg observability.Config
	cfg.ApplyDefaults()

	if cfg.Endpoint != "localhost:4318" {
		t.Fatalf("unexpected endpoint %q", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("unexpected sample rate %v", cfg.SampleRate)
	}
}
