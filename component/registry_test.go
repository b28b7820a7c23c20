package component_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dkoca/meshkit/component"
)

// fake records lifecycle calls into a shared journal.
type fake struct {
	name     string
	journal  *[]string
	startErr error
	health   component.HealthStatus
}

func (f *fake) Name() string { return f.name }

func (f *fake) Start(context.Context) error {
	*f.journal = append(*f.journal, "start:"+f.name)
	return f.startErr
}

func (f *fake) Stop(context.Context) error {
	*f.journal = append(*f.journal, "stop:"+f.name)
	return nil
}

func (f *fake) Health(context.Context) component.Health {
	status := f.health
	if status == "" {
		status = component.StatusHealthy
	}
	return component.Health{Name: f.name, Status: status}
}

func TestRegistry_StartOrderStopReverse(t *testing.T) {
	var journal []string
	r := component.NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Register(&fake{name: name, journal: &journal}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(journal) != len(want) {
		t.Fatalf("journal %v, want %v", journal, want)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Fatalf("journal[%d] = %s, want %s", i, journal[i], want[i])
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	var journal []string
	r := component.NewRegistry()
	if err := r.Register(&fake{name: "dup", journal: &journal}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&fake{name: "dup", journal: &journal}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegistry_StartFailureStopsOnlyStarted(t *testing.T) {
	var journal []string
	r := component.NewRegistry()
	_ = r.Register(&fake{name: "ok", journal: &journal})
	_ = r.Register(&fake{name: "bad", journal: &journal, startErr: errors.New("boom")})
	_ = r.Register(&fake{name: "never", journal: &journal})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll to fail")
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	for _, entry := range journal {
		if entry == "start:never" || entry == "stop:never" || entry == "stop:bad" {
			t.Fatalf("unexpected lifecycle call %s (journal %v)", entry, journal)
		}
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	var journal []string
	r := component.NewRegistry()
	_ = r.Register(&fake{name: "up", journal: &journal})
	_ = r.Register(&fake{name: "down", journal: &journal, health: component.StatusUnhealthy})

	healths := r.HealthAll(context.Background())
	if len(healths) != 2 {
		t.Fatalf("expected 2 healths, got %d", len(healths))
	}
	if healths[1].Status != component.StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", healths[1].Status)
	}
}
