package registry

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/resilience"
)

func testRegistry(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewStore(time.Minute)
	engine := gin.New()
	NewServer(store, logger.NewDefault("test")).RegisterRoutes(engine)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, store
}

func testClient(t *testing.T, cfg ClientConfig) *Client {
	t.Helper()
	client, err := NewClient(cfg, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClient_RegisterAndDeregister(t *testing.T) {
	srv, store := testRegistry(t)

	client := testClient(t, ClientConfig{
		URL:        srv.URL,
		App:        "billing",
		InstanceID: "b-1",
		Address:    "10.0.0.1",
		Port:       8080,
	})

	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 registration, got %d", store.Len())
	}

	if err := client.Deregister(ctx); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("expected empty registry after deregister")
	}

	// A second deregister hits a 404, which the client treats as done.
	if err := client.Deregister(ctx); err != nil {
		t.Fatalf("repeated Deregister: %v", err)
	}
}

func TestClient_HeartbeatReRegistersOnLostLease(t *testing.T) {
	srv, store := testRegistry(t)

	client := testClient(t, ClientConfig{
		URL:        srv.URL,
		App:        "billing",
		InstanceID: "b-1",
		Address:    "10.0.0.1",
		Port:       8080,
	})

	ctx := context.Background()
	if err := client.Register(ctx); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Simulate an eviction on the server side.
	if err := store.Deregister("billing", "b-1"); err != nil {
		t.Fatalf("Deregister: %v", err)
	}

	if err := client.Heartbeat(ctx); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("expected heartbeat to re-register the lost lease")
	}
}

func TestClient_DiscoverUnknownApp(t *testing.T) {
	srv, _ := testRegistry(t)

	client := testClient(t, ClientConfig{URL: srv.URL})

	_, err := client.Discover(context.Background(), "nothing")
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeNoInstances {
		t.Fatalf("expected NO_HEALTHY_INSTANCES, got %v", err)
	}
}

func TestClient_DiscoverServesFromCache(t *testing.T) {
	srv, store := testRegistry(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})

	client := testClient(t, ClientConfig{URL: srv.URL, CacheTTL: time.Minute})

	ctx := context.Background()
	first, err := client.Discover(ctx, "billing")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(first))
	}

	// The store changes, but the cache still answers within its TTL.
	store.Register(Instance{ID: "b-2", App: "billing", Address: "10.0.0.2", Port: 8080})

	second, err := client.Discover(ctx, "billing")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected cached result, got %d instances", len(second))
	}

	client.Invalidate("billing")
	third, err := client.Discover(ctx, "billing")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(third) != 2 {
		t.Fatalf("expected fresh result after invalidate, got %d instances", len(third))
	}
}

func TestClient_DiscoverServesStaleOnRegistryFailure(t *testing.T) {
	srv, store := testRegistry(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})

	client := testClient(t, ClientConfig{URL: srv.URL, CacheTTL: 10 * time.Millisecond})

	ctx := context.Background()
	if _, err := client.Discover(ctx, "billing"); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	srv.Close()
	time.Sleep(20 * time.Millisecond)

	stale, err := client.Discover(ctx, "billing")
	if err != nil {
		t.Fatalf("expected stale cache to be served, got %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "b-1" {
		t.Fatalf("unexpected stale result %v", stale)
	}
}

func TestClient_OpensCircuitAfterRepeatedFailures(t *testing.T) {
	var hits int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(backend.Close)

	client := testClient(t, ClientConfig{URL: backend.URL})

	ctx := context.Background()
	tripped := false
	for i := 0; i < 5 && !tripped; i++ {
		_, err := client.Apps(ctx)
		if err == nil {
			t.Fatal("expected snapshot against a failing registry to error")
		}
		tripped = stderrors.Is(err, resilience.ErrCircuitOpen)
	}
	if !tripped {
		t.Fatal("expected the circuit to open after repeated failures")
	}

	// While open, calls fail fast without reaching the registry.
	before := atomic.LoadInt32(&hits)
	if _, err := client.Apps(ctx); !stderrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected fail-fast while open, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != before {
		t.Fatalf("expected no registry calls while open, got %d more", got-before)
	}
}

func TestClient_NextRoundRobin(t *testing.T) {
	srv, store := testRegistry(t)

	store.Register(Instance{ID: "b-1", App: "billing", Address: "10.0.0.1", Port: 8080})
	store.Register(Instance{ID: "b-2", App: "billing", Address: "10.0.0.2", Port: 8080})

	client := testClient(t, ClientConfig{URL: srv.URL, CacheTTL: time.Minute})

	ctx := context.Background()
	var seen []string
	for i := 0; i < 4; i++ {
		inst, err := client.Next(ctx, "billing")
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen = append(seen, inst.ID)
	}

	if seen[0] == seen[1] {
		t.Fatalf("expected alternating instances, got %v", seen)
	}
	if seen[0] != seen[2] || seen[1] != seen[3] {
		t.Fatalf("expected round-robin cycle, got %v", seen)
	}
}

func TestClient_StartStopLifecycle(t *testing.T) {
	srv, store := testRegistry(t)

	client := testClient(t, ClientConfig{
		URL:               srv.URL,
		App:               "billing",
		InstanceID:        "b-1",
		Address:           "10.0.0.1",
		Port:              8080,
		HeartbeatInterval: 10 * time.Millisecond,
	})

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if store.Len() != 1 {
		t.Fatal("expected registration on start")
	}

	time.Sleep(35 * time.Millisecond)

	if err := client.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("expected deregistration on stop")
	}

	h := client.Health(ctx)
	if h.Status != "healthy" {
		t.Fatalf("expected healthy, got %s with %q", h.Status, h.Message)
	}
}
