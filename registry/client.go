package registry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/httpclient"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/resilience"
)

// ClientConfig configures a registry client.
type ClientConfig struct {
	// URL is the registry server base URL (e.g. "http://localhost:8761").
	URL string `yaml:"url" mapstructure:"url"`

	// App is the application name to register under. Leave empty for
	// discover-only clients (e.g. the admin monitor).
	App string `yaml:"app" mapstructure:"app"`
	// InstanceID is the unique instance ID; generated when empty.
	InstanceID string `yaml:"instance_id" mapstructure:"instance_id"`
	// Address is the address advertised to other services.
	Address string `yaml:"address" mapstructure:"address"`
	// Port is the port advertised to other services.
	Port int `yaml:"port" mapstructure:"port"`
	// Metadata is arbitrary key-value metadata for the registration.
	Metadata map[string]string `yaml:"metadata" mapstructure:"metadata"`

	// LeaseTTL is the requested lease duration.
	LeaseTTL time.Duration `yaml:"lease_ttl" mapstructure:"lease_ttl"`
	// HeartbeatInterval controls lease renewal; defaults to LeaseTTL/3.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	// CacheTTL bounds how long discovery results are served from cache.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *ClientConfig) ApplyDefaults() {
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = c.LeaseTTL / 3
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.InstanceID == "" && c.App != "" {
		c.InstanceID = fmt.Sprintf("%s-%s", c.App, uuid.New().String())
	}
}

// Validate checks that required fields are present.
func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("registry url is required")
	}
	if c.App != "" && (c.Address == "" || c.Port <= 0) {
		return fmt.Errorf("registering clients need an advertised address and port")
	}
	return nil
}

// cacheEntry holds a cached discovery result.
type cacheEntry struct {
	instances []Instance
	fetchedAt time.Time
}

// Client registers a service with the registry, renews its lease, and
// discovers peers. It implements component.Component.
type Client struct {
	cfg  ClientConfig
	http *httpclient.Client
	log  *logger.Logger

	mu       sync.Mutex
	cache    map[string]cacheEntry
	counters map[string]int
	lastBeat time.Time
	beatErr  error

	stop chan struct{}
	done chan struct{}
}

// NewClient creates a registry client.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cl := log.WithComponent("registry-client")

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 3

	// The breaker fails calls fast while the registry is down; Discover then
	// falls back to its stale cache instead of waiting out timeouts.
	breaker := resilience.DefaultCircuitBreakerConfig("registry-client")
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		cl.Warn("registry circuit state changed", logger.Fields(
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		))
	}

	hc, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.URL,
		Timeout:        5 * time.Second,
		Retry:          &retry,
		CircuitBreaker: &breaker,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		http:     hc,
		log:      cl,
		cache:    make(map[string]cacheEntry),
		counters: make(map[string]int),
	}, nil
}

// Name implements component.Component.
func (c *Client) Name() string { return "registry-client" }

// Start registers this instance (when configured to) and launches the
// heartbeat loop.
func (c *Client) Start(ctx context.Context) error {
	if c.cfg.App == "" {
		return nil // discover-only client
	}

	if err := c.Register(ctx); err != nil {
		return fmt.Errorf("initial registration: %w", err)
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.heartbeatLoop()
	return nil
}

// Stop terminates the heartbeat loop and deregisters this instance.
func (c *Client) Stop(ctx context.Context) error {
	if c.stop != nil {
		close(c.stop)
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.cfg.App == "" {
		return nil
	}
	return c.Deregister(ctx)
}

// Health implements component.Component.
func (c *Client) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	lastBeat, beatErr := c.lastBeat, c.beatErr
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.cfg.App == "" {
		return h
	}
	if beatErr != nil {
		h.Status = component.StatusDegraded
		h.Message = beatErr.Error()
	}
	if !lastBeat.IsZero() {
		h.Details = map[string]string{"last_heartbeat": lastBeat.UTC().Format(time.RFC3339)}
	}
	return h
}

// Register registers this instance with the registry.
func (c *Client) Register(ctx context.Context) error {
	req := RegisterRequest{
		ID:              c.cfg.InstanceID,
		Address:         c.cfg.Address,
		Port:            c.cfg.Port,
		Metadata:        c.cfg.Metadata,
		LeaseTTLSeconds: int(c.cfg.LeaseTTL / time.Second),
	}

	_, err := httpclient.Post[Instance](ctx, c.http, "/registry/apps/"+c.cfg.App, req)
	if err != nil {
		return err
	}

	c.log.Info("registered with registry", logger.Fields(
		logger.FieldApp, c.cfg.App,
		logger.FieldInstance, c.cfg.InstanceID,
	))
	return nil
}

// Deregister removes this instance's registration.
func (c *Client) Deregister(ctx context.Context) error {
	path := fmt.Sprintf("/registry/apps/%s/%s", c.cfg.App, c.cfg.InstanceID)
	_, err := httpclient.Delete[struct{}](ctx, c.http, path)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil // already gone
	}
	return err
}

// Heartbeat renews this instance's lease once. A 404 means the registry
// evicted the lease; the client re-registers.
func (c *Client) Heartbeat(ctx context.Context) error {
	path := fmt.Sprintf("/registry/apps/%s/%s", c.cfg.App, c.cfg.InstanceID)
	_, err := httpclient.Put[struct{}](ctx, c.http, path, nil)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		c.log.Warn("lease lost, re-registering", logger.Fields(
			logger.FieldApp, c.cfg.App,
			logger.FieldInstance, c.cfg.InstanceID,
		))
		return c.Register(ctx)
	}
	return err
}

// Apps fetches the full registry snapshot.
func (c *Client) Apps(ctx context.Context) ([]Application, error) {
	type snapshot struct {
		Applications []Application `json:"applications"`
	}
	resp, err := httpclient.Get[snapshot](ctx, c.http, "/registry/apps")
	if err != nil {
		return nil, err
	}
	return resp.Data.Applications, nil
}

// Discover returns the registered instances of an application, served from a
// short-lived cache.
func (c *Client) Discover(ctx context.Context, app string) ([]Instance, error) {
	c.mu.Lock()
	entry, ok := c.cache[app]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < c.cfg.CacheTTL {
		return entry.instances, nil
	}

	resp, err := httpclient.Get[Application](ctx, c.http, "/registry/apps/"+app)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, errors.NoInstances(app)
		}
		// Serve stale cache on registry failure rather than failing the caller.
		if ok && len(entry.instances) > 0 {
			return entry.instances, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[app] = cacheEntry{instances: resp.Data.Instances, fetchedAt: time.Now()}
	c.mu.Unlock()
	return resp.Data.Instances, nil
}

// Next returns the next instance of an application in round-robin order.
func (c *Client) Next(ctx context.Context, app string) (Instance, error) {
	instances, err := c.Discover(ctx, app)
	if err != nil {
		return Instance{}, err
	}
	if len(instances) == 0 {
		return Instance{}, errors.NoInstances(app)
	}

	c.mu.Lock()
	idx := c.counters[app] % len(instances)
	c.counters[app]++
	c.mu.Unlock()

	return instances[idx], nil
}

// Invalidate clears the cached discovery result for an application.
func (c *Client) Invalidate(app string) {
	c.mu.Lock()
	delete(c.cache, app)
	c.mu.Unlock()
}

func (c *Client) heartbeatLoop() {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := c.Heartbeat(ctx)
			cancel()

			c.mu.Lock()
			c.lastBeat = time.Now()
			c.beatErr = err
			c.mu.Unlock()

			if err != nil {
				c.log.Warn("heartbeat failed", logger.ErrorFields("heartbeat", err))
			}
		}
	}
}
