package configserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/dkoca/meshkit/httpclient"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/resilience"
)

// ClientConfig configures a config-server client.
type ClientConfig struct {
	// URL is the config server base URL (e.g. "http://localhost:8888").
	URL string `yaml:"url" mapstructure:"url"`
	// App is the application whose configuration is fetched.
	App string `yaml:"app" mapstructure:"app"`
	// Profile selects the environment profile; "default" when empty.
	Profile string `yaml:"profile" mapstructure:"profile"`
	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *ClientConfig) ApplyDefaults() {
	if c.Profile == "" {
		c.Profile = DefaultProfile
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}

// Validate checks that required fields are present.
func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("config server url is required")
	}
	if c.App == "" {
		return fmt.Errorf("application name is required")
	}
	return nil
}

// Client fetches resolved configuration from a config server.
type Client struct {
	cfg  ClientConfig
	http *httpclient.Client
	log  *logger.Logger
}

// NewClient creates a config-server client.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	breaker := resilience.DefaultCircuitBreakerConfig("config-client")

	hc, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.URL,
		Timeout:        cfg.Timeout,
		Retry:          &retry,
		CircuitBreaker: &breaker,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:  cfg,
		http: hc,
		log:  log.WithComponent("config-client"),
	}, nil
}

// Fetch resolves this client's environment from the server.
func (c *Client) Fetch(ctx context.Context) (Environment, error) {
	path := fmt.Sprintf("/config/%s/%s", c.cfg.App, c.cfg.Profile)
	resp, err := httpclient.Get[Environment](ctx, c.http, path)
	if err != nil {
		return Environment{}, err
	}
	return resp.Data, nil
}

// Apply fetches the environment and merges its properties into v. Remote
// properties override values already present, matching the precedence a
// config server is there to provide.
func (c *Client) Apply(ctx context.Context, v *viper.Viper) error {
	env, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	for key, value := range env.Properties {
		v.Set(key, value)
	}

	c.log.Info("remote configuration applied", logger.Fields(
		logger.FieldApp, c.cfg.App,
		"profile", c.cfg.Profile,
		"sources", len(env.PropertySources),
	))
	return nil
}

// Overlay fetches the environment and decodes its merged properties over
// target, which must be a pointer to a mapstructure-tagged struct. Only keys
// present remotely are set; everything else in target keeps its local value.
func (c *Client) Overlay(ctx context.Context, target interface{}) error {
	v := viper.New()
	if err := c.Apply(ctx, v); err != nil {
		return err
	}
	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("binding remote configuration: %w", err)
	}
	return nil
}

// fingerprint returns a stable digest of an environment's merged properties.
func fingerprint(env Environment) (string, error) {
	data, err := json.Marshal(env.Properties)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
