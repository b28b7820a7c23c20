// Command registryd runs the meshkit service registry: lease-based instance
// registration with heartbeat renewal and background eviction.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dkoca/meshkit/app"
	"github.com/dkoca/meshkit/config"
	"github.com/dkoca/meshkit/observability"
	"github.com/dkoca/meshkit/registry"
	"github.com/dkoca/meshkit/server"
	"github.com/dkoca/meshkit/server/endpoint"
)

type registrydConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	Registry struct {
		LeaseTTL      time.Duration `yaml:"lease_ttl" mapstructure:"lease_ttl"`
		EvictInterval time.Duration `yaml:"evict_interval" mapstructure:"evict_interval"`
	} `yaml:"registry" mapstructure:"registry"`
}

func (c *registrydConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "registryd"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8761
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
}

func (c *registrydConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg registrydConfig
	if err := config.Load("registryd", &cfg, config.LoaderOptions{EnvPrefix: "REGISTRY"}); err != nil {
		return err
	}

	a, err := app.New(&cfg.ServiceConfig, cfg.Observability)
	if err != nil {
		return err
	}
	log := a.Log()

	store := registry.NewStore(cfg.Registry.LeaseTTL)
	evictor := registry.NewEvictor(store, cfg.Registry.EvictInterval, log)

	srv := server.New(cfg.Server, log)
	engine := srv.GinEngine()
	if cfg.Observability.Enabled {
		engine.Use(observability.HTTPMiddleware(cfg.Name))
	}

	registry.NewServer(store, log).RegisterRoutes(engine)
	endpoint.RegisterOperational(engine, endpoint.InfoData{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, a.Components().HealthAll)

	srv.ApplyMiddleware()

	if err := a.Components().Register(evictor); err != nil {
		return err
	}
	if err := a.Components().Register(app.ServerComponent(srv)); err != nil {
		return err
	}

	return a.Run()
}
