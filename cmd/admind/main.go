// Command admind runs the monitoring dashboard backend: it polls every
// registered instance's operational endpoints and serves the aggregated view.
package main

import (
	"fmt"
	"os"

	"github.com/dkoca/meshkit/admin"
	"github.com/dkoca/meshkit/app"
	"github.com/dkoca/meshkit/config"
	"github.com/dkoca/meshkit/observability"
	"github.com/dkoca/meshkit/registry"
	"github.com/dkoca/meshkit/server"
	"github.com/dkoca/meshkit/server/endpoint"
)

type admindConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Poller        admin.PollerConfig   `yaml:"poller" mapstructure:"poller"`
	Admin         admin.ServerConfig   `yaml:"admin" mapstructure:"admin"`

	// Registry is the registry the dashboard watches (discover-only).
	Registry registry.ClientConfig `yaml:"registry" mapstructure:"registry"`
}

func (c *admindConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "admind"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9090
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Poller.ApplyDefaults()
}

func (c *admindConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if c.Registry.URL == "" {
		return fmt.Errorf("registry.url is required")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg admindConfig
	if err := config.Load("admind", &cfg, config.LoaderOptions{EnvPrefix: "ADMIN"}); err != nil {
		return err
	}

	a, err := app.New(&cfg.ServiceConfig, cfg.Observability)
	if err != nil {
		return err
	}
	log := a.Log()

	regClient, err := registry.NewClient(cfg.Registry, log)
	if err != nil {
		return err
	}
	poller := admin.NewPoller(cfg.Poller, regClient, log)

	srv := server.New(cfg.Server, log)
	engine := srv.GinEngine()
	if cfg.Observability.Enabled {
		engine.Use(observability.HTTPMiddleware(cfg.Name))
	}

	admin.NewServer(cfg.Admin, poller, log).RegisterRoutes(engine)
	endpoint.RegisterOperational(engine, endpoint.InfoData{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, a.Components().HealthAll)

	srv.ApplyMiddleware()

	if err := a.Components().Register(poller); err != nil {
		return err
	}
	if err := a.Components().Register(app.ServerComponent(srv)); err != nil {
		return err
	}

	return a.Run()
}
