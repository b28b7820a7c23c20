// Command configserverd serves centralized configuration resolved from YAML
// documents on disk, with optional self-registration in the service registry.
package main

import (
	"fmt"
	"os"

	"github.com/dkoca/meshkit/app"
	"github.com/dkoca/meshkit/config"
	"github.com/dkoca/meshkit/configserver"
	"github.com/dkoca/meshkit/observability"
	"github.com/dkoca/meshkit/registry"
	"github.com/dkoca/meshkit/server"
	"github.com/dkoca/meshkit/server/endpoint"
)

type configserverdConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	// ConfigRoot is the directory holding the configuration documents.
	ConfigRoot string `yaml:"config_root" mapstructure:"config_root"`

	// Registry enables self-registration when a URL is set.
	Registry registry.ClientConfig `yaml:"registry" mapstructure:"registry"`
}

func (c *configserverdConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "configserverd"
	}
	if c.ConfigRoot == "" {
		c.ConfigRoot = "./configrepo"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8888
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
}

func (c *configserverdConfig) Validate() error {
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
	var cfg configserverdConfig
	if err := config.Load("configserverd", &cfg, config.LoaderOptions{EnvPrefix: "CONFIGSERVER"}); err != nil {
		return err
	}

	a, err := app.New(&cfg.ServiceConfig, cfg.Observability)
	if err != nil {
		return err
	}
	log := a.Log()

	repo, err := configserver.NewFileRepository(cfg.ConfigRoot)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	engine := srv.GinEngine()
	if cfg.Observability.Enabled {
		engine.Use(observability.HTTPMiddleware(cfg.Name))
	}

	configserver.NewServer(repo, log).RegisterRoutes(engine)
	endpoint.RegisterOperational(engine, endpoint.InfoData{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, a.Components().HealthAll)

	srv.ApplyMiddleware()

	// The listener starts before the registry lease so registration never
	// points at a port that is not serving yet.
	if err := a.Components().Register(app.ServerComponent(srv)); err != nil {
		return err
	}
	if cfg.Registry.URL != "" {
		cfg.Registry.App = cfg.Name
		cfg.Registry.Port = cfg.Server.Port
		regClient, err := registry.NewClient(cfg.Registry, log)
		if err != nil {
			return err
		}
		if err := a.Components().Register(regClient); err != nil {
			return err
		}
	}

	return a.Run()
}
