// Command gatewayd runs the API gateway: predicate-routed reverse proxying
// with filter chains and registry-backed load balancing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/app"
	"github.com/dkoca/meshkit/config"
	"github.com/dkoca/meshkit/configserver"
	"github.com/dkoca/meshkit/gateway"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/observability"
	"github.com/dkoca/meshkit/registry"
	"github.com/dkoca/meshkit/server"
	"github.com/dkoca/meshkit/server/endpoint"
	"github.com/dkoca/meshkit/server/middleware"
)

type gatewaydConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Gateway       gateway.Config       `yaml:"gateway" mapstructure:"gateway"`

	// Registry resolves lb:// route targets.
	Registry registry.ClientConfig `yaml:"registry" mapstructure:"registry"`

	// ConfigServer overlays remote configuration over the local file when a
	// URL is set. PollInterval > 0 additionally watches for remote changes.
	ConfigServer struct {
		configserver.ClientConfig `yaml:",inline" mapstructure:",squash"`

		PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	} `yaml:"config_server" mapstructure:"config_server"`

	// Auth enables JWT verification on proxied requests when a secret is set.
	Auth struct {
		Secret    string   `yaml:"secret" mapstructure:"secret"`
		SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
	} `yaml:"auth" mapstructure:"auth"`
}

func (c *gatewaydConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "gatewayd"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
}

func (c *gatewaydConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Gateway.Validate()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg gatewaydConfig
	if err := config.Load("gatewayd", &cfg, config.LoaderOptions{EnvPrefix: "GATEWAY"}); err != nil {
		return err
	}

	// Remote configuration overlays the local file before anything is built,
	// so routes and logging can be managed centrally.
	var remote *configserver.Client
	if cfg.ConfigServer.URL != "" {
		if cfg.ConfigServer.App == "" {
			cfg.ConfigServer.App = cfg.Name
		}
		if cfg.ConfigServer.Profile == "" {
			cfg.ConfigServer.Profile = cfg.Environment
		}

		var err error
		remote, err = configserver.NewClient(cfg.ConfigServer.ClientConfig, logger.NewDefault(cfg.Name))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = remote.Overlay(ctx, &cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("remote configuration: %w", err)
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	a, err := app.New(&cfg.ServiceConfig, cfg.Observability)
	if err != nil {
		return err
	}
	log := a.Log()

	if remote != nil && cfg.ConfigServer.PollInterval > 0 {
		watcher := configserver.NewWatcher(remote, cfg.ConfigServer.PollInterval, func(configserver.Environment) {
			log.Warn("remote configuration changed, restart to apply")
		}, log)
		if err := a.Components().Register(watcher); err != nil {
			return err
		}
	}

	var regClient *registry.Client
	var resolver gateway.Resolver
	if cfg.Registry.URL != "" {
		if cfg.Registry.App != "" && cfg.Registry.Port == 0 {
			cfg.Registry.Port = cfg.Server.Port
		}
		regClient, err = registry.NewClient(cfg.Registry, log)
		if err != nil {
			return err
		}
		resolver = regClient
	}

	router, err := gateway.NewRouter(cfg.Gateway, resolver, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	engine := srv.GinEngine()
	if cfg.Observability.Enabled {
		engine.Use(observability.HTTPMiddleware(cfg.Name))
	}
	if cfg.Auth.Secret != "" {
		engine.Use(middleware.Auth(middleware.AuthConfig{
			TokenValidator: middleware.HMACTokenValidator(cfg.Auth.Secret),
			SkipPaths:      append([]string{"/healthz", "/info"}, cfg.Auth.SkipPaths...),
		}))
	}

	endpoint.RegisterOperational(engine, endpoint.InfoData{
		Service:     cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, a.Components().HealthAll)

	// Everything the operational routes do not claim is proxied.
	engine.NoRoute(gin.WrapH(router))

	srv.ApplyMiddleware()

	if err := a.Components().Register(app.ServerComponent(srv)); err != nil {
		return err
	}
	// Registering after the server means the lease never points at a port
	// that is not serving yet.
	if regClient != nil {
		if err := a.Components().Register(regClient); err != nil {
			return err
		}
	}

	return a.Run()
}
