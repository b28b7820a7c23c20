// Package app provides the shared bootstrap every meshkit binary uses:
// logger and telemetry initialization, component lifecycle, and signal-driven
// shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/config"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/observability"
)

// App holds a service's runtime: its logger, component registry, and
// telemetry providers.
type App struct {
	svc *config.ServiceConfig
	log *logger.Logger

	components *component.Registry

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// New initializes the global logger and, when enabled, tracing and metrics.
func New(svc *config.ServiceConfig, obs observability.Config) (*App, error) {
	logger.Init(&svc.Logging)

	a := &App{
		svc:        svc,
		log:        logger.GetGlobalLogger(),
		components: component.NewRegistry(),
	}

	if obs.Enabled {
		obs.ApplyDefaults()
		ctx := context.Background()

		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    svc.Name,
			ServiceVersion: svc.Version,
			Environment:    svc.Environment,
			Endpoint:       obs.Endpoint,
			Insecure:       obs.Insecure,
			SampleRate:     obs.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		a.tracerProvider = tp

		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    svc.Name,
			ServiceVersion: svc.Version,
			Environment:    svc.Environment,
			Endpoint:       obs.Endpoint,
			Insecure:       obs.Insecure,
			Interval:       obs.MetricInterval,
		})
		if err != nil {
			return nil, err
		}
		a.meterProvider = mp
	}

	return a, nil
}

// Log returns the service logger.
func (a *App) Log() *logger.Logger { return a.log }

// Components returns the component registry. Register dependencies first;
// they start in order and stop in reverse.
func (a *App) Components() *component.Registry { return a.components }

// Run starts all components, blocks until SIGINT or SIGTERM, then stops
// everything and flushes telemetry.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.components.StartAll(ctx); err != nil {
		a.shutdown()
		return err
	}

	a.log.Info("service started", logger.Fields(
		"name", a.svc.Name,
		"environment", a.svc.Environment,
		"version", a.svc.Version,
	))

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := a.components.StopAll(stopCtx)
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.log.Warn("tracer shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			a.log.Warn("meter shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}
}
