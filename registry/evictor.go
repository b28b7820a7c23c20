package registry

import (
	"context"
	"strconv"
	"time"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/logger"
)

// DefaultEvictInterval is the default lease sweep interval.
const DefaultEvictInterval = 15 * time.Second

// Evictor periodically sweeps expired leases out of a Store.
// It implements component.Component.
type Evictor struct {
	store    *Store
	interval time.Duration
	log      *logger.Logger

	stop chan struct{}
	done chan struct{}
}

// NewEvictor creates an Evictor sweeping at the given interval.
func NewEvictor(store *Store, interval time.Duration, log *logger.Logger) *Evictor {
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	return &Evictor{
		store:    store,
		interval: interval,
		log:      log.WithComponent("evictor"),
	}
}

// Name implements component.Component.
func (e *Evictor) Name() string { return "lease-evictor" }

// Start launches the background sweep loop.
func (e *Evictor) Start(ctx context.Context) error {
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.stop:
				return
			case <-ticker.C:
				e.sweep()
			}
		}
	}()
	return nil
}

// Stop terminates the sweep loop.
func (e *Evictor) Stop(ctx context.Context) error {
	if e.stop == nil {
		return nil
	}
	close(e.stop)

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (e *Evictor) Health(ctx context.Context) component.Health {
	return component.Health{
		Name:   e.Name(),
		Status: component.StatusHealthy,
		Details: map[string]string{
			"instances": strconv.Itoa(e.store.Len()),
		},
	}
}

func (e *Evictor) sweep() {
	evicted := e.store.Evict()
	for _, inst := range evicted {
		e.log.Warn("lease expired, instance evicted", logger.Fields(
			logger.FieldApp, inst.App,
			logger.FieldInstance, inst.ID,
			"last_heartbeat", inst.LastHeartbeat.UTC().Format(time.RFC3339),
		))
	}
}
