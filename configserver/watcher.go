package configserver

import (
	"context"
	"sync"
	"time"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/logger"
)

// DefaultPollInterval is the default remote-configuration poll interval.
const DefaultPollInterval = 30 * time.Second

// Watcher polls a config server and invokes a callback when this client's
// resolved properties change. It implements component.Component.
type Watcher struct {
	client   *Client
	interval time.Duration
	onChange func(Environment)
	log      *logger.Logger

	mu       sync.Mutex
	last     string
	lastPoll time.Time
	pollErr  error

	stop chan struct{}
	done chan struct{}
}

// NewWatcher creates a Watcher polling at the given interval. onChange is
// called with the new environment whenever the merged properties differ from
// the previously seen ones.
func NewWatcher(client *Client, interval time.Duration, onChange func(Environment), log *logger.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		client:   client,
		interval: interval,
		onChange: onChange,
		log:      log.WithComponent("config-watcher"),
	}
}

// Name implements component.Component.
func (w *Watcher) Name() string { return "config-watcher" }

// Start fetches the initial environment and launches the poll loop.
func (w *Watcher) Start(ctx context.Context) error {
	env, err := w.client.Fetch(ctx)
	if err != nil {
		return err
	}
	digest, err := fingerprint(env)
	if err != nil {
		return err
	}
	w.last = digest

	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop()
	return nil
}

// Stop terminates the poll loop.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	close(w.stop)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (w *Watcher) Health(ctx context.Context) component.Health {
	w.mu.Lock()
	lastPoll, pollErr := w.lastPoll, w.pollErr
	w.mu.Unlock()

	h := component.Health{Name: w.Name(), Status: component.StatusHealthy}
	if pollErr != nil {
		h.Status = component.StatusDegraded
		h.Message = pollErr.Error()
	}
	if !lastPoll.IsZero() {
		h.Details = map[string]string{"last_poll": lastPoll.UTC().Format(time.RFC3339)}
	}
	return h
}

func (w *Watcher) loop() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), w.client.cfg.Timeout)
	env, err := w.client.Fetch(ctx)
	cancel()

	w.mu.Lock()
	w.lastPoll = time.Now()
	w.pollErr = err
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("config poll failed", logger.ErrorFields("poll", err))
		return
	}

	digest, err := fingerprint(env)
	if err != nil {
		w.log.Warn("config fingerprint failed", logger.ErrorFields("fingerprint", err))
		return
	}
	if digest == w.last {
		return
	}

	w.last = digest
	w.log.Info("remote configuration changed", logger.Fields(
		logger.FieldApp, w.client.cfg.App,
		"profile", w.client.cfg.Profile,
	))
	if w.onChange != nil {
		w.onChange(env)
	}
}
