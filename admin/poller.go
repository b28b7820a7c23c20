package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dkoca/meshkit/component"
	"github.com/dkoca/meshkit/logger"
	"github.com/dkoca/meshkit/registry"
)

// Source provides the registry snapshot the poller probes.
// *registry.Client satisfies it.
type Source interface {
	Apps(ctx context.Context) ([]registry.Application, error)
}

// PollerConfig configures the health poller.
type PollerConfig struct {
	// Interval between poll rounds.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// ProbeTimeout bounds one instance probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	// Concurrency bounds how many instances are probed at once.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// JournalSize bounds the status-event journal.
	JournalSize int `yaml:"journal_size" mapstructure:"journal_size"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *PollerConfig) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.JournalSize <= 0 {
		c.JournalSize = DefaultJournalSize
	}
}

// Poller probes every registered instance and maintains the aggregated
// dashboard state. It implements component.Component.
type Poller struct {
	cfg     PollerConfig
	source  Source
	journal *Journal
	probe   *http.Client
	log     *logger.Logger

	mu    sync.RWMutex
	state map[string]map[string]InstanceView

	stop chan struct{}
	done chan struct{}
}

// NewPoller creates a poller over the given registry source.
func NewPoller(cfg PollerConfig, source Source, log *logger.Logger) *Poller {
	cfg.ApplyDefaults()
	return &Poller{
		cfg:     cfg,
		source:  source,
		journal: NewJournal(cfg.JournalSize),
		probe:   &http.Client{Timeout: cfg.ProbeTimeout},
		log:     log.WithComponent("health-poller"),
		state:   make(map[string]map[string]InstanceView),
	}
}

// Name implements component.Component.
func (p *Poller) Name() string { return "health-poller" }

// Start runs one immediate poll round and launches the poll loop.
func (p *Poller) Start(ctx context.Context) error {
	p.pollOnce(ctx)

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop()
	return nil
}

// Stop terminates the poll loop.
func (p *Poller) Stop(ctx context.Context) error {
	if p.stop == nil {
		return nil
	}
	close(p.stop)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (p *Poller) Health(ctx context.Context) component.Health {
	p.mu.RLock()
	apps := len(p.state)
	p.mu.RUnlock()

	return component.Health{
		Name:   p.Name(),
		Status: component.StatusHealthy,
		Details: map[string]string{
			"applications": fmt.Sprintf("%d", apps),
			"events":       fmt.Sprintf("%d", p.journal.Len()),
		},
	}
}

// Applications returns the aggregated dashboard state, sorted by name.
func (p *Poller) Applications() []ApplicationView {
	p.mu.RLock()
	defer p.mu.RUnlock()

	views := make([]ApplicationView, 0, len(p.state))
	for name, instances := range p.state {
		views = append(views, buildView(name, instances))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// Application returns one application's aggregated state.
func (p *Poller) Application(name string) (ApplicationView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	instances, ok := p.state[name]
	if !ok {
		return ApplicationView{}, false
	}
	return buildView(name, instances), true
}

// Events returns the status-event journal, newest first.
func (p *Poller) Events() []StatusEvent {
	return p.journal.Events()
}

func buildView(name string, instances map[string]InstanceView) ApplicationView {
	view := ApplicationView{Name: name, Instances: make([]InstanceView, 0, len(instances))}
	for _, inst := range instances {
		view.Instances = append(view.Instances, inst)
	}
	sort.Slice(view.Instances, func(i, j int) bool { return view.Instances[i].ID < view.Instances[j].ID })
	view.Status = aggregate(view.Instances)
	return view
}

func (p *Poller) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Interval)
			p.pollOnce(ctx)
			cancel()
		}
	}
}

// pollOnce probes every registered instance with bounded concurrency and
// replaces the dashboard state with the results.
func (p *Poller) pollOnce(ctx context.Context) {
	apps, err := p.source.Apps(ctx)
	if err != nil {
		p.log.Warn("registry snapshot failed", logger.ErrorFields("snapshot", err))
		return
	}

	type result struct {
		view InstanceView
	}

	sem := make(chan struct{}, p.cfg.Concurrency)
	results := make(chan result)
	var wg sync.WaitGroup

	for _, app := range apps {
		for _, inst := range app.Instances {
			wg.Add(1)
			go func(inst registry.Instance) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				results <- result{view: p.probeInstance(ctx, inst)}
			}(inst)
		}
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	next := make(map[string]map[string]InstanceView)
	for r := range results {
		views, ok := next[r.view.App]
		if !ok {
			views = make(map[string]InstanceView)
			next[r.view.App] = views
		}
		views[r.view.ID] = r.view
	}

	p.recordTransitions(next)

	p.mu.Lock()
	p.state = next
	p.mu.Unlock()
}

// probeInstance probes one instance's health endpoint and, when reachable,
// its info endpoint.
func (p *Poller) probeInstance(ctx context.Context, inst registry.Instance) InstanceView {
	view := InstanceView{
		ID:          inst.ID,
		App:         inst.App,
		Address:     inst.Address,
		Port:        inst.Port,
		LastChecked: time.Now().UTC(),
	}

	status, detail := p.probeHealth(ctx, inst)
	view.Status = status
	view.Detail = detail
	if status == StatusUp {
		view.Info = p.probeInfo(ctx, inst)
	}
	return view
}

func (p *Poller) probeHealth(ctx context.Context, inst registry.Instance) (Status, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inst.URL()+"/healthz", nil)
	if err != nil {
		return StatusOffline, err.Error()
	}

	resp, err := p.probe.Do(req)
	if err != nil {
		return StatusOffline, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return StatusUp, ""
	}
	return StatusDown, fmt.Sprintf("health probe returned %d", resp.StatusCode)
}

func (p *Poller) probeInfo(ctx context.Context, inst registry.Instance) map[string]interface{} {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inst.URL()+"/info", nil)
	if err != nil {
		return nil
	}
	resp, err := p.probe.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var info map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil
	}
	return info
}

// recordTransitions journals every status change between the previous state
// and the next one, including instances that disappeared from the registry.
func (p *Poller) recordTransitions(next map[string]map[string]InstanceView) {
	p.mu.RLock()
	prev := p.state
	p.mu.RUnlock()

	now := time.Now().UTC()

	for app, instances := range next {
		for id, view := range instances {
			from := StatusUnknown
			if prevApp, ok := prev[app]; ok {
				if prevView, ok := prevApp[id]; ok {
					from = prevView.Status
				}
			}
			if from == view.Status {
				continue
			}
			p.journal.Append(StatusEvent{
				App: app, InstanceID: id,
				From: from, To: view.Status,
				Detail: view.Detail, At: now,
			})
			p.log.Info("instance status changed", logger.Fields(
				logger.FieldApp, app,
				logger.FieldInstance, id,
				logger.FieldStatus, string(view.Status),
				"previous", string(from),
			))
		}
	}

	for app, instances := range prev {
		for id, prevView := range instances {
			if _, ok := next[app][id]; ok {
				continue
			}
			p.journal.Append(StatusEvent{
				App: app, InstanceID: id,
				From: prevView.Status, To: StatusOffline,
				Detail: "deregistered", At: now,
			})
		}
	}
}
