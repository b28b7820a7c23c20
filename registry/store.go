package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Store errors.
var (
	ErrInstanceNotFound = errors.New("instance not found")
	ErrAppNotFound      = errors.New("application not found")
)

// DefaultLeaseTTL is applied to registrations that do not request a TTL.
const DefaultLeaseTTL = 90 * time.Second

// Store holds leased service-instance registrations.
// All operations are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	apps map[string]map[string]*Instance

	defaultTTL time.Duration
	now        func() time.Time
}

// NewStore creates an empty Store with the given default lease TTL.
func NewStore(defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultLeaseTTL
	}
	return &Store{
		apps:       make(map[string]map[string]*Instance),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Register inserts or replaces an instance registration and starts its lease.
func (s *Store) Register(inst Instance) Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if inst.LeaseTTL <= 0 {
		inst.LeaseTTL = s.defaultTTL
	}
	inst.Status = StatusUp
	inst.RegisteredAt = now
	inst.LastHeartbeat = now

	instances, ok := s.apps[inst.App]
	if !ok {
		instances = make(map[string]*Instance)
		s.apps[inst.App] = instances
	}
	instances[inst.ID] = &inst
	return inst
}

// Heartbeat renews the lease of a registered instance. It never creates a
// registration: renewing an unknown or evicted instance returns
// ErrInstanceNotFound and the client must re-register.
func (s *Store) Heartbeat(app, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.apps[app][id]
	if !ok {
		return ErrInstanceNotFound
	}
	inst.LastHeartbeat = s.now()
	inst.Status = StatusUp
	return nil
}

// Deregister removes an instance registration.
func (s *Store) Deregister(app, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	instances, ok := s.apps[app]
	if !ok {
		return ErrInstanceNotFound
	}
	if _, ok := instances[id]; !ok {
		return ErrInstanceNotFound
	}
	delete(instances, id)
	if len(instances) == 0 {
		delete(s.apps, app)
	}
	return nil
}

// App returns a copy of one application's instances.
func (s *Store) App(name string) (Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instances, ok := s.apps[name]
	if !ok || len(instances) == 0 {
		return Application{}, ErrAppNotFound
	}
	return Application{Name: name, Instances: copyInstances(instances)}, nil
}

// Snapshot returns a copy of all applications, sorted by name.
func (s *Store) Snapshot() []Application {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]Application, 0, len(s.apps))
	for name, instances := range s.apps {
		if len(instances) == 0 {
			continue
		}
		snapshot = append(snapshot, Application{Name: name, Instances: copyInstances(instances)})
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name < snapshot[j].Name })
	return snapshot
}

// Evict removes instances whose lease expired and returns the evicted copies.
func (s *Store) Evict() []Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var evicted []Instance
	for app, instances := range s.apps {
		for id, inst := range instances {
			if now.Sub(inst.LastHeartbeat) > inst.LeaseTTL {
				evicted = append(evicted, *inst)
				delete(instances, id)
			}
		}
		if len(instances) == 0 {
			delete(s.apps, app)
		}
	}
	return evicted
}

// Len returns the total number of registered instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, instances := range s.apps {
		n += len(instances)
	}
	return n
}

func copyInstances(instances map[string]*Instance) []Instance {
	out := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
