package admin

import "sync"

// DefaultJournalSize bounds the event journal when no size is configured.
const DefaultJournalSize = 200

// Journal is a bounded, newest-first record of status transitions. Once
// full, appending drops the oldest event.
type Journal struct {
	mu     sync.Mutex
	events []StatusEvent
	next   int
	full   bool
}

// NewJournal creates a journal holding at most size events.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultJournalSize
	}
	return &Journal{events: make([]StatusEvent, size)}
}

// Append records one event, evicting the oldest when full.
func (j *Journal) Append(e StatusEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events[j.next] = e
	j.next = (j.next + 1) % len(j.events)
	if j.next == 0 {
		j.full = true
	}
}

// Events returns the recorded events, newest first.
func (j *Journal) Events() []StatusEvent {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.events)
	}

	out := make([]StatusEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (j.next - 1 - i + len(j.events)) % len(j.events)
		out = append(out, j.events[idx])
	}
	return out
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.full {
		return len(j.events)
	}
	return j.next
}
