package status

import (
	"sync"
	"time"
)

// failingThreshold is the number of consecutive poll failures after which a
// source is reported as failing.
const failingThreshold = 3

// Source states derived by Store.State.
const (
	StateOK      = "ok"
	StateStale   = "stale"
	StateFailing = "failing"
	StateUnknown = "unknown"
)

// Entry is the runtime status of one configured source.
type Entry struct {
	SourceID            string
	LastSuccess         time.Time
	LastError           string
	LastErrorAt         time.Time
	ConsecutiveFailures int
	DocsPushed          int64
	SamplesLastPoll     int
	SkippedLastPoll     int
}

// Store is a thread-safe per-source status store. Sources are registered at
// construction, in the order they appear in configuration; Record* calls
// update them as poll cycles complete.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	order      []string
	staleAfter time.Duration
	now        func() time.Time // injectable for deterministic tests
}

// New creates a Store for the given source IDs, in the order they should be
// reported. A source whose last success is older than staleAfter is reported
// as stale.
func New(sourceIDs []string, staleAfter time.Duration) *Store {
	s := &Store{
		entries:    make(map[string]*Entry, len(sourceIDs)),
		order:      make([]string, 0, len(sourceIDs)),
		staleAfter: staleAfter,
		now:        time.Now,
	}
	for _, id := range sourceIDs {
		s.register(id)
	}
	return s
}

// register adds an entry for id if one does not exist. Caller must hold mu
// or be the constructor.
func (s *Store) register(id string) *Entry {
	e, ok := s.entries[id]
	if !ok {
		e = &Entry{SourceID: id}
		s.entries[id] = e
		s.order = append(s.order, id)
	}
	return e
}

// RecordSuccess notes a completed poll cycle for the source: how many samples
// the parse produced, how many lines it skipped, and how many documents were
// pushed for this source in the cycle.
func (s *Store) RecordSuccess(id string, samples, skipped int, docs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.register(id)
	e.LastSuccess = s.now()
	e.ConsecutiveFailures = 0
	e.SamplesLastPoll = samples
	e.SkippedLastPoll = skipped
	e.DocsPushed += docs
}

// RecordFailure notes a failed poll or push for the source.
func (s *Store) RecordFailure(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.register(id)
	e.LastError = err.Error()
	e.LastErrorAt = s.now()
	e.ConsecutiveFailures++
}

// Get returns a copy of the entry for the given source ID and a boolean
// indicating whether the source is known. Copies keep readers isolated from
// concurrent Record* updates.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of all entries in registration order.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Count returns the number of registered sources.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// State derives the reported state for e at the current time:
//
//   - failing: at least failingThreshold consecutive failures
//   - unknown: never polled (no success and no failure recorded)
//   - stale:   no success yet, or last success older than staleAfter
//   - ok:      otherwise
func (s *Store) State(e Entry) string {
	switch {
	case e.ConsecutiveFailures >= failingThreshold:
		return StateFailing
	case e.LastSuccess.IsZero() && e.LastErrorAt.IsZero():
		return StateUnknown
	case e.LastSuccess.IsZero():
		return StateStale
	case s.now().Sub(e.LastSuccess) > s.staleAfter:
		return StateStale
	default:
		return StateOK
	}
}
