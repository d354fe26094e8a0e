// Package session holds conversation state per session identifier
package session

import (
	"container/list"
	"context"
	"log"
	"sync"
	"time"

	"github.com/ethanbaker/tabletalk/internal/binding"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
)

// EvictReason explains why an entry left the store
type EvictReason string

const (
	ReasonCapacity EvictReason = "capacity"
	ReasonExpired  EvictReason = "expired"
	ReasonCleared  EvictReason = "cleared"
)

// Defaults used when options leave a field unset
const (
	DefaultCapacity = 1000
	DefaultTTL      = 30 * time.Minute
)

// Options configures a Store
type Options struct {
	Capacity int
	TTL      time.Duration
	OnEvict  func(id string, reason EvictReason)
	Now      func() time.Time
}

// OptionsFromConfig reads SESSION_CAPACITY and SESSION_TTL
func OptionsFromConfig(cfg *utils.Config) Options {
	return Options{
		Capacity: cfg.GetIntWithDefault("SESSION_CAPACITY", DefaultCapacity),
		TTL:      cfg.GetDurationWithDefault("SESSION_TTL", DefaultTTL),
	}
}

type entry struct {
	state   State
	lock    chan struct{} // held for the duration of an Update
	elem    *list.Element
	removed bool
}

func (e *entry) busy() bool {
	return len(e.lock) > 0
}

// Store is a bounded registry of session states. Entries are evicted least
// recently used first once capacity is reached, and expire after the TTL
// of inactivity. Entries with an update in flight are never evicted
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front is most recently used

	capacity int
	ttl      time.Duration
	onEvict  func(id string, reason EvictReason)
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore(opts Options) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Store{
		entries:  make(map[string]*entry),
		lru:      list.New(),
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		onEvict:  opts.OnEvict,
		now:      opts.Now,
	}
}

// getOrCreateLocked returns the entry for id, creating it and evicting
// over-capacity entries as needed. It must be called with s.mu held
func (s *Store) getOrCreateLocked(id string) (*entry, []string) {
	now := s.now()

	if e, ok := s.entries[id]; ok {
		e.state.LastActivity = now
		s.lru.MoveToFront(e.elem)
		return e, nil
	}

	e := &entry{
		state: State{
			ID:           id,
			Binding:      binding.KindNone,
			Transcript:   []agent.Entry{},
			CreatedAt:    now,
			LastActivity: now,
		},
		lock: make(chan struct{}, 1),
	}
	e.elem = s.lru.PushFront(id)
	s.entries[id] = e

	return e, s.evictLocked()
}

// evictLocked drops idle least recently used entries above capacity
func (s *Store) evictLocked() []string {
	var evicted []string

	for elem := s.lru.Back(); elem != nil && len(s.entries) > s.capacity; {
		prev := elem.Prev()
		id := elem.Value.(string)
		if e := s.entries[id]; !e.busy() && elem != s.lru.Front() {
			s.removeLocked(id, e)
			evicted = append(evicted, id)
		}
		elem = prev
	}

	return evicted
}

func (s *Store) removeLocked(id string, e *entry) {
	e.removed = true
	s.lru.Remove(e.elem)
	delete(s.entries, id)
}

func (s *Store) notify(ids []string, reason EvictReason) {
	for _, id := range ids {
		log.Printf("[SESSION-STORE]: Removed session %s (%s)", id, reason)
		if s.onEvict != nil {
			s.onEvict(id, reason)
		}
	}
}

// GetOrCreate returns a snapshot of the state for id, creating an empty
// state if none exists. Repeated calls return an equal state
func (s *Store) GetOrCreate(id string) State {
	s.mu.Lock()
	e, evicted := s.getOrCreateLocked(id)
	snapshot := e.state.clone()
	s.mu.Unlock()

	s.notify(evicted, ReasonCapacity)
	return snapshot
}

// Update is a serialized read-modify-write of the state for id. fn gets a
// private copy; the copy is stored, with Version incremented, only when fn
// returns nil. Waiting for the session honours ctx
func (s *Store) Update(ctx context.Context, id string, fn func(*State) error) (State, error) {
	for {
		s.mu.Lock()
		e, evicted := s.getOrCreateLocked(id)
		s.mu.Unlock()
		s.notify(evicted, ReasonCapacity)

		select {
		case e.lock <- struct{}{}:
		case <-ctx.Done():
			return State{}, ctx.Err()
		}

		s.mu.Lock()
		if e.removed {
			// Cleared or expired while waiting, start over on a fresh entry
			s.mu.Unlock()
			<-e.lock
			continue
		}
		working := e.state.clone()
		s.mu.Unlock()

		err := fn(&working)

		s.mu.Lock()
		var result State
		if err == nil {
			working.ID = id
			working.Version = e.state.Version + 1
			working.LastActivity = s.now()
			if !e.removed {
				e.state = working
				s.lru.MoveToFront(e.elem)
			}
			result = working.clone()
		} else {
			result = e.state.clone()
		}
		s.mu.Unlock()

		<-e.lock
		return result, err
	}
}

// Clear removes the state for id. It reports whether an entry existed. An
// update already in flight for id finishes but its result is not stored
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		s.removeLocked(id, e)
	}
	s.mu.Unlock()

	if ok {
		s.notify([]string{id}, ReasonCleared)
	}
	return ok
}

// Sweep removes entries idle for longer than the TTL and returns how many
// were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)

	var expired []string
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		id := elem.Value.(string)
		e := s.entries[id]

		// The list is ordered by recency, so the first fresh entry ends the scan
		if !e.state.LastActivity.Before(cutoff) {
			break
		}
		if !e.busy() {
			s.removeLocked(id, e)
			expired = append(expired, id)
		}
		elem = prev
	}
	s.mu.Unlock()

	s.notify(expired, ReasonExpired)
	return len(expired)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Capacity returns the configured maximum number of sessions
func (s *Store) Capacity() int {
	return s.capacity
}
