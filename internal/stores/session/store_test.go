package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethanbaker/tabletalk/internal/binding"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// evictions records eviction hook calls
type evictions struct {
	mu     sync.Mutex
	events []string
}

func (ev *evictions) record(id string, reason EvictReason) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.events = append(ev.events, id+":"+string(reason))
}

func (ev *evictions) list() []string {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return append([]string(nil), ev.events...)
}

var echo = agent.HandleFunc(func(ctx context.Context, input string, history []agent.Message) (string, error) {
	return input, nil
})

func TestStore_GetOrCreate(t *testing.T) {
	store := NewStore(Options{})

	first := store.GetOrCreate("abc")
	assert.Equal(t, "abc", first.ID)
	assert.Equal(t, binding.KindNone, first.Binding)
	assert.False(t, first.Bound())
	assert.Empty(t, first.Transcript)
	assert.Equal(t, uint64(0), first.Version)

	second := store.GetOrCreate("abc")
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.Transcript, second.Transcript)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, 1, store.Len())
}

func TestStore_SnapshotsAreIndependent(t *testing.T) {
	store := NewStore(Options{})

	_, err := store.Update(context.Background(), "abc", func(s *State) error {
		s.Transcript = append(s.Transcript, agent.AssistantEntry("seed"))
		return nil
	})
	require.NoError(t, err)

	snapshot := store.GetOrCreate("abc")
	snapshot.Transcript[0].Content = "mutated"
	snapshot.Transcript = append(snapshot.Transcript, agent.UserEntry("extra"))

	again := store.GetOrCreate("abc")
	assert.Equal(t, []agent.Entry{agent.AssistantEntry("seed")}, again.Transcript)
}

func TestStore_Update(t *testing.T) {
	store := NewStore(Options{})
	ctx := context.Background()

	state, err := store.Update(ctx, "abc", func(s *State) error {
		s.Bind(echo, binding.KindData, "sales.csv", agent.AssistantEntry("ready"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, state.Bound())
	assert.Equal(t, binding.KindData, state.Binding)
	assert.Equal(t, "sales.csv", state.Source)
	assert.Equal(t, uint64(1), state.Version)

	// A failing update leaves the state as it was
	boom := errors.New("boom")
	state, err = store.Update(ctx, "abc", func(s *State) error {
		s.Transcript = nil
		s.Agent = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), state.Version)

	stored := store.GetOrCreate("abc")
	assert.True(t, stored.Bound())
	assert.Len(t, stored.Transcript, 1)
	assert.Equal(t, uint64(1), stored.Version)
}

func TestStore_Clear(t *testing.T) {
	ev := &evictions{}
	store := NewStore(Options{OnEvict: ev.record})
	ctx := context.Background()

	_, err := store.Update(ctx, "abc", func(s *State) error {
		s.Bind(echo, binding.KindData, "sales.csv", agent.AssistantEntry("ready"))
		return nil
	})
	require.NoError(t, err)

	assert.True(t, store.Clear("abc"))
	assert.False(t, store.Clear("abc"))
	assert.Equal(t, 0, store.Len())

	fresh := store.GetOrCreate("abc")
	assert.False(t, fresh.Bound())
	assert.Equal(t, binding.KindNone, fresh.Binding)
	assert.Empty(t, fresh.Transcript)
	assert.Equal(t, uint64(0), fresh.Version)

	assert.Equal(t, []string{"abc:cleared"}, ev.list())
}

func TestStore_CapacityEviction(t *testing.T) {
	ev := &evictions{}
	store := NewStore(Options{Capacity: 2, OnEvict: ev.record})

	store.GetOrCreate("a")
	store.GetOrCreate("b")
	store.GetOrCreate("a") // a is now most recent
	store.GetOrCreate("c") // evicts b

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []string{"b:capacity"}, ev.list())

	_, err := store.Update(context.Background(), "d", func(s *State) error { return nil }) // evicts a
	require.NoError(t, err)
	assert.Equal(t, []string{"b:capacity", "a:capacity"}, ev.list())
	assert.Equal(t, 2, store.Len())
}

func TestStore_CapacitySkipsBusySessions(t *testing.T) {
	store := NewStore(Options{Capacity: 1})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		store.Update(context.Background(), "busy", func(s *State) error {
			close(entered)
			<-release
			s.Source = "kept"
			return nil
		})
	}()
	<-entered

	store.GetOrCreate("other")
	assert.Equal(t, 2, store.Len(), "a session with an update in flight is not evicted")

	close(release)
	<-done
	assert.Equal(t, "kept", store.GetOrCreate("busy").Source)
}

func TestStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	ev := &evictions{}
	store := NewStore(Options{TTL: 10 * time.Minute, Now: clock.Now, OnEvict: ev.record})

	store.GetOrCreate("old")
	clock.Advance(6 * time.Minute)
	store.GetOrCreate("recent")
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{"old:expired"}, ev.list())

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, store.Sweep())
}

func TestStore_SweepSkipsBusySessions(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(Options{TTL: time.Minute, Now: clock.Now})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		store.Update(context.Background(), "busy", func(s *State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	clock.Advance(time.Hour)
	assert.Equal(t, 0, store.Sweep())
	assert.Equal(t, 1, store.Len())

	close(release)
	<-done

	// The finished update refreshed the session's activity
	assert.Equal(t, 0, store.Sweep())
	clock.Advance(time.Hour)
	assert.Equal(t, 1, store.Sweep())
}

func TestStore_SerializesSameSession(t *testing.T) {
	store := NewStore(Options{})

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), "shared", func(s *State) error {
				// Read-modify-write with a yield in between
				n := len(s.Transcript)
				time.Sleep(time.Millisecond)
				s.Transcript = append(s.Transcript[:n], agent.UserEntry(fmt.Sprintf("msg %d", i)))
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state := store.GetOrCreate("shared")
	assert.Len(t, state.Transcript, writers, "no update may be lost")
	assert.Equal(t, uint64(writers), state.Version)
}

func TestStore_DifferentSessionsRunInParallel(t *testing.T) {
	store := NewStore(Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		store.Update(context.Background(), "slow", func(s *State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := store.Update(ctx, "fast", func(s *State) error { return nil })
	assert.NoError(t, err, "an unrelated session must not wait")

	close(release)
	<-done
}

func TestStore_UpdateHonoursContext(t *testing.T) {
	store := NewStore(Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		store.Update(context.Background(), "abc", func(s *State) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	_, err := store.Update(ctx, "abc", func(s *State) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)
	<-done
}

func TestStore_ClearDuringUpdate(t *testing.T) {
	store := NewStore(Options{})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		store.Update(context.Background(), "abc", func(s *State) error {
			close(entered)
			<-release
			s.Bind(echo, binding.KindData, "late.csv")
			return nil
		})
	}()
	<-entered

	assert.True(t, store.Clear("abc"))
	close(release)
	<-done

	state := store.GetOrCreate("abc")
	assert.False(t, state.Bound(), "a cleared session starts fresh")
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(utils.NewConfig(map[string]string{
		"SESSION_CAPACITY": "25",
		"SESSION_TTL":      "90s",
	}))
	assert.Equal(t, 25, opts.Capacity)
	assert.Equal(t, 90*time.Second, opts.TTL)

	defaults := OptionsFromConfig(utils.NewConfig(nil))
	assert.Equal(t, DefaultCapacity, defaults.Capacity)
	assert.Equal(t, DefaultTTL, defaults.TTL)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("3f2c6a8e-6d1b-4b7a-9c55-0c1f6f6c2d11"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID(strings.Repeat("x", MaxIDLength+1)))
}

func TestSweeper(t *testing.T) {
	store := NewStore(Options{})

	sw, err := NewSweeper(store, "")
	require.NoError(t, err)
	sw.Start()
	sw.Stop()

	_, err = NewSweeper(store, "not a schedule")
	assert.ErrorContains(t, err, "invalid sweep schedule")
}
