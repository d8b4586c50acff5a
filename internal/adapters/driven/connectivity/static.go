package connectivity

import (
	"context"
	"sync"

	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// Ensure Static implements the interface.
var _ driven.ConnectivityProvider = (*Static)(nil)

// Static reports a state set by the caller.
type Static struct {
	mu       sync.Mutex
	online   bool
	watchers *watcherSet
}

// NewStatic creates a provider with the given initial state.
func NewStatic(online bool) *Static {
	return &Static{online: online, watchers: newWatcherSet()}
}

// Online returns the current state.
func (s *Static) Online(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set changes the state and notifies watchers on a transition.
func (s *Static) Set(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if changed {
		s.watchers.emit(online)
	}
}

// Watch emits the new state on every transition.
func (s *Static) Watch(ctx context.Context) <-chan bool {
	return s.watchers.add(ctx)
}

// watcherSet fans a state out to subscriber channels.
type watcherSet struct {
	mu   sync.Mutex
	subs map[chan bool]struct{}
}

func newWatcherSet() *watcherSet {
	return &watcherSet{subs: make(map[chan bool]struct{})}
}

// add registers a subscriber whose channel closes when ctx ends.
func (w *watcherSet) add(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, ch)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// emit delivers state to every subscriber without blocking.
// A slow subscriber sees only the latest state.
func (w *watcherSet) emit(state bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs {
		send(ch, state)
	}
}

// send replaces any undelivered value in a one-slot channel.
func send(ch chan bool, state bool) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
