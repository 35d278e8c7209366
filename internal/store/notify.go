package store

import (
	"sync"

	"planner-cli/internal/model"
)

// Subscription receives a signal on C after any committed change to its
// scope. Signals coalesce: a pending signal absorbs later ones, so consumers
// re-fetch rather than count. C is closed by Close.
type Subscription struct {
	C <-chan struct{}

	c     chan struct{}
	scope model.Scope
	hub   *hub

	mu     sync.Mutex
	closed bool
}

func (s *Subscription) Scope() model.Scope { return s.scope }

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.hub.remove(s)
	close(s.c)
}

func (s *Subscription) signal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.c <- struct{}{}:
	default:
	}
}

type hub struct {
	mu        sync.Mutex
	subs      map[model.Scope]map[*Subscription]struct{}
	listeners []func([]model.Scope)
}

func newHub() *hub {
	return &hub{subs: map[model.Scope]map[*Subscription]struct{}{}}
}

func (h *hub) add(scope model.Scope) *Subscription {
	c := make(chan struct{}, 1)
	sub := &Subscription{C: c, c: c, scope: scope, hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[scope]
	if set == nil {
		set = map[*Subscription]struct{}{}
		h.subs[scope] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.scope]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.scope)
	}
}

// publish signals subscribers of scopes. Listeners only hear local commits.
func (h *hub) publish(local bool, scopes ...model.Scope) {
	h.mu.Lock()
	var targets []*Subscription
	for _, sc := range scopes {
		for sub := range h.subs[sc] {
			targets = append(targets, sub)
		}
	}
	var listeners []func([]model.Scope)
	if local {
		listeners = append(listeners, h.listeners...)
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.signal()
	}
	for _, fn := range listeners {
		fn(scopes)
	}
}

func (h *hub) publishAll() {
	h.mu.Lock()
	var targets []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range targets {
		sub.signal()
	}
}

func (h *hub) count(scope model.Scope) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[scope])
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*Subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range all {
		sub.Close()
	}
}

// Subscribe registers interest in scope. The caller must Close it.
func (s *Store) Subscribe(scope model.Scope) *Subscription {
	return s.hub.add(scope)
}

// Subscribers reports how many live subscriptions scope has.
func (s *Store) Subscribers(scope model.Scope) int {
	return s.hub.count(scope)
}

// OnCommit registers fn to be called with the scopes of every local commit.
func (s *Store) OnCommit(fn func([]model.Scope)) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.listeners = append(s.hub.listeners, fn)
}

// Invalidate signals subscribers of scopes changed elsewhere (another process).
func (s *Store) Invalidate(scopes ...model.Scope) {
	s.hub.publish(false, scopes...)
}

// InvalidateAll signals every subscriber.
func (s *Store) InvalidateAll() {
	s.hub.publishAll()
}
