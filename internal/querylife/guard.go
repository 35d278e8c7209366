// Package querylife decides when a container's live data subscription may be
// created, kept, or replaced as the identity rendered in its slot changes.
package querylife

import (
	"context"
	"log/slog"
	"sync"

	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
	"planner-cli/internal/workcopy"
)

type Outcome int

const (
	// Refused: the identity was a placeholder or unknown; nothing changed.
	Refused Outcome = iota
	// Created: first subscription for this slot.
	Created
	// Preserved: same identity as the live subscription.
	Preserved
	// Recreated: a different valid identity replaced the previous one.
	Recreated
)

func (o Outcome) String() string {
	switch o {
	case Refused:
		return "refused"
	case Created:
		return "created"
	case Preserved:
		return "preserved"
	case Recreated:
		return "recreated"
	default:
		return "unknown"
	}
}

// Authority answers whether id is a container in the last authoritative
// container list (never the drag-polluted working copy of container order).
type Authority func(id model.ID) bool

type Guard struct {
	ctx    context.Context
	loader workcopy.Loader
	subs   workcopy.Subscriber
	known  Authority
	log    *slog.Logger
	opts   []workcopy.Option

	mu      sync.Mutex
	current *workcopy.Mount
	id      model.ID
	// onOutcome observes every Bind.
	onOutcome func(Outcome)
}

type Option func(*Guard)

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

func WithCopyOptions(opts ...workcopy.Option) Option {
	return func(g *Guard) { g.opts = append(g.opts, opts...) }
}

func WithOutcomeHook(fn func(Outcome)) Option {
	return func(g *Guard) { g.onOutcome = fn }
}

// New returns a guard whose subscriptions live until ctx is done or Close.
func New(ctx context.Context, loader workcopy.Loader, subs workcopy.Subscriber, known Authority, opts ...Option) *Guard {
	g := &Guard{ctx: ctx, loader: loader, subs: subs, known: known, log: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Bind reconciles the slot's subscription with key, the identity the
// rendering layer currently shows for it. Placeholder or unknown keys are
// refused silently and leave the existing subscription alive, so churn
// through a shadow identity and back never recreates it.
func (g *Guard) Bind(key string) Outcome {
	out := g.bind(key)
	if g.onOutcome != nil {
		g.onOutcome(out)
	}
	return out
}

func (g *Guard) bind(key string) Outcome {
	id, err := placeholder.ParseID(key)
	if err != nil {
		g.log.Debug("subscription refused for placeholder identity", "key", key)
		return Refused
	}
	if g.known != nil && !g.known(id) {
		g.log.Debug("subscription refused for unknown container", "id", id)
		return Refused
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil && g.id == id {
		return Preserved
	}
	out := Created
	if g.current != nil {
		g.current.Unmount()
		out = Recreated
	}
	g.current = workcopy.NewMount(g.ctx, model.ItemsOf(id), g.loader, g.subs, g.opts...)
	g.id = id
	g.log.Debug("container subscription bound", "id", id, "outcome", out.String())
	return out
}

// Current returns the live mount, or nil before the first valid Bind.
func (g *Guard) Current() *workcopy.Mount {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// ID returns the identity of the live subscription (0 if none).
func (g *Guard) ID() model.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

// Loading reports whether the slot has no seeded data yet.
func (g *Guard) Loading() bool {
	m := g.Current()
	return m == nil || m.Loading()
}

// Close unmounts the live subscription. Idempotent.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil {
		g.current.Unmount()
		g.current = nil
		g.id = 0
	}
}
