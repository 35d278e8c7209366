// Package workcopy keeps the per-scope, in-memory ordering that the
// interaction and rendering layers work against while the store stays the
// source of truth.
package workcopy

import (
	"context"
	"log/slog"
	"sync"

	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
)

// Loader reads the authoritative ordering of a scope.
type Loader interface {
	Entries(ctx context.Context, scope model.Scope) ([]model.Entry, error)
}

// Copy is the working copy of one mounted scope. It is replaced wholesale
// from store data unless a drag session holds it.
type Copy struct {
	scope  model.Scope
	loader Loader
	log    *slog.Logger

	mu            sync.Mutex
	working       []model.Entry
	authoritative []model.Entry
	held          bool
	// staleWhileHeld records store data that arrived during a hold.
	staleWhileHeld bool
	seeded         bool
	ready          chan struct{}
	onChange       func(model.Scope)
}

type Option func(*Copy)

func WithLogger(l *slog.Logger) Option {
	return func(c *Copy) {
		if l != nil {
			c.log = l
		}
	}
}

// WithOnChange registers fn to run after the working entries change.
// fn runs without the copy's lock held.
func WithOnChange(fn func(model.Scope)) Option {
	return func(c *Copy) { c.onChange = fn }
}

func New(scope model.Scope, loader Loader, opts ...Option) *Copy {
	c := &Copy{
		scope:  scope,
		loader: loader,
		log:    slog.Default(),
		ready:  make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Copy) Scope() model.Scope { return c.scope }

// Ready is closed once the copy has been seeded from the store.
func (c *Copy) Ready() <-chan struct{} { return c.ready }

// Refresh re-reads the scope from the store and applies it.
func (c *Copy) Refresh(ctx context.Context) error {
	fresh, err := c.loader.Entries(ctx, c.scope)
	if err != nil {
		return err
	}
	c.Apply(fresh)
	return nil
}

// Apply records fresh store data. The working entries are replaced with it
// unless a session holds this copy.
func (c *Copy) Apply(fresh []model.Entry) {
	fresh = placeholder.FilterReal(fresh)

	c.mu.Lock()
	c.authoritative = clone(fresh)
	changed := false
	if c.held {
		c.staleWhileHeld = true
	} else {
		c.working = clone(fresh)
		changed = true
	}
	first := !c.seeded
	c.seeded = true
	c.mu.Unlock()

	if first {
		close(c.ready)
	}
	if changed {
		c.changed()
	}
}

// Hold gives a drag session ownership of the working entries.
func (c *Copy) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = true
}

// Release ends a hold. The working entries are reset to the store data when
// restore is set or when store data arrived during the hold; otherwise they
// stay as they are until the next notification.
func (c *Copy) Release(restore bool) {
	c.mu.Lock()
	if !c.held {
		c.mu.Unlock()
		return
	}
	c.held = false
	reseed := restore || c.staleWhileHeld
	c.staleWhileHeld = false
	if reseed {
		c.working = clone(c.authoritative)
	}
	c.mu.Unlock()

	if reseed {
		c.changed()
	}
}

func (c *Copy) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// ProvisionalReorder replaces the working entries with raw minus any
// placeholders. Nothing is persisted.
func (c *Copy) ProvisionalReorder(raw []model.Entry) []model.Entry {
	filtered := placeholder.FilterReal(raw)
	c.mu.Lock()
	c.working = clone(filtered)
	c.mu.Unlock()
	c.changed()
	return filtered
}

// Restore resets the working entries to the last store data.
func (c *Copy) Restore() {
	c.mu.Lock()
	c.working = clone(c.authoritative)
	c.mu.Unlock()
	c.changed()
}

func (c *Copy) Entries() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.working)
}

func (c *Copy) Authoritative() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.authoritative)
}

// Keys returns the keys of the working entries in order.
func (c *Copy) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.working))
	for _, e := range c.working {
		out = append(out, e.Key)
	}
	return out
}

// Converged reports whether the working entries match the store data.
func (c *Copy) Converged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.working) != len(c.authoritative) {
		return false
	}
	for i := range c.working {
		if c.working[i].Key != c.authoritative[i].Key {
			return false
		}
	}
	return true
}

// Run refreshes the copy once, then again on every signal until signals is
// closed or ctx is done.
func (c *Copy) Run(ctx context.Context, signals <-chan struct{}) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.Warn("working copy seed failed", "scope", c.scope.Key(), "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("working copy refresh failed", "scope", c.scope.Key(), "err", err)
			}
		}
	}
}

func (c *Copy) changed() {
	if c.onChange != nil {
		c.onChange(c.scope)
	}
}

func clone(in []model.Entry) []model.Entry {
	out := make([]model.Entry, len(in))
	copy(out, in)
	return out
}
