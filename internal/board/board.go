// Package board ties the store, the per-scope working copies, the drag
// machine and the commit queue into one engine for a single board.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"planner-cli/internal/drag"
	"planner-cli/internal/metrics"
	"planner-cli/internal/model"
	"planner-cli/internal/querylife"
	"planner-cli/internal/store"
	"planner-cli/internal/workcopy"
)

// DefaultColumns is the column count of a board with no configuration.
const DefaultColumns = 3

// orderWriter is the part of the store the commit queue writes through.
type orderWriter interface {
	Write(ctx context.Context, scope model.Scope, orderedIDs []model.ID) error
	Move(ctx context.Context, id model.ID, from, to model.Scope, destIndex int) error
	MoveToNewContainer(ctx context.Context, id model.ID, from model.Scope, column int) (model.Container, error)
}

type Option func(*Board)

func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Board) { b.metrics = m }
}

func WithColumns(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.columns = n
		}
	}
}

// WithOnChange registers fn to run whenever a mounted working copy or the
// drag state changes. fn must not call back into the board synchronously.
func WithOnChange(fn func(model.Scope)) Option {
	return func(b *Board) { b.onChange = fn }
}

type Board struct {
	store   *store.Store
	writer  orderWriter
	log     *slog.Logger
	metrics *metrics.Metrics
	columns int
	// onChange receives the zero Scope for drag state changes.
	onChange func(model.Scope)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	mounts map[model.Scope]*workcopy.Mount
	closed bool

	locksMu sync.Mutex
	locks   map[model.Scope]*semaphore.Weighted

	// created holds the container each session's commit created, by session id.
	createdMu sync.Mutex
	created   map[string]model.Container

	machine *drag.Machine
}

// New builds a board over st. Mounted copies live until ctx is done or
// Close is called.
func New(ctx context.Context, st *store.Store, opts ...Option) *Board {
	b := &Board{
		store:   st,
		writer:  st,
		log:     slog.Default(),
		columns: DefaultColumns,
		mounts:  map[model.Scope]*workcopy.Mount{},
		locks:   map[model.Scope]*semaphore.Weighted{},
		created: map[string]model.Container{},
	}
	for _, o := range opts {
		o(b)
	}
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.machine = drag.NewMachine(b, b, b,
		drag.WithLogger(b.log),
		drag.WithOnChange(func() { b.changed(model.Scope{}) }),
	)
	return b
}

func (b *Board) Store() *store.Store { return b.store }
func (b *Board) Machine() *drag.Machine { return b.machine }
func (b *Board) Metrics() *metrics.Metrics { return b.metrics }
func (b *Board) Columns() int { return b.columns }
func (b *Board) Logger() *slog.Logger { return b.log }

// Acquire returns the working copy of scope, mounting it on first use. It
// waits for the first store data before returning.
func (b *Board) Acquire(scope model.Scope) (*workcopy.Copy, error) {
	m, err := b.mount(scope)
	if err != nil {
		return nil, err
	}
	select {
	case <-m.Copy.Ready():
		return m.Copy, nil
	case <-b.ctx.Done():
		return nil, b.ctx.Err()
	}
}

func (b *Board) mount(scope model.Scope) (*workcopy.Mount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("board closed")
	}
	if m, ok := b.mounts[scope]; ok {
		return m, nil
	}
	m := workcopy.NewMount(b.ctx, scope, b.store, b.store,
		workcopy.WithLogger(b.log),
		workcopy.WithOnChange(b.changed),
	)
	b.mounts[scope] = m
	b.metrics.Subscriptions.Inc()
	b.log.Debug("scope mounted", "scope", scope.Key())
	return m, nil
}

// Mounted reports whether scope has a live working copy.
func (b *Board) Mounted(scope model.Scope) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.mounts[scope]
	return ok
}

// Unmount drops the working copy of scope unless a drag session owns it.
func (b *Board) Unmount(scope model.Scope) bool {
	if b.machine.Targets(scope) {
		return false
	}
	b.mu.Lock()
	m, ok := b.mounts[scope]
	delete(b.mounts, scope)
	b.mu.Unlock()
	if !ok {
		return false
	}
	m.Unmount()
	b.metrics.Subscriptions.Dec()
	b.log.Debug("scope unmounted", "scope", scope.Key())
	return true
}

// MountAll mounts every column and every ranked container's items, and the
// unassigned items, waiting until all are seeded.
func (b *Board) MountAll(ctx context.Context) error {
	containers, err := b.store.AllContainers(ctx)
	if err != nil {
		return err
	}
	scopes := []model.Scope{model.ItemsOf(0)}
	for i := 0; i < b.columns; i++ {
		scopes = append(scopes, model.Column(i))
	}
	for _, c := range containers {
		scopes = append(scopes, model.ItemsOf(c.ID))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, scope := range scopes {
		g.Go(func() error {
			m, err := b.mount(scope)
			if err != nil {
				return err
			}
			select {
			case <-m.Copy.Ready():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Slot returns a query guard for one on-screen container slot. Identities are
// checked against the authoritative container lists, never the working ones.
func (b *Board) Slot() *querylife.Guard {
	return querylife.New(b.ctx, b.store, b.store, b.knownContainer,
		querylife.WithLogger(b.log),
		querylife.WithCopyOptions(workcopy.WithLogger(b.log), workcopy.WithOnChange(b.changed)),
		querylife.WithOutcomeHook(func(o querylife.Outcome) {
			if o == querylife.Refused {
				b.metrics.Refusals.Inc()
			}
		}),
	)
}

func (b *Board) knownContainer(id model.ID) bool {
	key := id.String()
	for i := 0; i < b.columns; i++ {
		c, err := b.Acquire(model.Column(i))
		if err != nil {
			return false
		}
		for _, e := range c.Authoritative() {
			if e.Key == key {
				return true
			}
		}
	}
	return false
}

// Close cancels every session and unmounts every copy.
func (b *Board) Close() {
	_ = b.machine.Cancel()
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	mounts := b.mounts
	b.mounts = map[model.Scope]*workcopy.Mount{}
	b.mu.Unlock()

	b.cancel()
	for _, m := range mounts {
		m.Unmount()
		b.metrics.Subscriptions.Dec()
	}
}

func (b *Board) changed(scope model.Scope) {
	if b.onChange != nil {
		b.onChange(scope)
	}
}
