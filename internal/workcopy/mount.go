package workcopy

import (
	"context"
	"sync"

	"planner-cli/internal/model"
	"planner-cli/internal/store"
)

// Subscriber opens change subscriptions for a scope.
type Subscriber interface {
	Subscribe(scope model.Scope) *store.Subscription
}

// Mount is a live working copy: a Copy kept fresh by a store subscription.
// Its lifetime is the scope's mount; Unmount releases both.
type Mount struct {
	Copy *Copy

	sub    *store.Subscription
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewMount subscribes to scope and starts refreshing a new Copy from it.
func NewMount(ctx context.Context, scope model.Scope, loader Loader, subs Subscriber, opts ...Option) *Mount {
	ctx, cancel := context.WithCancel(ctx)
	m := &Mount{
		Copy:   New(scope, loader, opts...),
		sub:    subs.Subscribe(scope),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(m.done)
		m.Copy.Run(ctx, m.sub.C)
	}()
	return m
}

func (m *Mount) Scope() model.Scope { return m.Copy.Scope() }

// Subscription exposes the live subscription (identity checks in tests).
func (m *Mount) Subscription() *store.Subscription { return m.sub }

// Loading reports whether the first store data has not arrived yet.
func (m *Mount) Loading() bool {
	select {
	case <-m.Copy.Ready():
		return false
	default:
		return true
	}
}

// Unmount stops refreshing and closes the subscription. Idempotent.
func (m *Mount) Unmount() {
	m.once.Do(func() {
		m.cancel()
		m.sub.Close()
		<-m.done
	})
}
