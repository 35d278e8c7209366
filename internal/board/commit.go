package board

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"planner-cli/internal/drag"
	"planner-cli/internal/model"
	"planner-cli/internal/store"
)

// Commit writes an order change. Writes touching a scope are serialized: a
// commit waits for any earlier write on any of its scopes, or gives up with
// *ConcurrentCommitError when ctx ends first.
func (b *Board) Commit(ctx context.Context, c drag.Commit) error {
	start := time.Now()
	scopes := c.Scopes()
	release, err := b.lockScopes(ctx, scopes)
	if err != nil {
		b.metrics.Commits.WithLabelValues(string(c.Kind), "contended").Inc()
		return err
	}
	defer release()

	err = b.write(ctx, c)
	b.metrics.CommitSeconds.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		b.metrics.Commits.WithLabelValues(string(c.Kind), "ok").Inc()
		b.log.Info("order committed", "session", c.SessionID, "subject", c.Subject, "from", c.From.Key(), "to", c.To.Key(), "index", c.Index)
	default:
		b.metrics.Commits.WithLabelValues(string(c.Kind), "error").Inc()
		b.log.Warn("order commit failed", "session", c.SessionID, "subject", c.Subject, "err", err)
	}
	return err
}

func (b *Board) write(ctx context.Context, c drag.Commit) error {
	switch {
	case c.NewContainerColumn != nil:
		created, err := b.writer.MoveToNewContainer(ctx, c.Subject, c.From, *c.NewContainerColumn)
		if err != nil {
			return err
		}
		b.createdMu.Lock()
		b.created[c.SessionID] = created
		b.createdMu.Unlock()
		// Mount the new container so the next render finds it seeded.
		if _, err := b.mount(model.ItemsOf(created.ID)); err != nil {
			b.log.Debug("mount new container", "id", created.ID, "err", err)
		}
		return nil
	case c.SameScope() && c.Ordering != nil:
		return b.writer.Write(ctx, c.From, c.Ordering)
	default:
		return b.writer.Move(ctx, c.Subject, c.From, c.To, c.Index)
	}
}

// lockScopes takes the write slot of every scope, in key order so two
// commits over the same pair never wait on each other crosswise.
func (b *Board) lockScopes(ctx context.Context, scopes []model.Scope) (func(), error) {
	scopes = append([]model.Scope(nil), scopes...)
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Key() < scopes[j].Key() })

	var held []*semaphore.Weighted
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}
	for i, scope := range scopes {
		if i > 0 && scope == scopes[i-1] {
			continue
		}
		sem := b.lock(scope)
		if !sem.TryAcquire(1) {
			b.metrics.QueueWaits.Inc()
			if err := sem.Acquire(ctx, 1); err != nil {
				release()
				return nil, &ConcurrentCommitError{Scopes: scopes, Err: err}
			}
		}
		held = append(held, sem)
	}
	return release, nil
}

func (b *Board) lock(scope model.Scope) *semaphore.Weighted {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	sem, ok := b.locks[scope]
	if !ok {
		sem = semaphore.NewWeighted(1)
		b.locks[scope] = sem
	}
	return sem
}

// NudgeResult is the finished keyboard session of a nudge. Created is set
// when the move made a new container.
type NudgeResult struct {
	drag.Session
	Created *model.Container
}

// Nudge moves one item or container a single step in dir, crossing into the
// neighboring scope at a boundary, and commits it. A move down past the last
// item on the board creates a new container for it.
func (b *Board) Nudge(ctx context.Context, kind model.Kind, id model.ID, dir model.Direction) (NudgeResult, error) {
	origin, err := b.scopeOf(ctx, kind, id)
	if err != nil {
		return NudgeResult{}, err
	}
	// Start from the store's current ranking, not a copy awaiting refresh.
	c, err := b.Acquire(origin)
	if err != nil {
		return NudgeResult{}, err
	}
	if err := c.Refresh(ctx); err != nil {
		return NudgeResult{}, err
	}
	if _, err := b.machine.Start(id, kind, origin, drag.Keyboard); err != nil {
		return NudgeResult{}, err
	}
	if err := b.machine.Step(dir); err != nil {
		_ = b.machine.Cancel()
		return NudgeResult{}, err
	}
	s, _ := b.machine.Session()
	res := NudgeResult{Session: s}
	defer b.forgetCreated(s.ID)
	if err := b.machine.Drop(ctx); err != nil {
		var pf *drag.PersistenceFailure
		if errors.As(err, &pf) && pf.Retryable {
			b.metrics.CommitRetries.Inc()
			err = b.machine.Drop(ctx)
		}
		if err != nil {
			if errors.As(err, &pf) && pf.Reverted {
				b.metrics.Reverts.Inc()
			}
			return res, err
		}
	}
	if created, ok := b.forgetCreated(s.ID); ok {
		res.Created = &created
		res.Target = model.ItemsOf(created.ID)
		res.Index = 0
	}
	return res, nil
}

func (b *Board) forgetCreated(session string) (model.Container, bool) {
	b.createdMu.Lock()
	defer b.createdMu.Unlock()
	c, ok := b.created[session]
	delete(b.created, session)
	return c, ok
}

// Drop commits the interactive session, counting retries and reverts.
func (b *Board) Drop(ctx context.Context) error {
	s, ok := b.machine.Session()
	err := b.observe(b.machine.Drop(ctx))
	if ok {
		b.forgetCreated(s.ID)
	}
	return err
}

// Finalize passes a pointer gesture's final ordering for scope to the
// session; the scope that gains the subject commits.
func (b *Board) Finalize(ctx context.Context, scope model.Scope, ordered []model.Entry) error {
	return b.observe(b.machine.Finalize(ctx, scope, ordered))
}

func (b *Board) observe(err error) error {
	var pf *drag.PersistenceFailure
	if errors.As(err, &pf) {
		if pf.Retryable {
			b.metrics.CommitRetries.Inc()
		}
		if pf.Reverted {
			b.metrics.Reverts.Inc()
		}
	}
	return err
}

func (b *Board) scopeOf(ctx context.Context, kind model.Kind, id model.ID) (model.Scope, error) {
	switch kind {
	case model.KindItem:
		it, err := b.store.GetItem(ctx, id)
		if err != nil {
			return model.Scope{}, err
		}
		if !it.Ranked() {
			return model.Scope{}, store.ScopeMismatchError{Scope: itemsScope(it), ID: id, Reason: "not ranked"}
		}
		return itemsScope(it), nil
	case model.KindContainer:
		c, err := b.store.GetContainer(ctx, id)
		if err != nil {
			return model.Scope{}, err
		}
		if !c.Ranked() {
			return model.Scope{}, store.ScopeMismatchError{Scope: model.Column(c.ColumnIndex), ID: id, Reason: "not ranked"}
		}
		return model.Column(c.ColumnIndex), nil
	}
	return model.Scope{}, errors.New("unknown kind: " + string(kind))
}

func itemsScope(it model.Item) model.Scope {
	if it.ParentID == nil {
		return model.ItemsOf(0)
	}
	return model.ItemsOf(*it.ParentID)
}
