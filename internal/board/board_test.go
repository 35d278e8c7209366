package board

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"planner-cli/internal/drag"
	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
	"planner-cli/internal/querylife"
	"planner-cli/internal/store"
)

type fixture struct {
	st    *store.Store
	board *Board
}

func newFixture(t *testing.T, columns int) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	b := New(ctx, st, WithColumns(columns))
	t.Cleanup(func() {
		b.Close()
		_ = st.Close()
	})
	return &fixture{st: st, board: b}
}

func (f *fixture) container(t *testing.T, column int) model.Container {
	t.Helper()
	c, err := f.st.CreateContainer(context.Background(), column, nil)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	return c
}

func (f *fixture) item(t *testing.T, container model.ID, text string) model.Item {
	t.Helper()
	it, err := f.st.CreateItem(context.Background(), container, text)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

// orders returns text -> persisted order for container.
func (f *fixture) orders(t *testing.T, container model.ID) map[string]int {
	t.Helper()
	items, err := f.st.ListItems(context.Background(), container, store.ListOptions{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	out := map[string]int{}
	for _, it := range items {
		out[it.Text] = it.Order
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNudge_MoveUpRewritesDenseOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	f.item(t, a.ID, "x")
	f.item(t, a.ID, "y")
	z := f.item(t, a.ID, "z")

	if _, err := f.board.Nudge(context.Background(), model.KindItem, z.ID, model.Up); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if _, err := f.board.Nudge(context.Background(), model.KindItem, z.ID, model.Up); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	want := map[string]int{"z": 0, "x": 1, "y": 2}
	if got := f.orders(t, a.ID); !reflect.DeepEqual(got, want) {
		t.Fatalf("orders = %v, want %v", got, want)
	}

	c, err := f.board.Acquire(model.ItemsOf(a.ID))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitFor(t, "working copy to converge", func() bool {
		keys := c.Keys()
		return c.Converged() && len(keys) == 3 && keys[0] == z.ID.String()
	})
}

func TestNudge_DownFromLastItemCreatesContainer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	first := f.container(t, 0)
	f.item(t, first.ID, "a")
	last := f.container(t, 1)
	f.item(t, last.ID, "w")
	y := f.item(t, last.ID, "y")

	s, err := f.board.Nudge(context.Background(), model.KindItem, y.ID, model.Down)
	if err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if !s.NewContainer || s.NewColumn != 1 {
		t.Fatalf("session = %+v", s)
	}

	cols, err := f.st.ListContainers(context.Background(), 1, store.ListOptions{})
	if err != nil {
		t.Fatalf("list containers: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("column 1 has %d containers, want 2", len(cols))
	}
	created := cols[1]
	if created.Name != nil || created.Order != 1 {
		t.Fatalf("created container = %+v", created)
	}
	if s.Created == nil || s.Created.ID != created.ID || s.Target != model.ItemsOf(created.ID) {
		t.Fatalf("reported created = %+v, target %s", s.Created, s.Target)
	}
	if got := f.orders(t, created.ID); !reflect.DeepEqual(got, map[string]int{"y": 0}) {
		t.Fatalf("new container orders = %v", got)
	}
	if got := f.orders(t, last.ID); !reflect.DeepEqual(got, map[string]int{"w": 0}) {
		t.Fatalf("source orders = %v", got)
	}
	if !f.board.Mounted(model.ItemsOf(created.ID)) {
		t.Fatalf("new container should be mounted")
	}
}

func TestNudge_ReportsItsOwnCreatedContainer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	x := f.item(t, a.ID, "x")

	s, err := f.board.Nudge(context.Background(), model.KindItem, x.ID, model.Down)
	if err != nil {
		t.Fatalf("nudge: %v", err)
	}
	// Another writer appends a list after the nudge created its own.
	later := f.container(t, 0)
	if s.Created == nil || s.Created.ID == later.ID {
		t.Fatalf("created = %+v, later list %d", s.Created, later.ID)
	}
	if got := f.orders(t, s.Created.ID); !reflect.DeepEqual(got, map[string]int{"x": 0}) {
		t.Fatalf("created container orders = %v", got)
	}

	// Moves that create nothing report nothing.
	s, err = f.board.Nudge(context.Background(), model.KindItem, x.ID, model.Up)
	if err != nil {
		t.Fatalf("nudge up: %v", err)
	}
	if s.Created != nil {
		t.Fatalf("created = %+v", s.Created)
	}
}

func TestNudge_CrossesToNextContainerAndColumn(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	a := f.container(t, 0)
	x := f.item(t, a.ID, "x")
	b := f.container(t, 1)
	f.item(t, b.ID, "p")

	s, err := f.board.Nudge(context.Background(), model.KindItem, x.ID, model.Down)
	if err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if s.Target != model.ItemsOf(b.ID) || s.Index != 0 {
		t.Fatalf("session = %+v", s)
	}
	if got := f.orders(t, b.ID); !reflect.DeepEqual(got, map[string]int{"x": 0, "p": 1}) {
		t.Fatalf("dest orders = %v", got)
	}
	if got := f.orders(t, a.ID); len(got) != 0 {
		t.Fatalf("source orders = %v", got)
	}
}

func TestNudge_UnassignedDownEntersFirstContainer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	only := f.container(t, 1)
	f.item(t, only.ID, "p")
	loose := f.item(t, 0, "loose")

	s, err := f.board.Nudge(context.Background(), model.KindItem, loose.ID, model.Down)
	if err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if s.NewContainer || s.Target != model.ItemsOf(only.ID) || s.Index != 0 {
		t.Fatalf("session = %+v", s)
	}
	if got := f.orders(t, only.ID); !reflect.DeepEqual(got, map[string]int{"loose": 0, "p": 1}) {
		t.Fatalf("dest orders = %v", got)
	}
	var total int
	for col := 0; col < 2; col++ {
		cs, err := f.st.ListContainers(context.Background(), col, store.ListOptions{})
		if err != nil {
			t.Fatalf("list containers: %v", err)
		}
		total += len(cs)
	}
	if total != 1 {
		t.Fatalf("containers = %d, want 1", total)
	}

	// Nothing sits above the unassigned items.
	other := f.item(t, 0, "other")
	s, err = f.board.Nudge(context.Background(), model.KindItem, other.ID, model.Up)
	if err != nil {
		t.Fatalf("nudge up: %v", err)
	}
	if s.Target != model.ItemsOf(0) || s.NewContainer {
		t.Fatalf("session = %+v", s)
	}
}

func TestNudge_ContainerBetweenColumns(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 2)
	a := f.container(t, 0)
	f.container(t, 1)

	if _, err := f.board.Nudge(context.Background(), model.KindContainer, a.ID, model.Down); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	got, err := f.st.GetContainer(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ColumnIndex != 1 || got.Order != 0 {
		t.Fatalf("container = %+v", got)
	}
	// Below the other container, then nowhere further: containers never
	// spill past the last column.
	for i := 0; i < 2; i++ {
		if _, err := f.board.Nudge(context.Background(), model.KindContainer, a.ID, model.Down); err != nil {
			t.Fatalf("nudge %d: %v", i, err)
		}
	}
	got, err = f.st.GetContainer(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ColumnIndex != 1 || got.Order != 1 {
		t.Fatalf("container = %+v", got)
	}
}

type trackingWriter struct {
	orderWriter
	mu     sync.Mutex
	active map[model.Scope]int
	max    int
	calls  atomic.Int32
	fail   atomic.Int32
}

func (w *trackingWriter) enter(scopes ...model.Scope) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		w.active = map[model.Scope]int{}
	}
	for _, s := range scopes {
		w.active[s]++
		if w.active[s] > w.max {
			w.max = w.active[s]
		}
	}
}

func (w *trackingWriter) leave(scopes ...model.Scope) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range scopes {
		w.active[s]--
	}
}

func (w *trackingWriter) Move(ctx context.Context, id model.ID, from, to model.Scope, destIndex int) error {
	w.calls.Add(1)
	scopes := []model.Scope{from}
	if to != from {
		scopes = append(scopes, to)
	}
	w.enter(scopes...)
	defer w.leave(scopes...)
	time.Sleep(2 * time.Millisecond)
	if w.fail.Load() > 0 {
		w.fail.Add(-1)
		return errors.New("database is locked")
	}
	return w.orderWriter.Move(ctx, id, from, to, destIndex)
}

func TestCommit_AtMostOneWriterPerScope(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	var items []model.Item
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		items = append(items, f.item(t, a.ID, s))
	}
	w := &trackingWriter{orderWriter: f.st}
	f.board.writer = w

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			it := items[i%len(items)]
			err := f.board.Commit(context.Background(), drag.Commit{
				Subject: it.ID,
				Kind:    model.KindItem,
				From:    model.ItemsOf(a.ID),
				To:      model.ItemsOf(a.ID),
				Index:   (i * 3) % len(items),
			})
			if err != nil {
				t.Errorf("commit %d: %v", i, err)
			}
		}()
	}
	wg.Wait()

	if w.max != 1 {
		t.Fatalf("max concurrent writers = %d, want 1", w.max)
	}
	if w.calls.Load() != 20 {
		t.Fatalf("calls = %d", w.calls.Load())
	}
	orders := f.orders(t, a.ID)
	seen := map[int]bool{}
	for _, o := range orders {
		seen[o] = true
	}
	for i := 0; i < len(items); i++ {
		if !seen[i] {
			t.Fatalf("orders not dense: %v", orders)
		}
	}
}

func TestCommit_GivesUpWhenScopeBusy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	x := f.item(t, a.ID, "x")

	sem := f.board.lock(model.ItemsOf(a.ID))
	if !sem.TryAcquire(1) {
		t.Fatalf("lock should be free")
	}
	defer sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.board.Commit(ctx, drag.Commit{Subject: x.ID, Kind: model.KindItem, From: model.ItemsOf(a.ID), To: model.ItemsOf(a.ID)})
	var cce *ConcurrentCommitError
	if !errors.As(err, &cce) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want ConcurrentCommitError", err)
	}
	if got := testutil.ToFloat64(f.board.Metrics().QueueWaits); got != 1 {
		t.Fatalf("queue waits = %v", got)
	}
}

func TestNudge_RetriesOnceOnTransientFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	f.item(t, a.ID, "x")
	y := f.item(t, a.ID, "y")
	w := &trackingWriter{orderWriter: f.st}
	w.fail.Store(1)
	f.board.writer = w

	if _, err := f.board.Nudge(context.Background(), model.KindItem, y.ID, model.Up); err != nil {
		t.Fatalf("nudge: %v", err)
	}
	if got := f.orders(t, a.ID); !reflect.DeepEqual(got, map[string]int{"y": 0, "x": 1}) {
		t.Fatalf("orders = %v", got)
	}
	if got := testutil.ToFloat64(f.board.Metrics().CommitRetries); got != 1 {
		t.Fatalf("retries = %v", got)
	}
}

func TestNudge_RevertsAfterSecondFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	f.item(t, a.ID, "x")
	y := f.item(t, a.ID, "y")
	w := &trackingWriter{orderWriter: f.st}
	w.fail.Store(2)
	f.board.writer = w

	_, err := f.board.Nudge(context.Background(), model.KindItem, y.ID, model.Up)
	var pf *drag.PersistenceFailure
	if !errors.As(err, &pf) || !pf.Reverted {
		t.Fatalf("err = %v, want reverted failure", err)
	}
	c, err := f.board.Acquire(model.ItemsOf(a.ID))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !c.Converged() || c.Held() {
		t.Fatalf("working copy not restored: %v", c.Keys())
	}
	if got := testutil.ToFloat64(f.board.Metrics().Reverts); got != 1 {
		t.Fatalf("reverts = %v", got)
	}
}

func TestSlot_ShadowDuringDragKeepsSubscription(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	x := f.item(t, a.ID, "x")
	b := f.container(t, 0)
	p := f.item(t, b.ID, "p")
	ctx := context.Background()
	if err := f.board.MountAll(ctx); err != nil {
		t.Fatalf("mount all: %v", err)
	}

	slot := f.board.Slot()
	defer slot.Close()
	if got := slot.Bind(b.ID.String()); got != querylife.Created {
		t.Fatalf("bind = %v", got)
	}
	waitFor(t, "slot seeded", func() bool { return !slot.Loading() })
	sub := slot.Current().Subscription()
	before := f.st.Subscribers(model.ItemsOf(b.ID))

	m := f.board.Machine()
	if _, err := m.Start(x.ID, model.KindItem, model.ItemsOf(a.ID), drag.Pointer); err != nil {
		t.Fatalf("start: %v", err)
	}
	shadow := model.Entry{Key: placeholder.ShadowKey(0), Shadow: true}
	feed := []model.Entry{{Key: p.ID.String()}, shadow}
	if err := m.Consider(model.ItemsOf(b.ID), feed); err != nil {
		t.Fatalf("consider: %v", err)
	}
	for _, key := range []string{shadow.Key, b.ID.String(), shadow.Key, b.ID.String()} {
		slot.Bind(key)
		if slot.Current().Subscription() != sub {
			t.Fatalf("subscription replaced after binding %q", key)
		}
		if slot.Loading() {
			t.Fatalf("slot reported loading after binding %q", key)
		}
	}
	if err := m.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.st.Subscribers(model.ItemsOf(b.ID)); got != before {
		t.Fatalf("subscribers = %d, want %d", got, before)
	}
	if got := testutil.ToFloat64(f.board.Metrics().Refusals); got != 2 {
		t.Fatalf("refusals = %v", got)
	}
}

func TestUnmount_RefusesScopeHeldByDrag(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 1)
	a := f.container(t, 0)
	x := f.item(t, a.ID, "x")

	if _, err := f.board.Machine().Start(x.ID, model.KindItem, model.ItemsOf(a.ID), drag.Keyboard); err != nil {
		t.Fatalf("start: %v", err)
	}
	if f.board.Unmount(model.ItemsOf(a.ID)) {
		t.Fatalf("unmounted a scope owned by the drag session")
	}
	_ = f.board.Machine().Cancel()
	if !f.board.Unmount(model.ItemsOf(a.ID)) {
		t.Fatalf("unmount after cancel failed")
	}
}
