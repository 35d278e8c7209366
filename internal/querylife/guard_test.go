package querylife

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
	"planner-cli/internal/store"
)

type fixture struct {
	store *store.Store
	known map[model.ID]bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{store: s, known: map[model.ID]bool{}}
}

func (f *fixture) container(t *testing.T) model.Container {
	t.Helper()
	c, err := f.store.CreateContainer(context.Background(), 0, nil)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	f.known[c.ID] = true
	return c
}

func (f *fixture) guard(ctx context.Context) *Guard {
	return New(ctx, f.store, f.store, func(id model.ID) bool { return f.known[id] })
}

func waitReady(t *testing.T, g *Guard) {
	t.Helper()
	select {
	case <-g.Current().Copy.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription never seeded")
	}
}

func TestBind_RefusesPlaceholderWithoutSubscribing(t *testing.T) {
	f := newFixture(t)
	g := f.guard(context.Background())
	defer g.Close()

	if got := g.Bind(placeholder.ShadowKey(0)); got != Refused {
		t.Fatalf("Bind(shadow) = %v, want refused", got)
	}
	if got := g.Bind("0042"); got != Refused {
		t.Fatalf("Bind(non-canonical) = %v, want refused", got)
	}
	if g.Current() != nil || !g.Loading() {
		t.Fatalf("placeholder must not create a subscription")
	}
}

func TestBind_RefusesUnknownContainer(t *testing.T) {
	f := newFixture(t)
	g := f.guard(context.Background())
	defer g.Close()

	if got := g.Bind("12345"); got != Refused {
		t.Fatalf("Bind(unknown) = %v, want refused", got)
	}
	if n := f.store.Subscribers(model.ItemsOf(12345)); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
}

func TestBind_ChurnThroughShadowPreservesSubscription(t *testing.T) {
	f := newFixture(t)
	b := f.container(t)
	if _, err := f.store.CreateItem(context.Background(), b.ID, "real"); err != nil {
		t.Fatalf("create item: %v", err)
	}
	g := f.guard(context.Background())
	defer g.Close()

	if got := g.Bind(b.ID.String()); got != Created {
		t.Fatalf("first bind = %v, want created", got)
	}
	waitReady(t, g)
	before := g.Current()
	sub := before.Subscription()

	// A drag passes a shadow identity through B's slot and then leaves.
	for i := 0; i < 5; i++ {
		if got := g.Bind(placeholder.ShadowKey(i)); got != Refused {
			t.Fatalf("bind shadow = %v", got)
		}
		if g.Loading() {
			t.Fatalf("slot reported loading during the gesture")
		}
		if got := g.Bind(b.ID.String()); got != Preserved {
			t.Fatalf("bind back = %v, want preserved", got)
		}
	}
	if g.Current() != before || g.Current().Subscription() != sub {
		t.Fatalf("subscription recreated under churn")
	}
	if n := f.store.Subscribers(model.ItemsOf(b.ID)); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	if g.ID() != b.ID {
		t.Fatalf("guard id = %v", g.ID())
	}
}

func TestBind_DifferentValidIdentityRecreates(t *testing.T) {
	f := newFixture(t)
	a := f.container(t)
	b := f.container(t)

	var outcomes []Outcome
	g := New(context.Background(), f.store, f.store, func(id model.ID) bool { return f.known[id] },
		WithOutcomeHook(func(o Outcome) { outcomes = append(outcomes, o) }))
	defer g.Close()

	g.Bind(a.ID.String())
	if got := g.Bind(b.ID.String()); got != Recreated {
		t.Fatalf("bind = %v, want recreated", got)
	}
	if n := f.store.Subscribers(model.ItemsOf(a.ID)); n != 0 {
		t.Fatalf("old subscription leaked: %d", n)
	}
	if n := f.store.Subscribers(model.ItemsOf(b.ID)); n != 1 {
		t.Fatalf("new subscription missing: %d", n)
	}
	if len(outcomes) != 2 || outcomes[0] != Created || outcomes[1] != Recreated {
		t.Fatalf("outcomes = %v", outcomes)
	}

	g.Close()
	g.Close()
	if n := f.store.Subscribers(model.ItemsOf(b.ID)); n != 0 {
		t.Fatalf("subscription after close: %d", n)
	}
}
