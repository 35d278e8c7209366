package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"planner-cli/internal/model"
)

func TestSubscription_CoalescesAndCloses(t *testing.T) {
	s := openTestStore(t)
	a := mustContainer(t, s, 0, "A")

	sub := s.Subscribe(model.ItemsOf(a.ID))
	if got := s.Subscribers(model.ItemsOf(a.ID)); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}

	mustItem(t, s, a.ID, "x")
	mustItem(t, s, a.ID, "y")
	expectSignal(t, sub)
	expectNoSignal(t, sub)

	sub.Close()
	sub.Close()
	if got := s.Subscribers(model.ItemsOf(a.ID)); got != 0 {
		t.Fatalf("subscribers after close = %d, want 0", got)
	}
	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel")
	}
	mustItem(t, s, a.ID, "z")
}

func TestSubscription_OtherScopesNotSignalled(t *testing.T) {
	s := openTestStore(t)
	a := mustContainer(t, s, 0, "A")
	b := mustContainer(t, s, 0, "B")

	subB := s.Subscribe(model.ItemsOf(b.ID))
	defer subB.Close()
	mustItem(t, s, a.ID, "x")
	expectNoSignal(t, subB)
}

func TestOnCommit_LocalOnly(t *testing.T) {
	s := openTestStore(t)
	var got []model.Scope
	s.OnCommit(func(scopes []model.Scope) { got = append(got, scopes...) })

	c := mustContainer(t, s, 1, "A")
	s.Invalidate(model.ItemsOf(c.ID))
	if len(got) != 1 || got[0] != model.Column(1) {
		t.Fatalf("commit listener saw %v", got)
	}
}

func TestWatch_ExternalWriteInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.sqlite")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	other, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	defer other.Close()

	sub := s.Subscribe(model.Column(0))
	defer sub.Close()
	if err := s.Watch(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("watch: %v", err)
	}

	if _, err := other.CreateContainer(ctx, 0, nil); err != nil {
		t.Fatalf("create via other handle: %v", err)
	}
	expectSignal(t, sub)
}
