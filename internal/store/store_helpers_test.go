package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"planner-cli/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustContainer(t *testing.T, s *Store, column int, name string) model.Container {
	t.Helper()
	var n *string
	if name != "" {
		n = &name
	}
	c, err := s.CreateContainer(context.Background(), column, n)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	return c
}

func mustItem(t *testing.T, s *Store, container model.ID, text string) model.Item {
	t.Helper()
	it, err := s.CreateItem(context.Background(), container, text)
	if err != nil {
		t.Fatalf("create item %q: %v", text, err)
	}
	return it
}

// itemOrder returns item texts of container in order, and fails unless their
// orders are exactly 0..n-1.
func itemOrder(t *testing.T, s *Store, container model.ID) []string {
	t.Helper()
	items, err := s.ListItems(context.Background(), container, ListOptions{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		if it.Order != i {
			t.Fatalf("container %s: item %q has order %d at index %d (not dense)", container, it.Text, it.Order, i)
		}
		out = append(out, it.Text)
	}
	return out
}

func assertItems(t *testing.T, s *Store, container model.ID, want ...string) {
	t.Helper()
	got := itemOrder(t, s, container)
	if len(want) == 0 {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("container %s items = %v, want %v", container, got, want)
	}
}

func expectSignal(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.C:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change notification for %s", sub.Scope())
	}
}

func expectNoSignal(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.C:
		t.Fatalf("unexpected change notification for %s", sub.Scope())
	default:
	}
}
