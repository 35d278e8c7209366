package workcopy

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"planner-cli/internal/model"
	"planner-cli/internal/store"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestMount_FollowsStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	c, err := s.CreateContainer(ctx, 0, nil)
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	x, _ := s.CreateItem(ctx, c.ID, "x")

	m := NewMount(ctx, model.ItemsOf(c.ID), s, s)
	defer m.Unmount()

	select {
	case <-m.Copy.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("mount never became ready")
	}
	if m.Loading() {
		t.Fatalf("mount still loading after ready")
	}
	if got := m.Copy.Keys(); !reflect.DeepEqual(got, []string{x.ID.String()}) {
		t.Fatalf("keys = %v", got)
	}

	y, _ := s.CreateItem(ctx, c.ID, "y")
	waitFor(t, "new item in working copy", func() bool {
		return reflect.DeepEqual(m.Copy.Keys(), []string{x.ID.String(), y.ID.String()})
	})

	m.Unmount()
	m.Unmount()
	if n := s.Subscribers(model.ItemsOf(c.ID)); n != 0 {
		t.Fatalf("subscribers after unmount = %d", n)
	}
}
