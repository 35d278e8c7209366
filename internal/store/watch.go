package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates every subscription when the database files change on
// disk, so writes made by another process reach this one. It runs until ctx
// is done. Bursts are coalesced into one invalidation per delay.
func (s *Store) Watch(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("store: create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("store: watch %s: %w", dir, err)
	}

	base := filepath.Base(s.path)
	t := newThrottle(delay, s.InvalidateAll)

	go func() {
		defer func() { _ = watcher.Close() }()
		defer t.stop()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// An error may mean we missed events; refresh everything.
				s.log.Warn("store watcher error", "err", err)
				t.enqueue()
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Matches the db file and its -wal/-shm companions.
				if !strings.HasPrefix(filepath.Base(evt.Name), base) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				t.enqueue()
			}
		}
	}()
	return nil
}

// throttle coalesces rapid notifications into one call per delay window.
type throttle struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	fire  func()
	done  bool
}

func newThrottle(delay time.Duration, fire func()) *throttle {
	return &throttle{delay: delay, fire: fire}
}

func (t *throttle) enqueue() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.timer = nil
		done := t.done
		t.mu.Unlock()
		if !done {
			t.fire()
		}
	})
}

func (t *throttle) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
