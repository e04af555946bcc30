package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string, onChange func()) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(path, onChange, nil).WithDebounce(50 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx)
	}()
	t.Cleanup(cancel)

	// give fsnotify a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	return cancel, done
}

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for n.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("onChange called %d times, want %d", n.Load(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.yaml")
	if err := os.WriteFile(path, []byte("courses: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	startWatcher(t, path, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("courses: []\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	waitCount(t, &calls, 1)

	// Let any stray timer fire, then make sure the burst counted once
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times for one burst, want 1", got)
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courses.yaml")

	var calls atomic.Int32
	startWatcher(t, path, func() { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("onChange called %d times for another file, want 0", got)
	}

	// Creating the watched file counts
	if err := os.WriteFile(path, []byte("courses: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitCount(t, &calls, 1)
}

func TestWatchStopsOnCancel(t *testing.T) {
	cancel, done := startWatcher(t, filepath.Join(t.TempDir(), "courses.yaml"), func() {})
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "courses.yaml"), func() {}, nil)
	if err := w.Watch(context.Background()); err == nil {
		t.Error("Watch() should fail when the directory does not exist")
	}
}
