package raster

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
)

func TestWatcher_DebouncesMaskChanges(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(4, logAdapter.Discard)

	var calls atomic.Int32
	w := NewWatcher(dir, loader, 50*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	}, logAdapter.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		writeMask(t, filepath.Join(dir, "layer_"+string(rune('0'+i))+".png"), 4, 1, func(x, y int) bool { return true })
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Allow any stray second callback to fire before counting.
	time.Sleep(150 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("onChange called %d times, want 1", got)
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	loader := NewLoader(4, logAdapter.Discard)
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), loader, 0, func(context.Context) {}, logAdapter.Discard)
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error watching a missing directory")
	}
}
