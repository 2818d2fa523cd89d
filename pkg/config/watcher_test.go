package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchConfigSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	other := filepath.Join(dir, "notes.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := WatchConfig(ctx, path)

	// Unwatched files in the same directory are ignored.
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-reloads:
		t.Fatal("unexpected reload for an unwatched file")
	case <-time.After(reloadDebounce + 300*time.Millisecond):
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"log_level":"debug"}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case _, ok := <-reloads:
		if !ok {
			t.Fatal("channel closed before a reload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after writing the watched file")
	}

	cancel()
	select {
	case _, ok := <-reloads:
		if ok {
			// a pending signal may still be buffered
			if _, ok := <-reloads; ok {
				t.Fatal("channel should close after cancel")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
