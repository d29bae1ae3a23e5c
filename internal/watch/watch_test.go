package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestIsLogFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/logs/2024-03-01_12-00-00_000.json", true},
		{"/logs/UPPER.JSON", true},
		{"/logs/.hidden.json", false},
		{"/logs/note.txt", false},
		{"/logs/archive.json.zst", false},
	}
	for _, tt := range tests {
		if got := isLogFile(tt.path); got != tt.want {
			t.Errorf("isLogFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// collector records handled paths.
type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) handle(_ context.Context, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
}

func (c *collector) wait(t *testing.T, n int, timeout time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.paths) >= n {
			out := append([]string(nil), c.paths...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t.Fatalf("timed out waiting for %d events, have %d", n, len(c.paths))
	return nil
}

func TestWatcherHandlesNewLog(t *testing.T) {
	dir := t.TempDir()
	var c collector
	w := New(dir, 50*time.Millisecond, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	logPath := filepath.Join(dir, "a.json")
	if err := os.WriteFile(logPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := c.wait(t, 1, 3*time.Second)
	if paths[0] != logPath {
		t.Errorf("handled %s, want %s", paths[0], logPath)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.paths {
		if filepath.Ext(p) == ".txt" {
			t.Errorf("non-log file handled: %s", p)
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var c collector
	w := New(dir, 150*time.Millisecond, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	logPath := filepath.Join(dir, "burst.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(logPath, []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	c.wait(t, 1, 3*time.Second)
	// Let any stray timers fire.
	time.Sleep(300 * time.Millisecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.paths) != 1 {
		t.Errorf("burst produced %d handler calls, want 1", len(c.paths))
	}
}
