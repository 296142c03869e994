// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collector accumulates callback invocations for assertions.
type collector struct {
	mu      sync.Mutex
	calls   int
	changed [][]string
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 16)}
}

func (c *collector) onChange(_ context.Context, changed []string) error {
	c.mu.Lock()
	c.calls++
	c.changed = append(c.changed, changed)
	c.mu.Unlock()
	c.signal <- struct{}{}
	return nil
}

func (c *collector) snapshot() (int, [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, c.changed
}

// startWatcher runs w until the test ends.
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
}

func waitSignal(t *testing.T, c *collector) {
	t.Helper()
	select {
	case <-c.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestCoalescedBatchesRapidEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := newCollector()
	w, err := New(Config{
		BaseDir:  dir,
		Coalesce: true,
		Debounce: 150 * time.Millisecond,
		Stderr:   &bytes.Buffer{},
		OnChange: c.onChange,
	})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, w)

	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		// Separate fsnotify events, all inside the debounce window.
		time.Sleep(10 * time.Millisecond)
	}
	waitSignal(t, c)

	calls, changed := c.snapshot()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 coalesced callback", calls)
	}
	if len(changed[0]) != 3 {
		t.Errorf("changed = %v, want all three files in one batch", changed[0])
	}
}

func TestImmediateDispatchesPerEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := newCollector()
	w, err := New(Config{
		BaseDir:  dir,
		Stderr:   &bytes.Buffer{},
		OnChange: c.onChange,
	})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(dir, "index.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitSignal(t, c)

	_, changed := c.snapshot()
	if len(changed) == 0 || len(changed[0]) != 1 || changed[0][0] != "index.ts" {
		t.Errorf("changed = %v, want single-path callbacks", changed)
	}
}

func TestIgnoresBuildOutputDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, sub := range []string{"src", "cjs", "esm"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	c := newCollector()
	w, err := New(Config{
		BaseDir:  dir,
		Ignore:   []string{"cjs/**", "esm/**"},
		Stderr:   &bytes.Buffer{},
		OnChange: c.onChange,
	})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(dir, "cjs", "index.cjs"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "index.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitSignal(t, c)

	_, changed := c.snapshot()
	for _, batch := range changed {
		for _, p := range batch {
			if filepath.ToSlash(p) == "cjs/index.cjs" {
				t.Errorf("ignored output path triggered callback: %v", changed)
			}
		}
	}
}

func TestPatternsFilterEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := newCollector()
	w, err := New(Config{
		BaseDir:  dir,
		Patterns: []string{"**/*.ts"},
		Stderr:   &bytes.Buffer{},
		OnChange: c.onChange,
	})
	if err != nil {
		t.Fatal(err)
	}
	startWatcher(t, w)

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.ts"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitSignal(t, c)

	_, changed := c.snapshot()
	for _, batch := range changed {
		for _, p := range batch {
			if p == "notes.md" {
				t.Errorf("non-matching path triggered callback: %v", changed)
			}
		}
	}
}

func TestDefaultIgnoresCoverToolNoise(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want bool
	}{
		{"node_modules/react/index.js", true},
		{".git/HEAD", true},
		{"src/index.ts.swp", true},
		{"tsconfig.tsbuildinfo", true},
		{"src/index.ts", false},
		{"package.json", false},
	}
	for _, tt := range tests {
		if got := matchAny(defaultIgnores, tt.rel); got != tt.want {
			t.Errorf("matchAny(defaults, %q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseDir: t.TempDir(), Patterns: []string{"[unclosed"}})
	if err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestRunTwiceFails(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir(), Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("second Run should fail")
	}
}
