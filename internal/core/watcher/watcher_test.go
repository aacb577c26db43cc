package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bigrogerio/daedalus/internal/engine/walker"
)

func newFilter(t *testing.T) *walker.Walker {
	t.Helper()
	w, err := walker.New(walker.Options{ExcludeDirs: []string{"exclude_dir"}, ExcludeFiles: []string{"*_test.py"}})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, newFilter(t), nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []string, 10)
	w, err := NewWatcher(100*time.Millisecond, newFilter(t), func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(ctx, []string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	dag := filepath.Join(tmpDir, "etl.py")
	if err := os.WriteFile(dag, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, dag, 2*time.Second)

	// Ignored suffixes and excluded names never show up.
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "etl_test.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		for _, p := range paths {
			if base := filepath.Base(p); base == "notes.txt" || base == "etl_test.py" {
				t.Errorf("filtered file triggered event: %s", p)
			}
		}
	case <-time.After(500 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "newdir")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "nested.py")
	if err := os.WriteFile(nested, []byte("y = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, 2*time.Second)
}
