package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUniqueRoots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	roots := UniqueRoots([]string{
		filepath.Join(dir, "b"),
		filepath.Join(dir, "a"),
		filepath.Join(dir, "a", "."),
		filepath.Join(dir, "b", "..", "b"),
	})
	expected := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	if len(roots) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, roots)
	}
	for i := range expected {
		if roots[i] != expected[i] {
			t.Fatalf("expected %q at %d, got %q", expected[i], i, roots[i])
		}
	}
}

func TestRelativeTo(t *testing.T) {
	t.Parallel()

	root := filepath.Join("/srv", "dags")
	cases := []struct {
		name     string
		root     string
		path     string
		expected string
	}{
		{name: "Inside", root: root, path: filepath.Join(root, "etl", "load.py"), expected: "etl/load.py"},
		{name: "Outside", root: root, path: filepath.Join("/srv", "other.py"), expected: "/srv/other.py"},
		{name: "Sibling prefix", root: root, path: filepath.Join("/srv", "dags2", "x.py"), expected: "/srv/dags2/x.py"},
		{name: "No root", root: "", path: filepath.Join("a", "b.py"), expected: "a/b.py"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RelativeTo(tc.root, tc.path); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	keys := SortedStringKeys(m)
	expected := []string{"a", "b", "c"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")
	content := []byte("hello")

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}
