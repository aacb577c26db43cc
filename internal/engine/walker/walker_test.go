package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, r)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))
	}
}

func relFiles(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestWalk_FiltersBySuffixAndExcludes(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"dag_a.py",
		"notes.txt",
		"sub/dag_b.py",
		"sub/deeper/dag_c.py",
		"__pycache__/dag_a.cpython-311.pyc",
		"venv/lib/site.py",
		"sub/test_dag.py",
	)

	w, err := New(Options{ExcludeDirs: []string{"venv", "__pycache__"}, ExcludeFiles: []string{"test_*.py"}})
	require.NoError(t, err)

	res, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"dag_a.py", "sub/dag_b.py", "sub/deeper/dag_c.py"}, relFiles(t, root, res.Files))
	assert.Empty(t, res.Skipped)
}

func TestWalk_CustomSuffix(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.sql", "b.py")

	w, err := New(Options{Suffix: ".sql"})
	require.NoError(t, err)
	res, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql"}, relFiles(t, root, res.Files))
}

func TestWalk_DoesNotFollowSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pkg/mod.py")
	if err := os.Symlink(root, filepath.Join(root, "pkg", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	w, err := New(Options{})
	require.NoError(t, err)
	res, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/mod.py"}, relFiles(t, root, res.Files))
}

func TestWalk_SkipsUnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	touch(t, root, "ok.py", "locked/hidden.py")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	w, err := New(Options{})
	require.NoError(t, err)
	res, err := w.Walk(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py"}, relFiles(t, root, res.Files))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, locked, res.Skipped[0].Path)
}

func TestWalk_MissingRootFails(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)
	_, err = w.Walk(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFilesystem))
}

func TestWalk_MissingRootIsSkipped(t *testing.T) {
	good := t.TempDir()
	touch(t, good, "dag.py")
	missing := filepath.Join(t.TempDir(), "missing")

	w, err := New(Options{})
	require.NoError(t, err)
	res, err := w.Walk(context.Background(), missing, good)
	require.NoError(t, err)
	assert.Equal(t, []string{"dag.py"}, relFiles(t, good, res.Files))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, missing, res.Skipped[0].Path)
	assert.True(t, errors.IsCode(res.Skipped[0].Err, errors.CodeFilesystem))
}

func TestWalk_AllRootsMissingFails(t *testing.T) {
	w, err := New(Options{})
	require.NoError(t, err)
	res, err := w.Walk(context.Background(), filepath.Join(t.TempDir(), "a"), filepath.Join(t.TempDir(), "b"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFilesystem))
	assert.Len(t, res.Skipped, 2)
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.py")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := New(Options{})
	require.NoError(t, err)
	_, err = w.Walk(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Options{ExcludeDirs: []string{"[unclosed"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestMatch(t *testing.T) {
	w, err := New(Options{ExcludeFiles: []string{"*_test.py"}})
	require.NoError(t, err)
	assert.True(t, w.Match("/x/dag.py"))
	assert.False(t, w.Match("/x/dag_test.py"))
	assert.False(t, w.Match("/x/readme.md"))
}
