package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bigrogerio/daedalus/internal/core/config"
	"github.com/bigrogerio/daedalus/internal/core/errors"
	"github.com/bigrogerio/daedalus/internal/core/ports"
	"github.com/bigrogerio/daedalus/internal/data/history"
	"github.com/bigrogerio/daedalus/internal/engine/syntax"
	"github.com/bigrogerio/daedalus/internal/engine/varstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const etlSource = `import os
from helpers import load
from airflow.models import Variable

bucket = Variable.get("bucket")
missing = Variable.get("nope")
path = f"s3://{bucket}/in"

with open("config.json") as fh:
    settings = fh.read()

open(path)
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestApp(t *testing.T, root string) (*App, string) {
	t.Helper()
	out := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Scan.Roots = []string{root}
	cfg.Variables.Env = false
	cfg.Output.JSON = filepath.Join(out, "graph.json")
	cfg.Output.DOT = filepath.Join(out, "graph.dot")
	cfg.DB.Enabled = true
	cfg.DB.Path = filepath.Join(out, "db", "daedalus.db")
	cfg.Observability.MetricsFile = filepath.Join(out, "metrics", "daedalus.prom")

	a, err := New(cfg, WithVariableStore(varstore.New(map[string]string{"bucket": "raw"})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, out
}

func readAdjacency(t *testing.T, path string) map[string][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var adj map[string][]string
	require.NoError(t, json.Unmarshal(data, &adj))
	return adj
}

func TestScan_BuildsGraphAndOutputs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"etl.py":     etlSource,
		"helpers.py": "import etl\n",
		"broken.py":  "def broken(:\n",
		"notes.txt":  "not python",
	})
	a, out := newTestApp(t, root)

	res, err := a.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.FilesScanned)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Resolved)
	assert.Equal(t, 1, res.Unresolved)
	assert.Equal(t, [][]string{{"etl.py", "helpers.py"}}, res.Cycles)
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Written, 3)

	adj := readAdjacency(t, filepath.Join(out, "graph.json"))
	assert.Equal(t, []string{"airflow.models.Variable", "config.json", "helpers.py", "os"}, adj["etl.py"])
	assert.Equal(t, []string{"etl.py"}, adj["helpers.py"])
	assert.NotContains(t, adj, "broken.py")

	dot, err := os.ReadFile(filepath.Join(out, "graph.dot"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dot), "digraph"))

	metrics, err := os.ReadFile(filepath.Join(out, "metrics", "daedalus.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "daedalus_files_analyzed_total")

	run, err := a.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.RunID, run.ID)
	require.Len(t, run.Files, 3)
	assert.Equal(t, 1, run.ErrorCount())

	var etl history.FileResult
	for _, f := range run.Files {
		if f.Path == "etl.py" {
			etl = f
		}
	}
	assert.Equal(t, map[string]string{"bucket": "raw", "path": "s3://raw/in"}, etl.Variables)
	assert.Equal(t, []string{"missing"}, etl.Unresolved)
	assert.Equal(t, []string{"config.json", "<unresolved: path>"}, etl.References)
	assert.NotEmpty(t, etl.Fingerprint)
}

func TestScan_ConcurrentWorkersMatchSequential(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		files["dags/"+name+".py"] = "import os\nname = \"" + name + "\"\n"
	}
	root := writeTree(t, files)

	seq, _ := newTestApp(t, root)
	seqRes, err := seq.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	par, _ := newTestApp(t, root)
	par.Config.Scan.Workers = 4
	parRes, err := par.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)

	assert.Equal(t, 6, parRes.FilesScanned)
	assert.Equal(t, seqRes.Resolved, parRes.Resolved)
	assert.Equal(t, seq.Graph.Adjacency(), par.Graph.Adjacency())
}

func TestScan_MissingRootFails(t *testing.T) {
	a, _ := newTestApp(t, t.TempDir())
	_, err := a.Scan(context.Background(), ports.ScanRequest{Roots: []string{filepath.Join(t.TempDir(), "absent")}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFilesystem))
}

func TestScan_MissingRootAmongGoodOnesIsSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	a, _ := newTestApp(t, root)

	res, err := a.Scan(context.Background(), ports.ScanRequest{Roots: []string{root, filepath.Join(t.TempDir(), "absent")}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesScanned)
	assert.Equal(t, 1, res.Skipped)
}

func TestScan_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "x = 1\n"})
	a, _ := newTestApp(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Scan(ctx, ports.ScanRequest{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestHandleChanges(t *testing.T) {
	root := writeTree(t, map[string]string{
		"etl.py":     etlSource,
		"helpers.py": "import etl\n",
	})
	a, out := newTestApp(t, root)

	var updates []ports.ScanResult
	a.SetUpdateHandler(func(r ports.ScanResult) { updates = append(updates, r) })

	_, err := a.Scan(context.Background(), ports.ScanRequest{})
	require.NoError(t, err)
	require.Len(t, updates, 1)

	roots := a.roots
	require.Len(t, roots, 1)
	helpers := filepath.Join(roots[0], "helpers.py")

	// Same bytes: nothing to do.
	assert.Equal(t, 0, a.HandleChanges(context.Background(), []string{helpers}))
	assert.Len(t, updates, 1)

	require.NoError(t, os.WriteFile(helpers, []byte("x = 1\n"), 0o644))
	assert.Equal(t, 1, a.HandleChanges(context.Background(), []string{helpers}))
	require.Len(t, updates, 2)
	assert.Empty(t, updates[1].Cycles)
	assert.Equal(t, []string{}, readAdjacency(t, filepath.Join(out, "graph.json"))["helpers.py"])

	require.NoError(t, os.Remove(helpers))
	assert.Equal(t, 1, a.HandleChanges(context.Background(), []string{helpers}))
	_, ok := a.Graph.Get("helpers.py")
	assert.False(t, ok)
	assert.Equal(t, 1, updates[2].FilesScanned)
}

func TestWatch_RequiresScan(t *testing.T) {
	a, _ := newTestApp(t, t.TempDir())
	err := a.Watch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestAnalyzer_AnalyzeSource(t *testing.T) {
	an := NewAnalyzer(syntax.NewLoader(), varstore.New(map[string]string{"env": "prod"}), config.Resolver{})

	fa, err := an.AnalyzeSource(context.Background(), "dag.py", []byte(`
from airflow.models import Variable
import os, os
env = Variable.get("env")
target = "out-" + env
data = open("seed.csv")
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"airflow.models.Variable", "os"}, fa.ImportNames())
	require.Len(t, fa.References, 1)
	lit, ok := fa.References[0].Literal()
	require.True(t, ok)
	assert.Equal(t, "seed.csv", lit)

	v, ok := fa.State.Get("target")
	require.True(t, ok)
	assert.Equal(t, "out-prod", v.String())
	assert.Len(t, fa.Outcomes, 3)
}

func TestAnalyzer_CustomAccessors(t *testing.T) {
	an := NewAnalyzer(syntax.NewLoader(), varstore.New(map[string]string{"k": "v"}), config.Resolver{
		StoreBase:    "Vars",
		StoreMethod:  "fetch",
		OpenAccessor: "read_file",
	})
	fa, err := an.AnalyzeSource(context.Background(), "dag.py", []byte("x = Vars.fetch(\"k\")\ny = Variable.get(\"k\")\nread_file(\"a.txt\")\nopen(\"b.txt\")\n"))
	require.NoError(t, err)

	v, ok := fa.State.Get("x")
	require.True(t, ok)
	assert.Equal(t, "v", v.String())
	_, ok = fa.State.Get("y")
	assert.False(t, ok)
	require.Len(t, fa.References, 1)
	assert.Equal(t, "a.txt", fa.References[0].String())
}

func TestAnalyzer_ParseError(t *testing.T) {
	an := NewAnalyzer(syntax.NewLoader(), nil, config.Resolver{})
	_, err := an.AnalyzeSource(context.Background(), "bad.py", []byte("def broken(:\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))

	_, err = an.AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "absent.py"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFilesystem))
}

func TestLoadVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bucket": "from-file", "other": "kept"}`), 0o644))
	t.Setenv("DAEDALUS_TEST_BUCKET", "from-env")

	store, err := LoadVariables(config.Variables{File: path, Env: true, EnvPrefix: "DAEDALUS_TEST_"})
	require.NoError(t, err)

	v, ok := store.Lookup("bucket")
	require.True(t, ok)
	assert.Equal(t, "from-env", v)
	v, ok = store.Lookup("other")
	require.True(t, ok)
	assert.Equal(t, "kept", v)

	_, err = LoadVariables(config.Variables{File: filepath.Join(t.TempDir(), "vars.ini")})
	require.Error(t, err)
}
