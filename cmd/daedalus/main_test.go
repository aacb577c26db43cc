package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dagSource = `from airflow.models import Variable
from helpers import load
import os

bucket = Variable.get("bucket")
retries = 3
target = f"s3://{bucket}/{missing}"
raw = Variable.get("absent")

cfg = open("config.json")
data = open(target)
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.toml")}, args...))
	err := root.Execute()
	return stdout.String(), err
}

// runDefault runs without --config so the missing default file falls back
// to the built-in configuration.
func runDefault(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func writeDAG(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helpers.py"), []byte("def load():\n    pass\n"), 0o644))
	path := filepath.Join(dir, "etl.py")
	require.NoError(t, os.WriteFile(path, []byte(dagSource), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := runDefault(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "daedalus dev")
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := run(t, "refs", writeDAG(t))
	require.Error(t, err)
}

func TestImports_Analyze(t *testing.T) {
	out, err := runDefault(t, "imports", "--analyze-imports", writeDAG(t))
	require.NoError(t, err)
	assert.Equal(t, "Extracted Import Trees:\nairflow.models.Variable\nhelpers.load\nos\n", out)
}

func TestImports_DefaultsToAnalyze(t *testing.T) {
	out, err := runDefault(t, "imports", writeDAG(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted Import Trees:")
}

func TestImports_Map(t *testing.T) {
	out, err := runDefault(t, "imports", "--map-imports", writeDAG(t))
	require.NoError(t, err)
	assert.Equal(t, "airflow.models.Variable -> (external)\nhelpers.load -> helpers.py\nos -> (external)\n", out)
}

func TestImports_MapPrintsEachImportOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\nimport os\nfrom os import path\n"), 0o644))

	out, err := runDefault(t, "imports", "--map-imports", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "os -> (external)\n"))
}

func TestResolve(t *testing.T) {
	path := writeDAG(t)
	vars := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(vars, []byte("bucket: landing\n"), 0o644))

	out, err := runDefault(t, "resolve", "--variables", vars, path)
	require.NoError(t, err)
	assert.Equal(t, "bucket = landing\n"+
		"raw = undefined_variable_reference\n"+
		"retries = 3\n"+
		"target = s3://landing/\n", out)
}

func TestResolve_JSON(t *testing.T) {
	path := writeDAG(t)
	vars := filepath.Join(t.TempDir(), "vars.json")
	require.NoError(t, os.WriteFile(vars, []byte(`{"bucket": "landing"}`), 0o644))

	out, err := runDefault(t, "resolve", "--json", "--variables", vars, path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "landing", got["bucket"])
	assert.Equal(t, float64(3), got["retries"])
	assert.Nil(t, got["raw"])
	assert.Contains(t, got, "raw")
}

func TestRefs(t *testing.T) {
	out, err := runDefault(t, "refs", writeDAG(t))
	require.NoError(t, err)
	assert.Equal(t, "config.json\n<unresolved: target>\n", out)
}

func TestRefs_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.py")
	require.NoError(t, os.WriteFile(path, []byte("def broken(:\n"), 0o644))
	_, err := runDefault(t, "refs", path)
	require.Error(t, err)
}

func TestScan(t *testing.T) {
	dir := filepath.Dir(writeDAG(t))
	jsonPath := filepath.Join(t.TempDir(), "graph.json")

	out, err := runDefault(t, "scan", "--workers", "2", "--json", jsonPath, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "daedalus scan")
	assert.Contains(t, out, "wrote "+jsonPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var adj map[string][]string
	require.NoError(t, json.Unmarshal(data, &adj))
	assert.Equal(t, []string{"airflow.models.Variable", "config.json", "helpers.py", "os"}, adj["etl.py"])
	assert.Equal(t, []string{}, adj["helpers.py"])
}
