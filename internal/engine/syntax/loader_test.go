package syntax

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bigrogerio/daedalus/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Module {
	t.Helper()
	mod, err := NewLoader().Parse("test.py", []byte(src))
	require.NoError(t, err)
	return mod
}

func TestParse_Assignments(t *testing.T) {
	mod := parse(t, `
a = "v"
b = c = 3
d: int = 4
e += 1
x.y = 2
`)
	require.Len(t, mod.Body, 5)

	first, ok := mod.Body[0].(*AssignStmt)
	require.True(t, ok)
	require.Len(t, first.Targets, 1)
	assert.Equal(t, "a", first.Targets[0].(*Name).ID)
	lit, ok := first.Value.(*Literal)
	require.True(t, ok)
	assert.Equal(t, LiteralString, lit.Kind)
	assert.Equal(t, "v", lit.Str)
	assert.Equal(t, Position{Line: 2, Column: 1}, first.Pos())

	chained, ok := mod.Body[1].(*AssignStmt)
	require.True(t, ok)
	require.Len(t, chained.Targets, 2)
	assert.Equal(t, "b", chained.Targets[0].(*Name).ID)
	assert.Equal(t, "c", chained.Targets[1].(*Name).ID)
	assert.Equal(t, int64(3), chained.Value.(*Literal).Int)

	annotated, ok := mod.Body[2].(*UnhandledStmt)
	require.True(t, ok)
	assert.Equal(t, "annotated_assignment", annotated.Kind)

	augmented, ok := mod.Body[3].(*UnhandledStmt)
	require.True(t, ok)
	assert.Equal(t, "augmented_assignment", augmented.Kind)

	attr, ok := mod.Body[4].(*AssignStmt)
	require.True(t, ok)
	_, isAttr := attr.Targets[0].(*Attribute)
	assert.True(t, isAttr)
}

func TestParse_Literals(t *testing.T) {
	mod := parse(t, `
s = 'a\tb\x41é'
r = r'a\tb'
cat = "one" 'two'
n = 0xff
f = 1.5e3
t = True
no = None
big = 123456789012345678901234567890
`)
	value := func(i int) Expr { return mod.Body[i].(*AssignStmt).Value }

	assert.Equal(t, "a\tbAé", value(0).(*Literal).Str)
	assert.Equal(t, `a\tb`, value(1).(*Literal).Str)
	assert.Equal(t, "onetwo", value(2).(*Literal).Str)
	assert.Equal(t, int64(255), value(3).(*Literal).Int)
	assert.Equal(t, 1500.0, value(4).(*Literal).Float)
	assert.True(t, value(5).(*Literal).Bool)
	assert.Equal(t, LiteralNone, value(6).(*Literal).Kind)

	overflow, ok := value(7).(*Unhandled)
	require.True(t, ok)
	assert.Equal(t, "integer", overflow.Kind)
}

func TestParse_FormattedStrings(t *testing.T) {
	mod := parse(t, `x = f"{name}-suffix {{literal}} {obj.attr!r:>4}"`)
	js, ok := mod.Body[0].(*AssignStmt).Value.(*JoinedStr)
	require.True(t, ok)
	require.Len(t, js.Parts, 3)

	first, ok := js.Parts[0].(*FormattedValue)
	require.True(t, ok)
	assert.Equal(t, "name", first.Value.(*Name).ID)

	assert.Equal(t, "-suffix {literal} ", js.Parts[1].(*Literal).Str)

	last, ok := js.Parts[2].(*FormattedValue)
	require.True(t, ok)
	_, isAttr := last.Value.(*Attribute)
	assert.True(t, isAttr)
	assert.Equal(t, "r", last.Conversion)
	assert.Equal(t, ">4", last.FormatSpec)
}

func TestParse_ConcatenatedFormattedString(t *testing.T) {
	mod := parse(t, `x = "pre-" f"{env}"`)
	js, ok := mod.Body[0].(*AssignStmt).Value.(*JoinedStr)
	require.True(t, ok)
	require.Len(t, js.Parts, 2)
	assert.Equal(t, "pre-", js.Parts[0].(*Literal).Str)
	assert.Equal(t, "env", js.Parts[1].(*FormattedValue).Value.(*Name).ID)
}

func TestParse_Imports(t *testing.T) {
	mod := parse(t, `
import os, airflow.models as am
from airflow.models import Variable, DAG as D
from . import sibling
from ..pkg.sub import thing
from x import *
from __future__ import annotations
`)
	require.Len(t, mod.Body, 6)

	plain := mod.Body[0].(*ImportStmt)
	assert.Equal(t, []ImportName{{Name: "os"}, {Name: "airflow.models", Alias: "am"}}, plain.Names)

	from := mod.Body[1].(*ImportFromStmt)
	assert.Equal(t, "airflow.models", from.Module)
	assert.Equal(t, 0, from.Level)
	assert.Equal(t, []ImportName{{Name: "Variable"}, {Name: "DAG", Alias: "D"}}, from.Names)

	rel := mod.Body[2].(*ImportFromStmt)
	assert.Equal(t, "", rel.Module)
	assert.Equal(t, 1, rel.Level)
	assert.Equal(t, []ImportName{{Name: "sibling"}}, rel.Names)

	deep := mod.Body[3].(*ImportFromStmt)
	assert.Equal(t, "pkg.sub", deep.Module)
	assert.Equal(t, 2, deep.Level)

	wild := mod.Body[4].(*ImportFromStmt)
	assert.True(t, wild.Wildcard)
	assert.Equal(t, []ImportName{{Name: "*"}}, wild.Names)

	future := mod.Body[5].(*ImportFromStmt)
	assert.Equal(t, "__future__", future.Module)
	assert.Equal(t, []ImportName{{Name: "annotations"}}, future.Names)
}

func TestParse_BlocksKeepNestedStatements(t *testing.T) {
	mod := parse(t, `
if cond:
    import inner
else:
    y = open("else.txt")

@decorate(open("deco.txt"))
def build(path=default_path):
    with open(path) as fh:
        return fh.read()
`)
	require.Len(t, mod.Body, 2)

	ifBlock, ok := mod.Body[0].(*BlockStmt)
	require.True(t, ok)
	assert.Equal(t, "if_statement", ifBlock.Kind)
	require.Len(t, ifBlock.Body, 2)
	_, isImport := ifBlock.Body[0].(*ImportStmt)
	assert.True(t, isImport)
	_, isAssign := ifBlock.Body[1].(*AssignStmt)
	assert.True(t, isAssign)

	var calls []string
	InspectModule(mod, func(n Node) bool {
		if call, ok := n.(*Call); ok {
			if name, ok := call.Func.(*Name); ok {
				calls = append(calls, name.ID)
			}
		}
		return true
	})
	assert.Equal(t, []string{"open", "decorate", "open", "open"}, calls)
}

func TestParse_CallArguments(t *testing.T) {
	mod := parse(t, `v = Variable.get("key", default_var="fallback")`)
	call, ok := mod.Body[0].(*AssignStmt).Value.(*Call)
	require.True(t, ok)

	attr, ok := call.Func.(*Attribute)
	require.True(t, ok)
	assert.Equal(t, "get", attr.Attr)
	assert.Equal(t, "Variable", attr.Value.(*Name).ID)

	require.Len(t, call.Args, 1)
	assert.Equal(t, "key", call.Args[0].(*Literal).Str)
	require.Len(t, call.Keywords, 1)
	assert.Equal(t, "default_var", call.Keywords[0].Name)
	assert.Equal(t, "fallback", call.Keywords[0].Value.(*Literal).Str)
	assert.Equal(t, `Variable.get("key", default_var="fallback")`, call.Text())
}

func TestParse_SyntaxErrorFailsFast(t *testing.T) {
	_, err := NewLoader().Parse("broken.py", []byte("def broken(:\n    pass\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.py"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFilesystem))
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dag.py")
	require.NoError(t, os.WriteFile(path, []byte("import os\n"), 0o644))

	mod, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, mod.Path)
	require.Len(t, mod.Body, 1)
}

func TestParse_RejectsPython2Syntax(t *testing.T) {
	cases := map[string]string{
		"print statement": "print \"hi\"\n",
		"exec statement":  "exec \"x=1\"\n",
		"legacy octal":    "x = 0777\n",
		"backtick repr":   "x = `y`\n",
		"long suffix":     "x = 10L\n",
		"nested octal":    "def f():\n    return [0o1, 017]\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().Parse("legacy.py", []byte(src))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeParse))
		})
	}
}

func TestParse_AcceptsPython3Integers(t *testing.T) {
	mod := parse(t, "a = 0\nb = 00\nc = 0o777\nd = 0x1F\ne = 1_000\nf = 0_0\nprint(\"ok\")\n")
	require.Len(t, mod.Body, 7)
	assert.Equal(t, int64(0), mod.Body[1].(*AssignStmt).Value.(*Literal).Int)
	assert.Equal(t, int64(511), mod.Body[2].(*AssignStmt).Value.(*Literal).Int)
	assert.Equal(t, int64(31), mod.Body[3].(*AssignStmt).Value.(*Literal).Int)
	assert.Equal(t, int64(1000), mod.Body[4].(*AssignStmt).Value.(*Literal).Int)
}

func TestParse_NamedUnicodeEscapeKeptRaw(t *testing.T) {
	mod := parse(t, `x = "a\N{EM DASH}b"`)
	assert.Equal(t, `a\N{EM DASH}b`, mod.Body[0].(*AssignStmt).Value.(*Literal).Str)
}
