package syntax

import (
	"fmt"
	"os"
	"strings"

	"github.com/bigrogerio/daedalus/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

const maxErrorSnippet = 40

// Loader parses Python source into Modules. A Loader is safe for concurrent use.
type Loader struct {
	pool *ParserPool
}

func NewLoader() *Loader {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	return &Loader{pool: NewParserPool(lang)}
}

// Load reads path and parses it. Read failures are CodeFilesystem errors,
// syntax errors are CodeParse errors.
func (l *Loader) Load(path string) (*Module, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeFilesystem, "read source"), errors.CtxPath, path)
	}
	return l.Parse(path, content)
}

// Parse parses src as the content of path. Any ERROR or MISSING node in the
// tree fails the whole file, as does Python 2 only syntax the grammar still
// accepts.
func (l *Loader) Parse(path string, src []byte) (*Module, error) {
	sp := l.pool.Get()
	defer l.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeInternal, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		bad := firstErrorNode(root)
		if bad == nil {
			bad = root
		}
		pos := position(bad)
		return nil, errors.NewParseError(path, pos.Line, pos.Column, describeError(bad, src))
	}

	if bad, msg := firstLegacyNode(root, src); bad != nil {
		pos := position(bad)
		return nil, errors.NewParseError(path, pos.Line, pos.Column, msg)
	}

	return newConverter(src).module(path, root), nil
}

// firstLegacyNode finds the first construct that is valid Python 2 but not
// Python 3: print and exec statements, backtick repr, leading-zero decimal
// integers and long suffixes.
func firstLegacyNode(node *sitter.Node, src []byte) (*sitter.Node, string) {
	switch node.Kind() {
	case "print_statement":
		return node, "invalid syntax: print statement"
	case "exec_statement":
		return node, "invalid syntax: exec statement"
	case "string":
		if start := node.StartByte(); int(start) < len(src) && src[start] == '`' {
			return node, "invalid syntax: backtick repr"
		}
	case "integer":
		if msg := legacyInteger(string(src[node.StartByte():node.EndByte()])); msg != "" {
			return node, msg
		}
		return nil, ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found, msg := firstLegacyNode(child, src); found != nil {
			return found, msg
		}
	}
	return nil, ""
}

func legacyInteger(text string) string {
	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, "l") {
		return fmt.Sprintf("invalid integer literal %q: long suffix", text)
	}
	if strings.HasSuffix(lower, "j") || len(lower) < 2 || lower[0] != '0' {
		return ""
	}
	switch lower[1] {
	case 'x', 'o', 'b':
		return ""
	}
	if strings.Trim(lower, "0_") != "" {
		return fmt.Sprintf("invalid integer literal %q: leading zeros in decimal literals are not permitted", text)
	}
	return ""
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

func describeError(node *sitter.Node, src []byte) string {
	if node.IsMissing() {
		return fmt.Sprintf("invalid syntax: missing %q", node.Kind())
	}
	snippet := strings.TrimSpace(string(src[node.StartByte():node.EndByte()]))
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > maxErrorSnippet {
		snippet = snippet[:maxErrorSnippet] + "..."
	}
	if snippet == "" {
		return "invalid syntax"
	}
	return fmt.Sprintf("invalid syntax near %q", snippet)
}
