// Package modmap maps imported Python names to files under a search root
// using the package layout rules of the import system.
package modmap

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bigrogerio/daedalus/internal/engine/imports"
)

const initFile = "__init__.py"

// Mapping is where one import was found. Path is relative to the mapper
// root and empty for external imports.
type Mapping struct {
	Import   string
	Path     string
	External bool
}

func (m Mapping) String() string {
	if m.External {
		return m.Import + " -> (external)"
	}
	return m.Import + " -> " + filepath.ToSlash(m.Path)
}

type Mapper struct {
	root string
}

func New(root string) *Mapper {
	return &Mapper{root: filepath.Clean(root)}
}

func (m *Mapper) Root() string { return m.root }

// ModuleName returns the dotted module name of filePath. Leading directories
// without an __init__.py are not part of any package and are dropped.
func (m *Mapper) ModuleName(filePath string) string {
	rel, err := filepath.Rel(m.root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}

	parts := strings.Split(rel, string(os.PathSeparator))
	packageStart := 0
	for i := 0; i < len(parts)-1; i++ {
		if !isFile(filepath.Join(m.root, filepath.Join(parts[:i+1]...), initFile)) {
			packageStart = i + 1
		} else {
			break
		}
	}
	parts = parts[packageStart:]

	parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".py")
	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// Map resolves each import of fromFile. Absolute imports are searched from
// the root; relative ones from fromFile's package directory. The longest
// dotted prefix that names a module file or package wins, so
// `from pkg.mod import func` maps to pkg/mod.py.
func (m *Mapper) Map(fromFile string, imps []imports.Import) []Mapping {
	out := make([]Mapping, 0, len(imps))
	for _, imp := range imps {
		out = append(out, m.MapOne(fromFile, imp))
	}
	return out
}

func (m *Mapper) MapOne(fromFile string, imp imports.Import) Mapping {
	base := m.root
	if imp.Level > 0 {
		base = filepath.Dir(fromFile)
		for i := 1; i < imp.Level; i++ {
			base = filepath.Dir(base)
		}
	}

	var parts []string
	if imp.Module != "" {
		parts = strings.Split(imp.Module, ".")
	}
	if imp.From && imp.Name != "*" && imp.Name != "" {
		parts = append(parts, imp.Name)
	}

	for n := len(parts); n >= 0; n-- {
		if n == 0 && imp.Level == 0 {
			break
		}
		if path, ok := lookup(base, parts[:n]); ok {
			return Mapping{Import: imp.Qualified, Path: m.relative(path)}
		}
	}
	return Mapping{Import: imp.Qualified, External: true}
}

// lookup finds `<base>/<parts>.py` or `<base>/<parts>/__init__.py`.
func lookup(base string, parts []string) (string, bool) {
	dir := filepath.Join(append([]string{base}, parts...)...)
	if pkg := filepath.Join(dir, initFile); isFile(pkg) {
		return pkg, true
	}
	if len(parts) == 0 {
		return "", false
	}
	if mod := dir + ".py"; isFile(mod) {
		return mod, true
	}
	return "", false
}

func (m *Mapper) relative(path string) string {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return path
	}
	return rel
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
