// Package imports collects the module and symbol names a Python file imports.
package imports

import (
	"sort"

	"github.com/bigrogerio/daedalus/internal/engine/syntax"
)

// Import is one imported name with the pieces needed to map it to a file.
type Import struct {
	// Qualified is the name as reported in an import set: `a.b` for
	// `import a.b`, `<module>.<name>` for from-imports.
	Qualified string
	Module    string
	Name      string
	Alias     string
	Level     int
	From      bool
	Line      int
}

// Set is a deduplicated set of qualified import names.
type Set map[string]struct{}

func (s Set) Add(name string) { s[name] = struct{}{} }

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the names in lexical order for stable output.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Collect walks every statement of mod, nested bodies included, and returns
// the set of imported names. A from-import without a module (`from . import x`)
// yields `.x`.
func Collect(mod *syntax.Module) Set {
	set := make(Set)
	for _, imp := range CollectDetailed(mod) {
		set.Add(imp.Qualified)
	}
	return set
}

// CollectDetailed returns every import in source order, duplicates kept.
func CollectDetailed(mod *syntax.Module) []Import {
	var out []Import
	syntax.InspectModule(mod, func(n syntax.Node) bool {
		switch stmt := n.(type) {
		case *syntax.ImportStmt:
			for _, name := range stmt.Names {
				out = append(out, Import{
					Qualified: name.Name,
					Module:    name.Name,
					Alias:     name.Alias,
					Line:      stmt.Pos().Line,
				})
			}
			return false
		case *syntax.ImportFromStmt:
			for _, name := range stmt.Names {
				out = append(out, Import{
					Qualified: stmt.Module + "." + name.Name,
					Module:    stmt.Module,
					Name:      name.Name,
					Alias:     name.Alias,
					Level:     stmt.Level,
					From:      true,
					Line:      stmt.Pos().Line,
				})
			}
			return false
		}
		return true
	})
	return out
}
