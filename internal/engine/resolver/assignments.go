package resolver

import "github.com/bigrogerio/daedalus/internal/engine/syntax"

// Assignment is one `name = value` binding taken from a top-level statement.
// Chained assignments produce one Assignment per name target.
type Assignment struct {
	Target *syntax.Name
	Value  syntax.Expr
}

// CollectAssignments returns the bindings of the module's direct top-level
// assignment statements in source order. Statements nested in compound
// statements are not visited, and only bare-name targets are kept.
func CollectAssignments(mod *syntax.Module) []Assignment {
	if mod == nil {
		return nil
	}
	var out []Assignment
	for _, stmt := range mod.Body {
		assign, ok := stmt.(*syntax.AssignStmt)
		if !ok || assign.Value == nil {
			continue
		}
		for _, target := range assign.Targets {
			name, ok := target.(*syntax.Name)
			if !ok {
				continue
			}
			out = append(out, Assignment{Target: name, Value: assign.Value})
		}
	}
	return out
}
