package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteJSON writes the adjacency map as a JSON object of node -> neighbors.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Adjacency()); err != nil {
		return fmt.Errorf("encode adjacency: %w", err)
	}
	return nil
}

// WriteDOT renders the adjacency map as a Graphviz digraph. Scanned files sit
// in one cluster, imports and file references outside it; edges inside a
// cycle are drawn in red.
func (g *Graph) WriteDOT(w io.Writer) error {
	adj := g.Adjacency()
	cycleEdges := make(map[string]map[string]bool)
	inCycle := make(map[string]bool)
	for _, cycle := range g.Cycles() {
		members := make(map[string]bool, len(cycle))
		for _, n := range cycle {
			members[n] = true
			inCycle[n] = true
		}
		for _, from := range cycle {
			for _, to := range adj[from] {
				if members[to] {
					if cycleEdges[from] == nil {
						cycleEdges[from] = make(map[string]bool)
					}
					cycleEdges[from][to] = true
				}
			}
		}
	}

	files := make([]string, 0, len(adj))
	for f := range adj {
		files = append(files, f)
	}
	sort.Strings(files)

	outside := make(map[string]NodeKind)
	g.mu.RLock()
	for _, from := range files {
		for _, to := range adj[from] {
			if _, ok := adj[to]; !ok {
				outside[to] = g.kindLocked(to)
			}
		}
	}
	g.mu.RUnlock()

	var buf strings.Builder
	buf.WriteString("digraph dags {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  overlap=false;\n\n")

	buf.WriteString("  subgraph cluster_sources {\n")
	buf.WriteString("    label=\"Scanned Files\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, f := range files {
		if inCycle[f] {
			fmt.Fprintf(&buf, "    %s [fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", quote(f))
		} else {
			fmt.Fprintf(&buf, "    %s [color=\"darkslategrey\"];\n", quote(f))
		}
	}
	buf.WriteString("  }\n\n")

	others := make([]string, 0, len(outside))
	for n := range outside {
		others = append(others, n)
	}
	sort.Strings(others)
	for _, n := range others {
		switch outside[n] {
		case KindResource:
			fmt.Fprintf(&buf, "  %s [shape=note, fillcolor=\"lightyellow\", style=filled];\n", quote(n))
		case KindFile:
			fmt.Fprintf(&buf, "  %s [fillcolor=\"white\", style=\"rounded,filled\"];\n", quote(n))
		default:
			fmt.Fprintf(&buf, "  %s [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n", quote(n))
		}
	}
	if len(others) > 0 {
		buf.WriteString("\n")
	}

	for _, from := range files {
		for _, to := range adj[from] {
			_, local := adj[to]
			switch {
			case cycleEdges[from][to]:
				fmt.Fprintf(&buf, "  %s -> %s [color=\"red\", penwidth=3.0, label=\"CYCLE\"];\n", quote(from), quote(to))
			case local || outside[to] == KindFile:
				fmt.Fprintf(&buf, "  %s -> %s [color=\"forestgreen\", penwidth=1.8];\n", quote(from), quote(to))
			case outside[to] == KindResource:
				fmt.Fprintf(&buf, "  %s -> %s [color=\"goldenrod\", style=dotted];\n", quote(from), quote(to))
			default:
				fmt.Fprintf(&buf, "  %s -> %s [color=\"grey\", style=dashed];\n", quote(from), quote(to))
			}
		}
	}
	buf.WriteString("}\n")

	_, err := io.WriteString(w, buf.String())
	return err
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
