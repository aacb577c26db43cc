// Package graph assembles per-file analysis results into the adjacency
// structure consumed by the downstream DAG dependency graph.
package graph

import (
	"sort"
	"sync"

	"github.com/bigrogerio/daedalus/internal/shared/util"
)

// NodeKind classifies a node of the adjacency map.
type NodeKind string

const (
	KindFile     NodeKind = "file"
	KindImport   NodeKind = "import"
	KindResource NodeKind = "resource"
)

// Entry is the analysis result of one source file.
type Entry struct {
	Path   string
	Module string
	// Imports are qualified import names. Local maps the ones that resolved
	// to a file under the scan root to that file's path.
	Imports []string
	Local   map[string]string
	// Resources are the literal file references.
	Resources []string
}

// Graph is safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Graph {
	return &Graph{entries: make(map[string]*Entry)}
}

// Set stores or replaces the entry for e.Path.
func (g *Graph) Set(e Entry) {
	c := cloneEntry(&e)
	g.mu.Lock()
	g.entries[e.Path] = c
	g.mu.Unlock()
}

func (g *Graph) Remove(path string) {
	g.mu.Lock()
	delete(g.entries, path)
	g.mu.Unlock()
}

func (g *Graph) Get(path string) (Entry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *cloneEntry(e), true
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Paths returns the file paths in sorted order.
func (g *Graph) Paths() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.entries))
	for p := range g.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Adjacency returns node -> sorted neighbors. Every file is a node; its
// neighbors are its imports (the local file path when one is known) and its
// literal file references. Neighbor-only nodes get no entry of their own.
func (g *Graph) Adjacency() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj := make(map[string][]string, len(g.entries))
	for path, e := range g.entries {
		seen := make(map[string]bool, len(e.Imports)+len(e.Resources))
		for _, imp := range e.Imports {
			target := imp
			if local, ok := e.Local[imp]; ok && local != "" {
				target = local
			}
			seen[target] = true
		}
		for _, r := range e.Resources {
			seen[r] = true
		}
		delete(seen, path)
		adj[path] = util.SortedStringKeys(seen)
	}
	return adj
}

// Kind classifies node relative to the current entries.
func (g *Graph) Kind(node string) NodeKind {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.kindLocked(node)
}

func (g *Graph) kindLocked(node string) NodeKind {
	if _, ok := g.entries[node]; ok {
		return KindFile
	}
	for _, e := range g.entries {
		for _, r := range e.Resources {
			if r == node {
				return KindResource
			}
		}
		for _, local := range e.Local {
			if local == node {
				return KindFile
			}
		}
	}
	return KindImport
}

// Cycles returns the groups of files that import each other, each group
// sorted, groups ordered by their first member.
func (g *Graph) Cycles() [][]string {
	adj := g.Adjacency()
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	_, components := stronglyConnectedComponents(nodes, adj)
	var cycles [][]string
	for _, c := range components {
		if len(c) > 1 {
			cycles = append(cycles, c)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

func stronglyConnectedComponents(nodes []string, adjacency map[string][]string) (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	componentOf := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}

func cloneEntry(e *Entry) *Entry {
	c := *e
	c.Imports = append([]string(nil), e.Imports...)
	c.Resources = append([]string(nil), e.Resources...)
	if e.Local != nil {
		c.Local = make(map[string]string, len(e.Local))
		for k, v := range e.Local {
			c.Local[k] = v
		}
	}
	return &c
}
