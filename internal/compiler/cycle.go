package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/polyindex/internal/modeldef"
)

// Cycle is a set of definitions that depend on each other.
type Cycle struct {
	Path    []string `json:"path"`    // Cycle path: ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles finds definition cycles that make a domain unresolvable.
//
// A type depends on its base, on the interfaces it implements and, through
// key fields, on the types those keys reference: a key referencing its own
// type, directly or not, expands forever. Ordinary reference fields are not
// edges.
//
// The algorithm:
//  1. Build the dependency graph in declaration order
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop
//
// An acyclic domain returns an empty list.
func AnalyzeCycles(d *modeldef.Domain) []Cycle {
	graph := buildDependencyGraph(d)

	var cycles []Cycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// dependencyGraph maps a type to the types it depends on. order keeps
// declaration order so results are stable.
type dependencyGraph struct {
	order []string
	edges map[string][]string
}

func buildDependencyGraph(d *modeldef.Domain) dependencyGraph {
	g := dependencyGraph{edges: make(map[string][]string)}
	add := func(from, to string) {
		if to != "" && !slices.Contains(g.edges[from], to) {
			g.edges[from] = append(g.edges[from], to)
		}
	}
	for _, t := range d.Types {
		g.order = append(g.order, t.Name)
		add(t.Name, t.Base)
		for _, i := range t.Implements {
			add(t.Name, i)
		}
		keys := make(map[string]bool)
		if t.Hierarchy != nil {
			for _, k := range t.Hierarchy.Key {
				keys[k] = true
			}
		}
		for _, f := range t.Fields {
			if keys[f.Name] || f.Key {
				add(t.Name, f.Ref)
				add(t.Name, f.Struct)
			}
		}
	}
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g dependencyGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, g dependencyGraph) Cycle {
	if len(scc) == 1 {
		name := scc[0]
		return Cycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("%s depends on itself", name),
		}
	}
	path := reconstructCyclePath(scc, g)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("definition cycle: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks SCC members from the one declared first until
// it returns to the start.
func reconstructCyclePath(scc []string, g dependencyGraph) []string {
	members := make(map[string]bool)
	for _, node := range scc {
		members[node] = true
	}
	start := ""
	for _, node := range g.order {
		if members[node] {
			start = node
			break
		}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range g.edges[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
