// Package dag provides the dependency graph for schema objects.
// It supports graph construction from statements, cycle detection that tolerates
// self-references, and Kahn-style topological sorting.
package dag

import (
	"sort"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Graph is a directed graph of schema object names.
// An edge a -> b means a depends on b. Graphs are immutable once built.
type Graph struct {
	order        []string            // nodes in first-seen order
	nodes        map[string]struct{} // node set
	edges        map[string][]string // node -> dependencies
	reverseEdges map[string][]string // node -> dependents
}

func newGraph() *Graph {
	return &Graph{
		nodes:        make(map[string]struct{}),
		edges:        make(map[string][]string),
		reverseEdges: make(map[string][]string),
	}
}

// Build creates a graph from statements. Every statement name and every
// referenced name becomes a node, including names no statement defines.
// Self-references are kept as ordinary edges.
func Build(stmts []core.Statement) *Graph {
	g := newGraph()
	for _, s := range stmts {
		g.addNode(s.Name)
		for _, d := range s.DependsOn {
			g.addNode(d.Name)
			g.addEdge(s.Name, d.Name)
		}
	}
	return g
}

func (g *Graph) addNode(name string) {
	if _, exists := g.nodes[name]; exists {
		return
	}
	g.nodes[name] = struct{}{}
	g.order = append(g.order, name)
	g.edges[name] = []string{}
	g.reverseEdges[name] = []string{}
}

// addEdge records that from depends on to, keeping edges and reverseEdges in step.
func (g *Graph) addEdge(from, to string) {
	if !contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	if !contains(g.reverseEdges[to], from) {
		g.reverseEdges[to] = append(g.reverseEdges[to], from)
	}
}

// Nodes returns all node names in first-seen order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// HasNode reports whether name is a node of the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges, self-references included.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, deps := range g.edges {
		count += len(deps)
	}
	return count
}

// Dependencies returns the names the node depends on, self-reference included.
func (g *Graph) Dependencies(name string) []string {
	return cloneStrings(g.edges[name])
}

// Dependents returns the names that depend on the node, self-reference included.
func (g *Graph) Dependents(name string) []string {
	return cloneStrings(g.reverseEdges[name])
}

// NonSelfDependencies returns the dependencies of name without name itself.
// This is the one place self-references are excluded; the cycle detector,
// the sorter and the file order validator all go through it.
func (g *Graph) NonSelfDependencies(name string) []string {
	return without(g.edges[name], name)
}

// NonSelfDependents returns the dependents of name without name itself.
func (g *Graph) NonSelfDependents(name string) []string {
	return without(g.reverseEdges[name], name)
}

// IsSelfReferencing reports whether the node has an edge to itself.
func (g *Graph) IsSelfReferencing(name string) bool {
	return contains(g.edges[name], name)
}

// Equal reports whether two graphs have the same nodes and edge sets.
// Insertion order is not compared.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.nodes) != len(other.nodes) {
		return false
	}
	for name := range g.nodes {
		if !other.HasNode(name) {
			return false
		}
		if !sameSet(g.edges[name], other.edges[name]) {
			return false
		}
		if !sameSet(g.reverseEdges[name], other.reverseEdges[name]) {
			return false
		}
	}
	return true
}

// Roots returns nodes with no dependencies other than themselves.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		if len(g.NonSelfDependencies(name)) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes nothing else depends on.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, name := range g.order {
		if len(g.NonSelfDependents(name)) == 0 {
			leaves = append(leaves, name)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Upstream returns every node the given node transitively depends on.
func (g *Graph) Upstream(name string) []string {
	return g.walk(name, g.NonSelfDependencies)
}

// Downstream returns every node that transitively depends on the given node.
func (g *Graph) Downstream(name string) []string {
	return g.walk(name, g.NonSelfDependents)
}

func (g *Graph) walk(start string, next func(string) []string) []string {
	seen := make(map[string]bool)

	var mark func(string)
	mark = func(id string) {
		for _, n := range next(id) {
			if !seen[n] {
				seen[n] = true
				mark(n)
			}
		}
	}
	mark(start)
	delete(seen, start)

	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Subgraph returns a new graph containing only the named nodes and the edges between them.
// Nodes keep their relative order from the original graph.
func (g *Graph) Subgraph(names []string) *Graph {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}

	sub := newGraph()
	for _, name := range g.order {
		if keep[name] {
			sub.addNode(name)
		}
	}
	for _, name := range sub.order {
		for _, dep := range g.edges[name] {
			if keep[dep] {
				sub.addEdge(name, dep)
			}
		}
	}
	return sub
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

func without(slice []string, str string) []string {
	out := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != str {
			out = append(out, s)
		}
	}
	return out
}

func cloneStrings(slice []string) []string {
	out := make([]string, len(slice))
	copy(out, slice)
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !contains(b, s) {
			return false
		}
	}
	return true
}
