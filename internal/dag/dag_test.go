package dag

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// stmt builds a table statement depending on the named tables.
func stmt(name string, deps ...string) core.Statement {
	s := core.Statement{Type: core.StatementTable, Name: name, SourceFile: name + ".sql"}
	for _, d := range deps {
		s.DependsOn = append(s.DependsOn, core.Dependency{Name: d, Type: core.StatementTable})
	}
	return s
}

func names(stmts []core.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Name
	}
	return out
}

func positions(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	return pos
}

func TestBuild_NodesAndEdges(t *testing.T) {
	g := Build([]core.Statement{
		stmt("users"),
		stmt("posts", "users"),
		stmt("comments", "posts", "users"),
	})

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 3 {
		t.Errorf("expected 3 edges, got %d", g.EdgeCount())
	}

	deps := g.Dependencies("comments")
	if len(deps) != 2 {
		t.Errorf("expected comments to have 2 dependencies, got %v", deps)
	}

	dependents := g.Dependents("users")
	if len(dependents) != 2 {
		t.Errorf("expected users to have 2 dependents, got %v", dependents)
	}
}

func TestBuild_DanglingDependencyIsNode(t *testing.T) {
	g := Build([]core.Statement{stmt("orders", "customers")})

	if !g.HasNode("customers") {
		t.Fatal("expected dangling dependency to be a node")
	}
	if len(g.Dependencies("customers")) != 0 {
		t.Errorf("dangling node should have no dependencies, got %v", g.Dependencies("customers"))
	}
	if got := g.Dependents("customers"); len(got) != 1 || got[0] != "orders" {
		t.Errorf("expected customers dependents [orders], got %v", got)
	}
}

func TestBuild_SelfReferenceKeptAsEdge(t *testing.T) {
	g := Build([]core.Statement{stmt("employees", "employees")})

	if g.EdgeCount() != 1 {
		t.Errorf("expected self edge to be recorded, got %d edges", g.EdgeCount())
	}
	if !g.IsSelfReferencing("employees") {
		t.Error("expected employees to be self-referencing")
	}
	if len(g.NonSelfDependencies("employees")) != 0 {
		t.Error("NonSelfDependencies should drop the self edge")
	}
	if len(g.NonSelfDependents("employees")) != 0 {
		t.Error("NonSelfDependents should drop the self edge")
	}
}

func TestBuild_DuplicateEdges(t *testing.T) {
	s := stmt("orders", "customers", "customers")
	g := Build([]core.Statement{s})

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}

func TestBuild_EdgesAndReverseEdgesAreInverse(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a", "b", "c"),
		stmt("b", "c"),
		stmt("d", "d", "a"),
		stmt("e", "missing"),
	})

	for _, n := range g.Nodes() {
		for _, dep := range g.Dependencies(n) {
			if !contains(g.Dependents(dep), n) {
				t.Errorf("edge %s -> %s has no reverse entry", n, dep)
			}
		}
		for _, dependent := range g.Dependents(n) {
			if !contains(g.Dependencies(dependent), n) {
				t.Errorf("reverse edge %s <- %s has no forward entry", n, dependent)
			}
		}
	}
}

func TestBuild_Idempotent(t *testing.T) {
	input := []core.Statement{
		stmt("comments", "posts"),
		stmt("posts", "users"),
		stmt("users"),
		stmt("tree", "tree"),
	}

	first := Build(input)
	second := Build(input)

	if !first.Equal(second) {
		t.Error("building twice from the same input should yield equal graphs")
	}

	other := Build(input[:2])
	if first.Equal(other) {
		t.Error("graphs with different edges should not be equal")
	}
}

func TestDetectCycles_ThreeNodeCycle(t *testing.T) {
	g := Build([]core.Statement{
		stmt("A", "B"),
		stmt("B", "C"),
		stmt("C", "A"),
	})

	cycles := DetectCycles(g)
	if len(cycles) == 0 {
		t.Fatal("expected cycle to be detected")
	}

	found := false
	for _, c := range cycles {
		if c[0] != c[len(c)-1] {
			t.Errorf("cycle %v is not closed", c)
		}
		members := make(map[string]bool)
		for _, n := range c {
			members[n] = true
		}
		if len(members) == 3 && members["A"] && members["B"] && members["C"] {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cycle over exactly {A, B, C}, got %v", cycles)
	}
}

func TestDetectCycles_SelfLoopsOnly(t *testing.T) {
	g := Build([]core.Statement{
		stmt("A", "A"),
		stmt("B", "B"),
	})

	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Errorf("self-loops are not cycles, got %v", cycles)
	}
}

func TestDetectCycles_SelfLoopInsideAcyclicGraph(t *testing.T) {
	g := Build([]core.Statement{
		stmt("departments"),
		stmt("employees", "employees", "departments"),
	})

	if hasCycle, path := g.HasCycle(); hasCycle {
		t.Errorf("expected no cycle, found %v", path)
	}
}

func TestDetectCycles_TwoNodeCycle(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a", "b"),
		stmt("b", "a"),
	})

	cycles := DetectCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	if FormatCycle(cycles[0]) != "a -> b -> a" {
		t.Errorf("unexpected cycle %q", FormatCycle(cycles[0]))
	}
}

func TestDetectCycles_ReportsPathFromRepeatedNode(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a", "c"),
		stmt("b", "a"),
		stmt("c", "b"),
	})

	cycles := DetectCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	if got := FormatCycle(cycles[0]); got != "a -> c -> b -> a" {
		t.Errorf("expected a -> c -> b -> a, got %s", got)
	}
}

func TestDetectCycles_TailBeforeCycleNotIncluded(t *testing.T) {
	// entry -> x -> y -> x: entry is on the path but not in the cycle
	g := Build([]core.Statement{
		stmt("entry", "x"),
		stmt("x", "y"),
		stmt("y", "x"),
	})

	cycles := DetectCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %v", cycles)
	}
	for _, n := range cycles[0] {
		if n == "entry" {
			t.Errorf("cycle should not include the entry node: %v", cycles[0])
		}
	}
}

func TestDetectCycles_DisjointCycles(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a", "b"),
		stmt("b", "a"),
		stmt("c", "d"),
		stmt("d", "c"),
		stmt("e"),
	})

	if cycles := DetectCycles(g); len(cycles) != 2 {
		t.Errorf("expected 2 cycles, got %v", cycles)
	}
}

func TestDetectCycles_DanglingDependency(t *testing.T) {
	g := Build([]core.Statement{
		stmt("orders", "customers"),
		stmt("invoices", "orders"),
	})

	if cycles := DetectCycles(g); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestSort_Chain(t *testing.T) {
	input := []core.Statement{
		stmt("comments", "posts"),
		stmt("users"),
		stmt("posts", "users"),
	}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	got := names(sorted)
	want := []string{"users", "posts", "comments"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSort_Diamond(t *testing.T) {
	// d depends on b and c, which both depend on a
	input := []core.Statement{
		stmt("d", "b", "c"),
		stmt("b", "a"),
		stmt("c", "a"),
		stmt("a"),
	}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	pos := positions(names(sorted))
	if pos["a"] != 0 {
		t.Error("a should be first")
	}
	if pos["d"] != 3 {
		t.Error("d should be last")
	}
	if pos["b"] <= pos["a"] || pos["b"] >= pos["d"] {
		t.Error("b should be between a and d")
	}
	if pos["c"] <= pos["a"] || pos["c"] >= pos["d"] {
		t.Error("c should be between a and d")
	}
}

func TestSort_SelfReferenceWithOtherDependencies(t *testing.T) {
	input := []core.Statement{
		stmt("employees", "employees", "departments"),
		stmt("departments"),
	}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	pos := positions(names(sorted))
	if pos["departments"] >= pos["employees"] {
		t.Errorf("departments should precede employees, got %v", names(sorted))
	}
}

func TestSort_SkipsDanglingNodes(t *testing.T) {
	input := []core.Statement{stmt("orders", "customers")}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	if len(sorted) != 1 || sorted[0].Name != "orders" {
		t.Errorf("expected [orders], got %v", names(sorted))
	}
}

func TestSort_IsPermutation(t *testing.T) {
	input := []core.Statement{
		stmt("a"),
		stmt("b", "a"),
		stmt("c", "a", "b"),
		stmt("d"),
		stmt("e", "d", "e"),
	}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	if len(sorted) != len(input) {
		t.Fatalf("expected %d statements, got %d", len(input), len(sorted))
	}

	pos := positions(names(sorted))
	for _, s := range input {
		for _, d := range s.DependsOn {
			if d.Name == s.Name {
				continue
			}
			if pos[d.Name] >= pos[s.Name] {
				t.Errorf("%s should precede %s in %v", d.Name, s.Name, names(sorted))
			}
		}
	}
}

func TestSort_DisconnectedComponentsKeepInputOrder(t *testing.T) {
	input := []core.Statement{
		stmt("z"),
		stmt("a"),
		stmt("m"),
	}

	sorted, err := Sort(input, Build(input))
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	got := names(sorted)
	want := []string{"z", "a", "m"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSort_CycleIsInconsistency(t *testing.T) {
	input := []core.Statement{
		stmt("a", "b"),
		stmt("b", "a"),
		stmt("c"),
	}

	_, err := Sort(input, Build(input))
	if err == nil {
		t.Fatal("expected error for cyclic graph")
	}
	if !errors.Is(err, ErrSortInconsistent) {
		t.Errorf("expected ErrSortInconsistent, got %v", err)
	}

	var inconsistency *SortInconsistencyError
	if !errors.As(err, &inconsistency) {
		t.Fatalf("expected *SortInconsistencyError, got %T", err)
	}
	if inconsistency.Placed != 1 || inconsistency.Total != 3 {
		t.Errorf("expected 1 of 3 placed, got %d of %d", inconsistency.Placed, inconsistency.Total)
	}
	if len(inconsistency.Unplaced) != 2 {
		t.Errorf("expected 2 unplaced nodes, got %v", inconsistency.Unplaced)
	}
}

func TestGraph_Levels(t *testing.T) {
	g := Build([]core.Statement{
		stmt("raw1"),
		stmt("raw2"),
		stmt("staging1", "raw1"),
		stmt("staging2", "raw2", "staging2"),
		stmt("mart", "staging1", "staging2"),
	})

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("failed to get levels: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if len(levels[0]) != 2 {
		t.Errorf("expected 2 nodes at level 0, got %v", levels[0])
	}
	if len(levels[1]) != 2 {
		t.Errorf("expected 2 nodes at level 1, got %v", levels[1])
	}
	if len(levels[2]) != 1 || levels[2][0] != "mart" {
		t.Errorf("expected [mart] at level 2, got %v", levels[2])
	}
}

func TestGraph_LevelsWithCycle(t *testing.T) {
	g := Build([]core.Statement{stmt("a", "b"), stmt("b", "a")})

	if _, err := g.Levels(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_UpstreamAndDownstream(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a"),
		stmt("b"),
		stmt("c", "a", "b"),
		stmt("d", "c", "d"),
	})

	if upstream := g.Upstream("d"); len(upstream) != 3 {
		t.Errorf("expected 3 upstream nodes, got %v", upstream)
	}
	if downstream := g.Downstream("a"); len(downstream) != 2 {
		t.Errorf("expected 2 downstream nodes, got %v", downstream)
	}
	for _, n := range g.Upstream("d") {
		if n == "d" {
			t.Error("a node should not be its own upstream")
		}
	}
}

func TestGraph_RootsAndLeaves(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a"),
		stmt("b", "b"),
		stmt("c", "a", "b"),
	})

	roots := g.Roots()
	if len(roots) != 2 || roots[0] != "a" || roots[1] != "b" {
		t.Errorf("expected roots [a b], got %v", roots)
	}

	leaves := g.Leaves()
	if len(leaves) != 1 || leaves[0] != "c" {
		t.Errorf("expected leaves [c], got %v", leaves)
	}
}

func TestGraph_Subgraph(t *testing.T) {
	g := Build([]core.Statement{
		stmt("a"),
		stmt("b", "a"),
		stmt("c", "b"),
		stmt("d", "c"),
	})

	sub := g.Subgraph([]string{"b", "c"})

	if sub.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", sub.EdgeCount())
	}
	if deps := sub.Dependencies("c"); len(deps) != 1 || deps[0] != "b" {
		t.Errorf("expected edge from c to b, got %v", deps)
	}
}
