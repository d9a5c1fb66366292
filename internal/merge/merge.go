// Package merge orders schema statements so every object is created after the
// objects it depends on. It validates name uniqueness and in-file ordering,
// rejects circular dependencies and topologically sorts the rest.
//
// The package is pure: it performs no I/O, holds no state between calls and
// reports failures as typed errors carrying enough detail to render diagnostics.
package merge

import (
	"sort"

	"github.com/leapstack-labs/schemamerge/internal/dag"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Options configures a merge.
type Options struct {
	// AllowReorder skips the in-file order check and lets the sort reorder
	// statements within a file.
	AllowReorder bool
}

// Result is the outcome of a successful Plan.
type Result struct {
	// Ordered holds the input statements in dependency order
	Ordered []core.Statement
	// Graph is the dependency graph the order was derived from
	Graph *dag.Graph
	// Dangling lists referenced names no statement defines, sorted
	Dangling []string
}

// Merge validates stmts and returns them in dependency order.
func Merge(stmts []core.Statement, opts Options) ([]core.Statement, error) {
	res, err := Plan(stmts, opts)
	if err != nil {
		return nil, err
	}
	return res.Ordered, nil
}

// Plan runs the merge pipeline and returns the ordered statements together
// with the graph they were sorted from. Every stage fails the whole call.
func Plan(stmts []core.Statement, opts Options) (*Result, error) {
	if err := ValidateUniqueNames(stmts); err != nil {
		return nil, err
	}

	g := dag.Build(stmts)

	if !opts.AllowReorder {
		if err := ValidateFileOrder(stmts); err != nil {
			return nil, err
		}
	}

	if cycles := dag.DetectCycles(g); len(cycles) > 0 {
		return nil, &CircularDependencyError{Cycles: cycles}
	}

	ordered, err := dag.Sort(stmts, g)
	if err != nil {
		return nil, err
	}

	return &Result{
		Ordered:  ordered,
		Graph:    g,
		Dangling: Dangling(stmts),
	}, nil
}

// Dangling returns referenced names that no statement defines, sorted.
func Dangling(stmts []core.Statement) []string {
	defined := make(map[string]bool, len(stmts))
	for _, s := range stmts {
		defined[s.Name] = true
	}

	seen := make(map[string]bool)
	var dangling []string
	for _, s := range stmts {
		for _, d := range s.DependsOn {
			if !defined[d.Name] && !seen[d.Name] {
				seen[d.Name] = true
				dangling = append(dangling, d.Name)
			}
		}
	}
	sort.Strings(dangling)
	return dangling
}
