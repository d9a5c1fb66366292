package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// ErrSortInconsistent is matched by SortInconsistencyError.
var ErrSortInconsistent = errors.New("internal sort inconsistency")

// SortInconsistencyError reports that the sorter could not place every node.
// It means a cycle reached the sorter without being detected first and
// indicates a bug, not bad input.
type SortInconsistencyError struct {
	Placed   int
	Total    int
	Unplaced []string
}

func (e *SortInconsistencyError) Error() string {
	return fmt.Sprintf("internal error: topological sort placed %d of %d nodes (unplaced: %s)",
		e.Placed, e.Total, strings.Join(e.Unplaced, ", "))
}

// Is makes errors.Is(err, ErrSortInconsistent) match.
func (e *SortInconsistencyError) Is(target error) bool {
	return target == ErrSortInconsistent
}

// Order returns every node in dependency order using Kahn's algorithm.
// Self-references never contribute to in-degree. Zero in-degree nodes are
// queued in first-seen order, which makes the result deterministic.
func (g *Graph) Order() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	var queue []string
	for _, id := range g.order {
		inDegree[id] = len(g.NonSelfDependencies(id))
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		for _, dependent := range g.NonSelfDependents(id) {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(sorted) < len(g.order) {
		var unplaced []string
		for id, deg := range inDegree {
			if deg > 0 {
				unplaced = append(unplaced, id)
			}
		}
		sort.Strings(unplaced)
		return nil, &SortInconsistencyError{
			Placed:   len(sorted),
			Total:    len(g.order),
			Unplaced: unplaced,
		}
	}

	return sorted, nil
}

// Sort returns stmts reordered so every statement follows the statements it
// depends on. Graph nodes without a statement (dangling dependencies) are skipped.
// The result is a permutation of stmts.
func Sort(stmts []core.Statement, g *Graph) ([]core.Statement, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}

	byName := make(map[string][]core.Statement, len(stmts))
	for _, s := range stmts {
		byName[s.Name] = append(byName[s.Name], s)
	}

	result := make([]core.Statement, 0, len(stmts))
	for _, name := range order {
		result = append(result, byName[name]...)
		delete(byName, name)
	}

	// Statements whose names were never added to g (g built from other input).
	if len(result) < len(stmts) {
		for _, s := range stmts {
			if _, missing := byName[s.Name]; missing {
				result = append(result, s)
			}
		}
	}

	return result, nil
}

// Levels groups nodes by execution level. Level 0 holds nodes with no
// dependencies other than themselves; a node at level N depends on at least
// one node at level N-1. Returns an error if the graph contains a cycle.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %s", FormatCycle(cyclePath))
	}

	inDegree := make(map[string]int, len(g.order))
	var current []string
	for _, id := range g.order {
		inDegree[id] = len(g.NonSelfDependencies(id))
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	var levels [][]string
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)

		var next []string
		for _, id := range current {
			for _, dependent := range g.NonSelfDependents(id) {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}

	return levels, nil
}
