package dag

import "strings"

// DetectCycles returns every genuine multi-node cycle reachable by a depth-first
// walk of the graph. Each cycle is closed: its last element repeats the first.
// Self-references are hierarchical structures, not cycles, and are never reported.
//
// Nodes are visited in first-seen order, so the result is stable for a given
// graph, but which rotation of a cycle is reported depends on that order.
func DetectCycles(g *Graph) [][]string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var cycles [][]string

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range g.NonSelfDependencies(id) {
			switch {
			case onStack[dep]:
				start := indexOf(path, dep)
				cycle := make([]string, 0, len(path)-start+1)
				cycle = append(cycle, path[start:]...)
				cycle = append(cycle, dep)
				if len(cycle) == 2 && cycle[0] == cycle[1] {
					continue
				}
				cycles = append(cycles, cycle)
			case !visited[dep]:
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for _, id := range g.order {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// HasCycle returns true if the graph contains a genuine cycle, along with the first one found.
func (g *Graph) HasCycle() (bool, []string) {
	cycles := DetectCycles(g)
	if len(cycles) == 0 {
		return false, nil
	}
	return true, cycles[0]
}

// FormatCycle renders a cycle as "a -> b -> a".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}

func indexOf(slice []string, str string) int {
	for i, s := range slice {
		if s == str {
			return i
		}
	}
	return -1
}
