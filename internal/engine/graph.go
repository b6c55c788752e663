package engine

import (
	"sort"

	"github.com/seiforesti/govflow/internal/core"
)

// DependencyGraph maps each step to its direct dependencies.
// Unresolvable references are recorded as-is; resolution is the validator's
// concern, not the builder's.
type DependencyGraph map[core.StepID][]core.StepID

// BuildDependencyGraph constructs the adjacency representation from a flat
// step list. Pure and total: no validation, no side effects.
func BuildDependencyGraph(steps []core.WorkflowStep) DependencyGraph {
	graph := make(DependencyGraph, len(steps))
	for i := range steps {
		deps := make([]core.StepID, len(steps[i].DependsOn))
		copy(deps, steps[i].DependsOn)
		graph[steps[i].ID] = deps
	}
	return graph
}

// Dependents inverts the graph: step -> steps that depend on it.
func (g DependencyGraph) Dependents() DependencyGraph {
	reverse := make(DependencyGraph, len(g))
	for id := range g {
		reverse[id] = nil
	}
	for id, deps := range g {
		for _, dep := range deps {
			reverse[dep] = append(reverse[dep], id)
		}
	}
	return reverse
}

// DetectCycles finds every dependency cycle reachable in the graph using DFS
// with a recursion stack. Each reported cycle is a closed path: its first and
// last elements are the same step. The search continues past the first cycle
// so that disjoint cyclic clusters are all surfaced. Every node is visited at
// most once as a DFS root; complexity is O(V+E).
func DetectCycles(graph DependencyGraph) [][]core.StepID {
	var cycles [][]core.StepID
	visited := make(map[core.StepID]bool)
	onStack := make(map[core.StepID]bool)
	var path []core.StepID

	var dfs func(id core.StepID)
	dfs = func(id core.StepID) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range graph[id] {
			if _, known := graph[dep]; !known {
				// Dangling reference, the validator reports it separately.
				continue
			}
			if !visited[dep] {
				dfs(dep)
			} else if onStack[dep] {
				// Slice the current path from the first occurrence of dep,
				// then close the loop by repeating it.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := make([]core.StepID, 0, len(path)-start+1)
				cycle = append(cycle, path[start:]...)
				cycle = append(cycle, dep)
				cycles = append(cycles, cycle)
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
	}

	for _, id := range sortedIDs(graph) {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// sortedIDs returns the graph's step IDs in a stable order so traversal and
// the resulting diagnostics are deterministic.
func sortedIDs(graph DependencyGraph) []core.StepID {
	ids := make([]core.StepID, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
