package transform

import (
	"fmt"
	"sort"

	"github.com/flowport/flowport/pkg/schema"
)

// ordering is the deterministic node order the transformer walks, plus the
// edges that were ignored to obtain it.
type ordering struct {
	Sorted   []string
	Removed  map[string]bool // edge IDs removed to break untagged cycles
	LoopEdges map[string]bool // edge IDs tagged as loop constructs (tracked, not traversed)
	Warnings []string
}

// topologicalOrder computes a topological ordering of the graph using Kahn's
// algorithm with sorted tie-breaking, so the same graph always yields the
// same order. Edges tagged IsLoop are tracked and excluded up front. Any
// remaining cycle is broken by removing the participating edge with the
// highest edge id, recorded as a warning; the result is reproducible, which
// migration reports require for audit.
func topologicalOrder(g *schema.ProcessGraph) ordering {
	ord := ordering{
		Removed:   make(map[string]bool),
		LoopEdges: make(map[string]bool),
	}

	active := make([]schema.ProcessEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.IsLoop {
			ord.LoopEdges[e.ID] = true
			continue
		}
		active = append(active, e)
	}

	for {
		sorted, remaining := kahn(g, active, ord.Removed)
		if len(remaining) == 0 {
			ord.Sorted = sorted
			return ord
		}

		// Remaining nodes participate in (or hang off) a cycle. Remove the
		// highest-id edge that is actually part of a cycle, meaning its
		// target can reach back to its source, and retry.
		victim := ""
		for _, e := range active {
			if ord.Removed[e.ID] || !remaining[e.Source] || !remaining[e.Target] {
				continue
			}
			if !reaches(e.Target, e.Source, active, ord.Removed) {
				continue
			}
			if e.ID > victim {
				victim = e.ID
			}
		}
		if victim == "" {
			// No removable edge; should be unreachable, but never loop forever.
			ord.Sorted = append(sorted, sortedKeys(remaining)...)
			ord.Warnings = append(ord.Warnings, "cycle detected, ordering degraded to lexical for unreachable nodes")
			return ord
		}
		ord.Removed[victim] = true
		ord.Warnings = append(ord.Warnings,
			fmt.Sprintf("cycle detected, linearized by edge removal at %s", victim))
	}
}

// kahn runs one pass of Kahn's algorithm over the non-removed edges.
// Returns the sorted prefix and the set of nodes left unsorted by a cycle.
func kahn(g *schema.ProcessGraph, edges []schema.ProcessEdge, removed map[string]bool) ([]string, map[string]bool) {
	inDegree := make(map[string]int, len(g.Nodes))
	successors := make(map[string][]string, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = 0
	}
	for _, e := range edges {
		if removed[e.ID] {
			continue
		}
		inDegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	queue := make([]string, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	sorted := make([]string, 0, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		next := make([]string, len(successors[node]))
		copy(next, successors[node])
		sort.Strings(next)
		for _, succ := range next {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	remaining := make(map[string]bool)
	if len(sorted) != len(g.Nodes) {
		inSorted := make(map[string]bool, len(sorted))
		for _, id := range sorted {
			inSorted[id] = true
		}
		for id := range g.Nodes {
			if !inSorted[id] {
				remaining[id] = true
			}
		}
	}
	return sorted, remaining
}

// reaches reports whether `to` is reachable from `from` over non-removed edges.
func reaches(from, to string, edges []schema.ProcessEdge, removed map[string]bool) bool {
	successors := make(map[string][]string)
	for _, e := range edges {
		if removed[e.ID] {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node == to {
			return true
		}
		for _, succ := range successors[node] {
			if !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
