package transform

import (
	"sort"

	"github.com/flowport/flowport/pkg/schema"
)

// pairGateways matches each diverging parallel/inclusive gateway with its
// converging counterpart. The two are not adjacent in the node list and no
// naming convention ties them together, so the pairing is computed
// structurally: the convergence node of a fork is the earliest node (in
// topological order) reachable from every branch.
//
// Returns diverge id -> converge id; forks whose branches never reconverge
// (for example branches that run straight to separate end events) are absent.
func pairGateways(g *schema.ProcessGraph, classifications map[string]schema.ClassificationResult, ord ordering) map[string]string {
	position := make(map[string]int, len(ord.Sorted))
	for i, id := range ord.Sorted {
		position[id] = i
	}

	successors := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if e.IsLoop || ord.Removed[e.ID] {
			continue
		}
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	pairs := make(map[string]string)
	for _, id := range ord.Sorted {
		cls, ok := classifications[id]
		if !ok || cls.SubKind.Gateway == nil {
			continue
		}
		gw := cls.SubKind.Gateway
		if gw.Direction == schema.DirectionConverging {
			continue
		}
		if gw.Type != schema.GatewayParallel && gw.Type != schema.GatewayInclusive {
			continue
		}

		branches := g.Outgoing(id)
		if len(branches) < 2 {
			continue
		}

		// Intersect the reachable sets of all branches.
		var common map[string]bool
		for _, branch := range branches {
			reach := reachableFrom(branch.Target, successors)
			if common == nil {
				common = reach
				continue
			}
			for n := range common {
				if !reach[n] {
					delete(common, n)
				}
			}
		}

		// Earliest common node in topological order is the join point.
		best := ""
		bestPos := len(ord.Sorted)
		for n := range common {
			if p, ok := position[n]; ok && p < bestPos {
				best = n
				bestPos = p
			}
		}
		if best != "" {
			pairs[id] = best
		}
	}
	return pairs
}

// reachableFrom computes the set of nodes reachable from start, inclusive.
func reachableFrom(start string, successors map[string][]string) map[string]bool {
	reach := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		next := make([]string, len(successors[node]))
		copy(next, successors[node])
		sort.Strings(next)
		for _, succ := range next {
			if !reach[succ] {
				reach[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return reach
}
