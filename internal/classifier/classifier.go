// Package classifier assigns every process node its structural category and
// sub-kind. It is a pure function of the graph: topology-derived facts
// (event position, gateway direction, boundary attachment) are resolved here
// from in/out-degrees rather than trusted from vendor markup.
package classifier

import (
	"github.com/flowport/flowport/pkg/schema"
)

// Classify computes one ClassificationResult per node. Deterministic, no
// I/O; results are cached by callers for the life of a transformation run.
// An unrecognized category is not fatal: it flows through as
// CategoryUnknown/Unclassified and becomes a zero-confidence decision
// downstream instead of crashing the pipeline.
func Classify(g *schema.ProcessGraph) map[string]schema.ClassificationResult {
	inDegree := make(map[string]int, len(g.Nodes))
	outDegree := make(map[string]int, len(g.Nodes))
	conditions := make(map[string]int, len(g.Nodes))
	hasDefault := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		outDegree[e.Source]++
		inDegree[e.Target]++
		if e.Condition != "" {
			conditions[e.Source]++
		}
		if e.IsDefault {
			hasDefault[e.Source] = true
		}
	}

	results := make(map[string]schema.ClassificationResult, len(g.Nodes))
	for id, node := range g.Nodes {
		ctx := schema.StructuralContext{
			InDegree:       inDegree[id],
			OutDegree:      outDegree[id],
			ConditionCount: conditions[id],
			HasDefaultEdge: hasDefault[id],
			ContainerDepth: containerDepth(g, node),
		}

		sub := node.SubKind
		switch node.Category {
		case schema.CategoryEvent:
			sub = classifyEvent(g, node, ctx, sub)
			if node.AttachedTo != "" {
				ctx.AttachedToID = node.AttachedTo
				if host := g.Nodes[node.AttachedTo]; host != nil {
					ctx.HostCategory = host.Category
					if host.SubKind.Task != nil {
						ctx.HostTaskType = host.SubKind.Task.Type
					}
				}
			}
		case schema.CategoryGateway:
			sub = classifyGateway(ctx, sub)
		case schema.CategoryTask:
			if sub.Task == nil {
				sub.Task = &schema.TaskDetail{Type: schema.TaskGeneric}
			}
			ctx.MultiInstance = sub.Task.MultiInstance || insideMultiInstance(g, node)
		case schema.CategoryDataObject, schema.CategoryLane:
			// Structural category is enough; no sub-kind axes apply.
		default:
			sub = schema.SubKind{Unclassified: true}
		}

		results[id] = schema.ClassificationResult{
			NodeID:   id,
			Category: node.Category,
			SubKind:  sub,
			Context:  ctx,
		}
	}
	return results
}

// classifyEvent resolves the position axis from topology: boundary from
// attachment, start from zero in-degree, end from zero out-degree,
// intermediate otherwise. Trigger and interrupt flags were captured by the
// parser from event-definition children.
func classifyEvent(g *schema.ProcessGraph, node *schema.ProcessNode, ctx schema.StructuralContext, sub schema.SubKind) schema.SubKind {
	detail := sub.Event
	if detail == nil {
		detail = &schema.EventDetail{Trigger: schema.TriggerNone, Interrupting: true}
	}
	copied := *detail
	switch {
	case node.AttachedTo != "":
		copied.Position = schema.PositionBoundary
	case ctx.InDegree == 0:
		copied.Position = schema.PositionStart
	case ctx.OutDegree == 0:
		copied.Position = schema.PositionEnd
	default:
		copied.Position = schema.PositionIntermediate
	}
	sub.Event = &copied
	return sub
}

// classifyGateway resolves the direction axis. A gateway with one incoming
// and many outgoing edges diverges; many incoming and one outgoing
// converges; many of both is mixed and both aspects apply.
func classifyGateway(ctx schema.StructuralContext, sub schema.SubKind) schema.SubKind {
	detail := sub.Gateway
	if detail == nil {
		detail = &schema.GatewayDetail{Type: schema.GatewayExclusive}
	}
	copied := *detail
	switch {
	case ctx.InDegree > 1 && ctx.OutDegree > 1:
		copied.Direction = schema.DirectionMixed
	case ctx.InDegree > 1:
		copied.Direction = schema.DirectionConverging
	default:
		copied.Direction = schema.DirectionDiverging
	}
	sub.Gateway = &copied
	return sub
}

// containerDepth walks the container chain (lanes, pools, subprocesses) to
// the root. Used for the analyzer's nesting-depth metric.
func containerDepth(g *schema.ProcessGraph, node *schema.ProcessNode) int {
	depth := 0
	seen := map[string]bool{node.ID: true}
	container := node.Container
	for container != "" && !seen[container] {
		seen[container] = true
		depth++
		if parent, ok := g.Lanes[container]; ok {
			container = parent
			continue
		}
		if c := g.Nodes[container]; c != nil {
			container = c.Container
			continue
		}
		break
	}
	return depth
}

// insideMultiInstance reports whether any enclosing subprocess carries a
// multi-instance wrapper. Target-mapping for such tasks differs because the
// destination model has no per-item instantiation.
func insideMultiInstance(g *schema.ProcessGraph, node *schema.ProcessNode) bool {
	seen := map[string]bool{node.ID: true}
	container := node.Container
	for container != "" && !seen[container] {
		seen[container] = true
		c := g.Nodes[container]
		if c == nil {
			return false
		}
		if c.SubKind.Task != nil && c.SubKind.Task.MultiInstance {
			return true
		}
		container = c.Container
	}
	return false
}
