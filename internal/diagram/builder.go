package diagram

import (
	"sort"
	"strings"

	"github.com/flowport/flowport/pkg/schema"
)

// BuildSource converts a parsed process graph into a diagram model. When a
// report is given, its decisions become confidence overlays on the nodes.
// Nodes are emitted in sorted-id order so rendering is deterministic.
func BuildSource(g *schema.ProcessGraph, rep *schema.MigrationReport) *Model {
	overlays := make(map[string]*ConfidenceOverlay)
	if rep != nil {
		for _, d := range rep.Decisions() {
			overlays[d.NodeID] = &ConfidenceOverlay{
				Confidence:     d.Confidence,
				RequiresReview: d.RequiresReview,
			}
		}
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	inDegree := make(map[string]int, len(g.Nodes))
	outDegree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		outDegree[e.Source]++
		inDegree[e.Target]++
	}

	m := &Model{Title: g.Name}
	for _, id := range ids {
		node := g.Nodes[id]
		if node.Category == schema.CategoryLane {
			continue
		}
		m.Nodes = append(m.Nodes, &Node{
			ID:      id,
			Label:   labelOrID(node.Label, id),
			Kind:    sourceKind(node, inDegree[id], outDegree[id]),
			Overlay: overlays[id],
		})
	}

	for _, e := range g.Edges {
		m.Edges = append(m.Edges, Edge{
			From:   e.Source,
			To:     e.Target,
			Label:  e.Condition,
			Dashed: e.Condition != "" || e.IsDefault,
		})
	}
	return m
}

// BuildTarget converts a target workflow document into a diagram model:
// steps chained in order, with activation rules as dashed labeled edges.
func BuildTarget(doc *schema.TargetWorkflowDocument) *Model {
	m := &Model{Title: doc.Name}

	ruleTargets := make(map[string]bool)
	for _, r := range doc.Rules {
		if r.Action == schema.ActionActivate {
			ruleTargets[r.TargetStepID] = true
		}
	}

	for _, step := range doc.Steps {
		kind := NodeKindTask
		switch step.Kind {
		case schema.StepKindAutomate:
			kind = NodeKindAutomate
		case schema.StepKindNotify:
			kind = NodeKindNotify
		case schema.StepKindJoin:
			kind = NodeKindJoin
		}
		m.Nodes = append(m.Nodes, &Node{
			ID:    step.ID,
			Label: step.Title,
			Kind:  kind,
		})
	}

	// Chain consecutive steps, skipping into rule-activated steps: those are
	// reached through their rules, not through list order.
	for i := 0; i+1 < len(doc.Steps); i++ {
		next := doc.Steps[i+1]
		if ruleTargets[next.ID] {
			continue
		}
		m.Edges = append(m.Edges, Edge{From: doc.Steps[i].ID, To: next.ID})
	}

	for _, r := range doc.Rules {
		from := r.TriggerStepID
		to := r.TargetStepID
		if from == "" || to == "" {
			continue
		}
		label := r.Condition
		if r.IsFallback {
			label = "otherwise"
		}
		if r.Action == schema.ActionDeadline {
			label = "deadline"
		}
		m.Edges = append(m.Edges, Edge{From: from, To: to, Label: label, Dashed: true})
	}
	return m
}

// sourceKind maps a graph node to its diagram shape. Event position is
// derived from edge degree: no outgoing flows means an end event, no incoming
// flows a start event.
func sourceKind(node *schema.ProcessNode, in, out int) NodeKind {
	switch node.Category {
	case schema.CategoryEvent:
		if out == 0 {
			return NodeKindEnd
		}
		if in == 0 {
			return NodeKindStart
		}
		return NodeKindTask
	case schema.CategoryGateway:
		return NodeKindGateway
	case schema.CategoryTask:
		if t := node.SubKind.Task; t != nil {
			switch t.Type {
			case schema.TaskService, schema.TaskScript, schema.TaskBusinessRule:
				return NodeKindAutomate
			case schema.TaskSend:
				return NodeKindNotify
			}
		}
		return NodeKindTask
	}
	return NodeKindUnknown
}

func labelOrID(label, id string) string {
	if label != "" {
		return label
	}
	return id
}

// firstLine truncates multi-line labels so node boxes stay readable.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
