package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	// Title as comment.
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	// Render nodes with shapes based on kind.
	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	// Render edges.
	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", firstLine(edge.Label))
		}
		arrow := "-->"
		if edge.Dashed {
			arrow = "-.->"
		}
		b.WriteString(fmt.Sprintf("    %s %s%s %s\n",
			mermaidSafeID(edge.From), arrow, label, mermaidSafeID(edge.To)))
	}

	// Confidence class definitions.
	b.WriteString("\n")
	b.WriteString("    classDef supported fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef partial fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef unsupported fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef review stroke:#b7791a,stroke-width:3px,stroke-dasharray:5 5\n")

	// Apply confidence classes.
	for _, node := range model.Nodes {
		if node.Overlay == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("    class %s %s\n",
			mermaidSafeID(node.ID), mermaidConfidenceClass(node.Overlay)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := firstLine(node.Label)

	switch node.Kind {
	case NodeKindGateway:
		return fmt.Sprintf("%s{%q}", id, label)
	case NodeKindJoin:
		return fmt.Sprintf("%s[[%q]]", id, label)
	case NodeKindNotify:
		return fmt.Sprintf("%s([%q])", id, label)
	case NodeKindAutomate:
		return fmt.Sprintf("%s{{%q}}", id, label)
	case NodeKindStart, NodeKindEnd:
		return fmt.Sprintf("%s((%q))", id, label)
	default: // task, unknown
		return fmt.Sprintf("%s[%q]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots, dashes and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidConfidenceClass maps a confidence overlay to a Mermaid class name.
func mermaidConfidenceClass(o *ConfidenceOverlay) string {
	switch {
	case o.Confidence >= 80:
		return "supported"
	case o.Confidence >= 20:
		return "partial"
	default:
		return "unsupported"
	}
}
