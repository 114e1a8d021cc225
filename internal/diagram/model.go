// Package diagram renders process graphs and target workflows as Mermaid
// flowcharts or PNG images, so migration reviews can see what the
// transformer did instead of reading raw JSON.
package diagram

// NodeKind classifies a diagram node by its shape.
type NodeKind string

const (
	NodeKindStart    NodeKind = "start"
	NodeKindEnd      NodeKind = "end"
	NodeKindTask     NodeKind = "task"
	NodeKindAutomate NodeKind = "automation"
	NodeKindNotify   NodeKind = "notification"
	NodeKindGateway  NodeKind = "gateway"
	NodeKindJoin     NodeKind = "join"
	NodeKindUnknown  NodeKind = "unknown"
)

// Model is the intermediate representation used by all renderers.
type Model struct {
	Title string
	Nodes []*Node
	Edges []Edge
}

// Node represents a single element of the diagram.
type Node struct {
	ID      string
	Label   string
	Kind    NodeKind
	Overlay *ConfidenceOverlay
}

// ConfidenceOverlay colors a node by its mapping decision.
type ConfidenceOverlay struct {
	Confidence     int
	RequiresReview bool
}

// Edge connects two nodes. Dashed edges mark conditional activation.
type Edge struct {
	From   string
	To     string
	Label  string
	Dashed bool
}
