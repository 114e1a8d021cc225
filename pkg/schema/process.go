package schema

// Category is the top-level structural classification of a process node.
type Category string

const (
	CategoryEvent      Category = "event"
	CategoryTask       Category = "task"
	CategoryGateway    Category = "gateway"
	CategoryDataObject Category = "data_object"
	CategoryLane       Category = "lane"
	CategoryUnknown    Category = "unknown"
)

// EventPosition locates an event within the process topology.
// Derived from in/out-degree and attachment, not from vendor markup.
type EventPosition string

const (
	PositionStart        EventPosition = "start"
	PositionIntermediate EventPosition = "intermediate"
	PositionEnd          EventPosition = "end"
	PositionBoundary     EventPosition = "boundary"
)

// EventTrigger identifies what fires an event.
type EventTrigger string

const (
	TriggerNone        EventTrigger = "none"
	TriggerMessage     EventTrigger = "message"
	TriggerTimer       EventTrigger = "timer"
	TriggerError       EventTrigger = "error"
	TriggerSignal      EventTrigger = "signal"
	TriggerEscalation  EventTrigger = "escalation"
	TriggerConditional EventTrigger = "conditional"
	TriggerTerminate   EventTrigger = "terminate"
	TriggerCompensate  EventTrigger = "compensate"
	TriggerLink        EventTrigger = "link"
)

// GatewayType is the branching discipline of a gateway.
type GatewayType string

const (
	GatewayExclusive  GatewayType = "exclusive"
	GatewayParallel   GatewayType = "parallel"
	GatewayInclusive  GatewayType = "inclusive"
	GatewayEventBased GatewayType = "event_based"
	GatewayComplex    GatewayType = "complex"
)

// GatewayDirection distinguishes forks from joins. A gateway with multiple
// incoming and multiple outgoing edges is Mixed.
type GatewayDirection string

const (
	DirectionDiverging  GatewayDirection = "diverging"
	DirectionConverging GatewayDirection = "converging"
	DirectionMixed      GatewayDirection = "mixed"
)

// TaskType is the concrete work kind of a task node.
type TaskType string

const (
	TaskUser         TaskType = "user"
	TaskService      TaskType = "service"
	TaskScript       TaskType = "script"
	TaskManual       TaskType = "manual"
	TaskSend         TaskType = "send"
	TaskReceive      TaskType = "receive"
	TaskBusinessRule TaskType = "business_rule"
	TaskGeneric      TaskType = "generic"
	TaskSubProcess   TaskType = "subprocess"
	TaskCallActivity TaskType = "call_activity"
)

// SubKind is a structured tag of orthogonal axes rather than one flat enum.
// Exactly one of Event, Gateway, Task is set for the matching category;
// Unclassified marks nodes the classifier could not resolve.
type SubKind struct {
	Event        *EventDetail   `json:"event,omitempty"`
	Gateway      *GatewayDetail `json:"gateway,omitempty"`
	Task         *TaskDetail    `json:"task,omitempty"`
	Unclassified bool           `json:"unclassified,omitempty"`
}

// EventDetail is position x trigger x interrupt-behavior.
type EventDetail struct {
	Position     EventPosition `json:"position"`
	Trigger      EventTrigger  `json:"trigger"`
	Interrupting bool          `json:"interrupting"`
}

// GatewayDetail is type x direction.
type GatewayDetail struct {
	Type      GatewayType      `json:"type"`
	Direction GatewayDirection `json:"direction"`
}

// TaskDetail is work kind plus wrapper markers.
type TaskDetail struct {
	Type          TaskType `json:"type"`
	MultiInstance bool     `json:"multi_instance,omitempty"`
	Loop          bool     `json:"loop,omitempty"`
}

// ProcessNode is a single element of the parsed process graph.
// Created once during parsing and immutable thereafter.
type ProcessNode struct {
	ID            string            `json:"id"`
	Category      Category          `json:"category"`
	SubKind       SubKind           `json:"subkind"`
	Label         string            `json:"label,omitempty"`
	RawAttributes map[string]string `json:"raw_attributes,omitempty"`
	Container     string            `json:"container,omitempty"`   // owning lane or pool id
	AttachedTo    string            `json:"attached_to,omitempty"` // host node for boundary events
}

// ProcessEdge is a sequence flow between two nodes. Declaration order
// matters: it determines default-flow tie-breaking and branch enumeration.
type ProcessEdge struct {
	ID                string `json:"id"`
	Source            string `json:"source"`
	Target            string `json:"target"`
	Condition         string `json:"condition,omitempty"`
	ConditionLanguage string `json:"condition_language,omitempty"`
	IsDefault         bool   `json:"is_default,omitempty"`
	IsLoop            bool   `json:"is_loop,omitempty"` // explicitly marked loop back-edge
}

// ProcessGraph is the parsed source document: nodes keyed by id plus the
// ordered edge list. The graph may be disconnected (multiple start events)
// and must be acyclic except for edges marked IsLoop.
type ProcessGraph struct {
	ProcessID string                  `json:"process_id"`
	Name      string                  `json:"name,omitempty"`
	Nodes     map[string]*ProcessNode `json:"nodes"`
	Edges     []ProcessEdge           `json:"edges"`
	Lanes     map[string]string       `json:"lanes,omitempty"` // lane id -> parent lane/pool id
}

// Node returns the node with the given id, or nil.
func (g *ProcessGraph) Node(id string) *ProcessNode {
	return g.Nodes[id]
}

// Outgoing returns the outgoing edges of a node in declaration order.
func (g *ProcessGraph) Outgoing(nodeID string) []ProcessEdge {
	var out []ProcessEdge
	for _, e := range g.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the incoming edges of a node in declaration order.
func (g *ProcessGraph) Incoming(nodeID string) []ProcessEdge {
	var in []ProcessEdge
	for _, e := range g.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// StructuralContext captures graph-local facts the rule table needs to
// judge a node: degrees, default-edge presence, boundary attachment, and
// container nesting. Computed once per classification run.
type StructuralContext struct {
	InDegree       int      `json:"in_degree"`
	OutDegree      int      `json:"out_degree"`
	ConditionCount int      `json:"condition_count"`
	HasDefaultEdge bool     `json:"has_default_edge"`
	AttachedToID   string   `json:"attached_to_id,omitempty"`
	HostCategory   Category `json:"host_category,omitempty"`
	HostTaskType   TaskType `json:"host_task_type,omitempty"`
	ContainerDepth int      `json:"container_depth"`
	MultiInstance  bool     `json:"multi_instance,omitempty"`
}

// ClassificationResult is the per-node output of the classifier,
// cached for the life of a transformation run.
type ClassificationResult struct {
	NodeID   string            `json:"node_id"`
	Category Category          `json:"category"`
	SubKind  SubKind           `json:"subkind"`
	Context  StructuralContext `json:"context"`
}
