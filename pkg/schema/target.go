package schema

// TargetStepKind enumerates the step kinds of the destination model.
type TargetStepKind string

const (
	StepKindTask     TargetStepKind = "task"
	StepKindApproval TargetStepKind = "approval"
	StepKindAutomate TargetStepKind = "automation"
	StepKindNotify   TargetStepKind = "notification"
	StepKindJoin     TargetStepKind = "join"
	StepKindNone     TargetStepKind = "none" // decision recorded, no step emitted
)

// RuleAction is what a target rule does when its condition holds.
type RuleAction string

const (
	ActionActivate RuleAction = "activate"
	ActionSkip     RuleAction = "skip"
	ActionDeadline RuleAction = "deadline"
)

// TargetStep is one ordered step of the destination sequential workflow.
// SourceNodeID links back to the originating process node for traceability.
type TargetStep struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Kind         TargetStepKind `json:"kind"`
	SourceNodeID string         `json:"source_node_id,omitempty"`
	Group        string         `json:"group,omitempty"`
	Synthetic    bool           `json:"synthetic,omitempty"` // inserted by the transformer (join steps)
	Deadline     string         `json:"deadline,omitempty"`  // ISO-8601 duration or cron cycle
}

// TargetRule emulates gateway branching: when Condition holds at
// TriggerStepID, Action is applied to TargetStepID. A rule's condition is
// only allowed to reference data visible at or before its trigger step.
type TargetRule struct {
	TriggerStepID string     `json:"trigger_step_id"`
	Condition     string     `json:"condition,omitempty"`
	IsFallback    bool       `json:"is_fallback,omitempty"` // fires when no sibling condition matched
	Action        RuleAction `json:"action"`
	TargetStepID  string     `json:"target_step_id"`
	SourceEdgeID  string     `json:"source_edge_id,omitempty"`
	// WaitFor lists group member steps that must complete before the rule
	// fires. Used by join-step activation rules.
	WaitFor []string `json:"wait_for,omitempty"`
	// DynamicWait marks an inclusive join: wait only for WaitFor members
	// whose branch-activation flag was set at the matching diverge.
	DynamicWait bool `json:"dynamic_wait,omitempty"`
}

// TargetGroup emulates parallel fan-out: all member steps are reachable
// immediately after the fork, with no native concurrency in the target.
type TargetGroup struct {
	Name          string   `json:"name"`
	MemberStepIDs []string `json:"member_step_ids"`
	SourceNodeID  string   `json:"source_node_id,omitempty"`
}

// TargetWorkflowDocument is the transformed output: ordered steps plus the
// rules and groups that emulate the source graph's branching semantics.
type TargetWorkflowDocument struct {
	Name   string        `json:"name,omitempty"`
	Steps  []TargetStep  `json:"steps"`
	Rules  []TargetRule  `json:"rules"`
	Groups []TargetGroup `json:"groups"`
}

// Step returns the step with the given id, or nil.
func (d *TargetWorkflowDocument) Step(id string) *TargetStep {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}
	return nil
}

// StepForNode returns the first step emitted for the given source node, or nil.
func (d *TargetWorkflowDocument) StepForNode(nodeID string) *TargetStep {
	for i := range d.Steps {
		if d.Steps[i].SourceNodeID == nodeID {
			return &d.Steps[i]
		}
	}
	return nil
}
