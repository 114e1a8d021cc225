// Package ruletable holds the versioned capability rule table: an ordered
// list of pattern -> rule entries mapping (category, subkind, structural
// context) to a target construct kind with a confidence score. The table is
// pure data, loaded once per process and shared read-only.
package ruletable

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowport/flowport/internal/expressions"
	"github.com/flowport/flowport/pkg/schema"
)

// Adjustment raises or lowers a rule's confidence when a named structural
// predicate holds for the node under consideration.
type Adjustment struct {
	When  string `yaml:"when" json:"when"`
	Delta int    `yaml:"delta" json:"delta"`
	Note  string `yaml:"note,omitempty" json:"note,omitempty"`
}

// Pattern selects the nodes a rule applies to. Empty fields are wildcards;
// all set fields must match. AttrQuery is a jq expression evaluated against
// the node's raw attributes; the rule matches only if it yields a truthy value.
type Pattern struct {
	Category     string `yaml:"category" json:"category"`
	Position     string `yaml:"position,omitempty" json:"position,omitempty"`
	Trigger      string `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Interrupting *bool  `yaml:"interrupting,omitempty" json:"interrupting,omitempty"`
	GatewayType  string `yaml:"gateway_type,omitempty" json:"gateway_type,omitempty"`
	Direction    string `yaml:"direction,omitempty" json:"direction,omitempty"`
	TaskType     string `yaml:"task_type,omitempty" json:"task_type,omitempty"`
	HostTaskType string `yaml:"host_task_type,omitempty" json:"host_task_type,omitempty"`
	AttrQuery    string `yaml:"attr_query,omitempty" json:"attr_query,omitempty"`
}

// MappingRule is one entry of the capability table.
type MappingRule struct {
	ID          string       `yaml:"id" json:"id"`
	Match       Pattern      `yaml:"match" json:"match"`
	TargetKind  string       `yaml:"target_kind" json:"target_kind"`
	Confidence  int          `yaml:"confidence" json:"confidence"`
	Rationale   string       `yaml:"rationale" json:"rationale"`
	Adjustments []Adjustment `yaml:"adjustments,omitempty" json:"adjustments,omitempty"`
}

// Resolution is the outcome of a table lookup after adjustments.
type Resolution struct {
	RuleID     string
	TargetKind schema.TargetStepKind
	Confidence int
	Rationale  string
}

// Table is an immutable, ordered capability table. Most-specific rules are
// declared first; the first match wins, tie-broken by declaration order.
type Table struct {
	Version string
	rules   []MappingRule
	jq      *expressions.GoJQEngine
}

// Rules returns the table entries in declaration order.
func (t *Table) Rules() []MappingRule {
	return t.rules
}

// Lookup resolves the mapping for one classified node. Absence of a match is
// an ordinary, representable outcome: a synthetic unmappable resolution with
// confidence 0 is returned and no error is ever raised for a gap.
func (t *Table) Lookup(ctx context.Context, cls schema.ClassificationResult, attrs map[string]string) Resolution {
	for i := range t.rules {
		rule := &t.rules[i]
		ok, err := t.matches(ctx, &rule.Match, cls, attrs)
		if err != nil {
			// A broken attr query disqualifies the rule, it does not
			// abort the lookup.
			continue
		}
		if ok {
			return t.resolve(rule, cls)
		}
	}
	return Resolution{
		RuleID:     "unmappable",
		TargetKind: schema.StepKindNone,
		Confidence: 0,
		Rationale:  fmt.Sprintf("no rule for category %q / subkind %s", cls.Category, subkindLabel(cls.SubKind)),
	}
}

// resolve applies the rule's context adjustments and clamps the result.
func (t *Table) resolve(rule *MappingRule, cls schema.ClassificationResult) Resolution {
	confidence := rule.Confidence
	rationale := rule.Rationale
	for _, adj := range rule.Adjustments {
		if !predicateHolds(adj.When, cls) {
			continue
		}
		confidence += adj.Delta
		if adj.Note != "" {
			rationale = fmt.Sprintf("%s; adjusted %+d: %s", rationale, adj.Delta, adj.Note)
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return Resolution{
		RuleID:     rule.ID,
		TargetKind: schema.TargetStepKind(rule.TargetKind),
		Confidence: confidence,
		Rationale:  rationale,
	}
}

// matches checks one pattern against a classification result.
func (t *Table) matches(ctx context.Context, p *Pattern, cls schema.ClassificationResult, attrs map[string]string) (bool, error) {
	if p.Category != string(cls.Category) {
		return false, nil
	}

	if ev := cls.SubKind.Event; ev != nil {
		if p.Position != "" && p.Position != string(ev.Position) {
			return false, nil
		}
		if p.Trigger != "" && p.Trigger != string(ev.Trigger) {
			return false, nil
		}
		if p.Interrupting != nil && *p.Interrupting != ev.Interrupting {
			return false, nil
		}
	} else if p.Position != "" || p.Trigger != "" || p.Interrupting != nil {
		return false, nil
	}

	if gw := cls.SubKind.Gateway; gw != nil {
		if p.GatewayType != "" && p.GatewayType != string(gw.Type) {
			return false, nil
		}
		// A mixed gateway both diverges and converges; diverging rules
		// apply because branch rewriting is still required.
		if p.Direction != "" && p.Direction != string(gw.Direction) &&
			!(p.Direction == string(schema.DirectionDiverging) && gw.Direction == schema.DirectionMixed) {
			return false, nil
		}
	} else if p.GatewayType != "" || p.Direction != "" {
		return false, nil
	}

	if task := cls.SubKind.Task; task != nil {
		if p.TaskType != "" && p.TaskType != string(task.Type) {
			return false, nil
		}
	} else if p.TaskType != "" {
		return false, nil
	}

	if p.HostTaskType != "" && p.HostTaskType != string(cls.Context.HostTaskType) {
		return false, nil
	}

	if p.AttrQuery != "" {
		return t.jq.MatchAttributes(ctx, p.AttrQuery, attrs)
	}
	return true, nil
}

// predicateHolds evaluates a named adjustment predicate against the node's
// classification. Unknown predicate names never hold; the loader rejects
// them up front.
func predicateHolds(name string, cls schema.ClassificationResult) bool {
	switch name {
	case "no_default_edge":
		return !cls.Context.HasDefaultEdge
	case "has_default_edge":
		return cls.Context.HasDefaultEdge
	case "multi_instance":
		return cls.Context.MultiInstance ||
			(cls.SubKind.Task != nil && cls.SubKind.Task.MultiInstance)
	case "loop_marker":
		return cls.SubKind.Task != nil && cls.SubKind.Task.Loop
	case "non_interrupting":
		return cls.SubKind.Event != nil && !cls.SubKind.Event.Interrupting
	case "high_fanout":
		return cls.Context.OutDegree > 3
	case "deep_nesting":
		return cls.Context.ContainerDepth > 2
	case "unconditional_branches":
		return cls.Context.OutDegree > 1 && cls.Context.ConditionCount == 0
	default:
		return false
	}
}

// knownPredicates lists the adjustment predicates the loader accepts.
var knownPredicates = []string{
	"no_default_edge", "has_default_edge", "multi_instance", "loop_marker",
	"non_interrupting", "high_fanout", "deep_nesting", "unconditional_branches",
}

// subkindLabel renders a subkind for rationale strings.
func subkindLabel(sub schema.SubKind) string {
	switch {
	case sub.Event != nil:
		return fmt.Sprintf("event(%s/%s)", sub.Event.Position, sub.Event.Trigger)
	case sub.Gateway != nil:
		return fmt.Sprintf("gateway(%s/%s)", sub.Gateway.Type, sub.Gateway.Direction)
	case sub.Task != nil:
		return fmt.Sprintf("task(%s)", sub.Task.Type)
	case sub.Unclassified:
		return "unclassified"
	}
	return "none"
}

// validTargetKinds is the set of target construct kinds rules may declare.
var validTargetKinds = map[string]bool{
	string(schema.StepKindTask):     true,
	string(schema.StepKindApproval): true,
	string(schema.StepKindAutomate): true,
	string(schema.StepKindNotify):   true,
	string(schema.StepKindJoin):     true,
	string(schema.StepKindNone):     true,
}

// validate checks cross-field rule constraints the JSON Schema cannot express.
func (t *Table) validate() error {
	seen := make(map[string]bool, len(t.rules))
	for i := range t.rules {
		r := &t.rules[i]
		if seen[r.ID] {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
		if !validTargetKinds[r.TargetKind] {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"rule %q has unknown target_kind %q", r.ID, r.TargetKind)
		}
		for _, adj := range r.Adjustments {
			if !contains(knownPredicates, adj.When) {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %q has unknown adjustment predicate %q (known: %s)",
					r.ID, adj.When, strings.Join(knownPredicates, ", "))
			}
		}
		if r.Match.AttrQuery != "" {
			if err := t.jq.Validate(r.Match.AttrQuery); err != nil {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %q has invalid attr_query: %s", r.ID, err.Error()).WithCause(err)
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
