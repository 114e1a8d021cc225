// Package validation checks emitted workflow documents: first against the
// document JSON Schema, then against the structural rules the schema cannot
// express (reference resolution, group membership, join wait lists).
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/flowport/flowport/pkg/schema"
)

// documentSchemaJSON is the JSON Schema for TargetWorkflowDocument.
// Embedded as a constant to avoid filesystem dependencies.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowport.dev/schemas/document.json",
  "type": "object",
  "required": ["steps", "rules", "groups"],
  "properties": {
    "name": { "type": "string" },
    "steps": {
      "type": "array",
      "items": { "$ref": "#/$defs/step" }
    },
    "rules": {
      "type": "array",
      "items": { "$ref": "#/$defs/rule" }
    },
    "groups": {
      "type": "array",
      "items": { "$ref": "#/$defs/group" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["id", "title", "kind"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": "string", "minLength": 1 },
        "kind": {
          "type": "string",
          "enum": ["task", "approval", "automation", "notification", "join"]
        },
        "source_node_id": { "type": "string" },
        "group": { "type": "string" },
        "synthetic": { "type": "boolean" },
        "deadline": { "type": "string", "minLength": 1 }
      },
      "additionalProperties": false
    },
    "rule": {
      "type": "object",
      "required": ["trigger_step_id", "action", "target_step_id"],
      "properties": {
        "trigger_step_id": { "type": "string", "minLength": 1 },
        "condition": { "type": "string" },
        "is_fallback": { "type": "boolean" },
        "action": {
          "type": "string",
          "enum": ["activate", "skip", "deadline"]
        },
        "target_step_id": { "type": "string", "minLength": 1 },
        "source_edge_id": { "type": "string" },
        "wait_for": {
          "type": "array",
          "items": { "type": "string", "minLength": 1 }
        },
        "dynamic_wait": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "group": {
      "type": "object",
      "required": ["name", "member_step_ids"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "member_step_ids": {
          "type": "array",
          "items": { "type": "string", "minLength": 1 }
        },
        "source_node_id": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// Markers a rule may reference instead of a concrete step.
const (
	startMarker = "__start__"
	endMarker   = "__end__"
)

// DocumentValidator validates workflow documents against the embedded JSON
// Schema plus structural rules. Safe for concurrent use: the compiled schema
// is read-only after construction.
type DocumentValidator struct {
	documentSchema *jsonschema.Schema
}

// NewDocumentValidator creates a DocumentValidator with the document schema
// pre-compiled.
func NewDocumentValidator() (*DocumentValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document schema: %w", err)
	}
	if err := c.AddResource("https://flowport.dev/schemas/document.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add document schema resource: %w", err)
	}

	compiled, err := c.Compile("https://flowport.dev/schemas/document.json")
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	return &DocumentValidator{documentSchema: compiled}, nil
}

// Validate checks a workflow document. Schema violations and broken
// references are both reported as VALIDATION_ERROR.
func (v *DocumentValidator) Validate(doc *schema.TargetWorkflowDocument) error {
	if doc == nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow document is nil")
	}

	jsonDoc, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize workflow document").WithCause(err)
	}
	if err := v.documentSchema.Validate(jsonDoc); err != nil {
		return toFlowportError(err)
	}

	return validateStructure(doc)
}

// validateStructure enforces the rules JSON Schema cannot express.
func validateStructure(doc *schema.TargetWorkflowDocument) error {
	steps := make(map[string]*schema.TargetStep, len(doc.Steps))
	for i := range doc.Steps {
		step := &doc.Steps[i]
		if _, exists := steps[step.ID]; exists {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate step id %q", step.ID)
		}
		steps[step.ID] = step
	}

	groups := make(map[string]bool, len(doc.Groups))
	for _, g := range doc.Groups {
		if groups[g.Name] {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate group %q", g.Name)
		}
		groups[g.Name] = true
		for _, member := range g.MemberStepIDs {
			if _, ok := steps[member]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"group %q references unknown step %q", g.Name, member)
			}
		}
	}

	for i := range doc.Steps {
		step := &doc.Steps[i]
		if step.Group != "" && !groups[step.Group] {
			return schema.NewErrorf(schema.ErrCodeValidation,
				"step %q references unknown group %q", step.ID, step.Group)
		}
	}

	for i, rule := range doc.Rules {
		if rule.TriggerStepID != startMarker {
			if _, ok := steps[rule.TriggerStepID]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %d triggers on unknown step %q", i, rule.TriggerStepID)
			}
		}
		if rule.TargetStepID != endMarker {
			if _, ok := steps[rule.TargetStepID]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %d targets unknown step %q", i, rule.TargetStepID)
			}
		}
		for _, member := range rule.WaitFor {
			if _, ok := steps[member]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %d waits for unknown step %q", i, member)
			}
		}
		if len(rule.WaitFor) > 0 {
			target := steps[rule.TargetStepID]
			if target == nil || target.Kind != schema.StepKindJoin {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"rule %d has a wait list but target %q is not a join step", i, rule.TargetStepID)
			}
		}
	}

	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toFlowportError converts a jsonschema.ValidationError into a FlowportError
// with one message per leaf violation.
func toFlowportError(err error) *schema.FlowportError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
