package ruletable

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/flowport/flowport/internal/expressions"
	"github.com/flowport/flowport/pkg/schema"
)

//go:embed rules.yaml
var embeddedRules []byte

// ruleSchemaJSON is the JSON Schema for rule table files.
// Embedded as a constant to avoid filesystem dependencies.
const ruleSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowport.dev/schemas/ruletable.json",
  "type": "object",
  "required": ["version", "rules"],
  "properties": {
    "version": { "type": "string", "minLength": 1 },
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/rule" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "rule": {
      "type": "object",
      "required": ["id", "match", "target_kind", "confidence", "rationale"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "match": { "$ref": "#/$defs/pattern" },
        "target_kind": {
          "type": "string",
          "enum": ["task", "approval", "automation", "notification", "join", "none"]
        },
        "confidence": { "type": "integer", "minimum": 0, "maximum": 100 },
        "rationale": { "type": "string", "minLength": 1 },
        "adjustments": {
          "type": "array",
          "items": { "$ref": "#/$defs/adjustment" }
        }
      },
      "additionalProperties": false
    },
    "pattern": {
      "type": "object",
      "required": ["category"],
      "properties": {
        "category": {
          "type": "string",
          "enum": ["event", "task", "gateway", "data_object", "lane", "unknown"]
        },
        "position": {
          "type": "string",
          "enum": ["start", "intermediate", "end", "boundary"]
        },
        "trigger": { "type": "string" },
        "interrupting": { "type": "boolean" },
        "gateway_type": {
          "type": "string",
          "enum": ["exclusive", "parallel", "inclusive", "event_based", "complex"]
        },
        "direction": {
          "type": "string",
          "enum": ["diverging", "converging", "mixed"]
        },
        "task_type": { "type": "string" },
        "host_task_type": { "type": "string" },
        "attr_query": { "type": "string" }
      },
      "additionalProperties": false
    },
    "adjustment": {
      "type": "object",
      "required": ["when", "delta"],
      "properties": {
        "when": { "type": "string", "minLength": 1 },
        "delta": { "type": "integer", "minimum": -100, "maximum": 100 },
        "note": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// ruleFile is the YAML document shape.
type ruleFile struct {
	Version string        `yaml:"version" json:"version"`
	Rules   []MappingRule `yaml:"rules" json:"rules"`
}

// Load returns the embedded default capability table.
func Load() (*Table, error) {
	return LoadBytes(embeddedRules)
}

// LoadBytes parses, schema-validates, and structurally validates a YAML rule
// table. Invalid tables fail here, at startup, never mid-transformation.
func LoadBytes(raw []byte) (*Table, error) {
	var doc ruleFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"rule table is not valid YAML: %s", err.Error()).WithCause(err)
	}

	if err := validateAgainstSchema(&doc); err != nil {
		return nil, err
	}

	t := &Table{
		Version: doc.Version,
		rules:   doc.Rules,
		jq:      expressions.NewGoJQEngine(),
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// compiledRuleSchema is built once; the schema constant is trusted input.
var compiledRuleSchema = mustCompileRuleSchema()

func mustCompileRuleSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(ruleSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("ruletable: unmarshal schema: %v", err))
	}
	if err := c.AddResource("https://flowport.dev/schemas/ruletable.json", doc); err != nil {
		panic(fmt.Sprintf("ruletable: add schema resource: %v", err))
	}
	s, err := c.Compile("https://flowport.dev/schemas/ruletable.json")
	if err != nil {
		panic(fmt.Sprintf("ruletable: compile schema: %v", err))
	}
	return s
}

// validateAgainstSchema round-trips the document through JSON encoding so
// numbers become json.Number as the jsonschema library requires.
func validateAgainstSchema(doc *ruleFile) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize rule table").WithCause(err)
	}
	val, err := jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to reparse rule table").WithCause(err)
	}
	if err := compiledRuleSchema.Validate(val); err != nil {
		return toFlowportError(err)
	}
	return nil
}

// toFlowportError converts a jsonschema.ValidationError into a structured
// error with one violation message per leaf cause.
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
	msg := fmt.Sprintf("rule table validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
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
