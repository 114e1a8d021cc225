// Package expressions provides compile-cached expression engines used to
// syntax-check gateway conditions and to evaluate rule-table attribute
// queries. The transformer never executes a process, so conditions are
// validated for well-formedness, not run against live data.
package expressions

import "context"

// Engine evaluates expressions in one language.
// Implementations must be safe for concurrent use.
type Engine interface {
	// Name returns the engine identifier.
	Name() string
	// Validate compiles the expression and reports whether it is
	// well-formed, without evaluating it.
	Validate(expression string) error
	// Evaluate compiles (or retrieves from cache) the expression and
	// evaluates it against the provided data.
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Registry holds one engine per condition language and picks the engine for
// a BPMN condition by its declared language attribute.
type Registry struct {
	cel  *CELEngine
	expr *ExprEngine
	jq   *GoJQEngine
}

// NewRegistry constructs a registry with all engines ready.
func NewRegistry() (*Registry, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Registry{
		cel:  celEngine,
		expr: NewExprEngine(),
		jq:   NewGoJQEngine(),
	}, nil
}

// ForLanguage returns the engine for a condition-expression language
// attribute. CEL is selected explicitly; everything else, including the
// default XPath/JUEL URIs that vendors emit, falls back to expr, whose
// syntax is the closest match for the infix conditions found in practice.
func (r *Registry) ForLanguage(language string) Engine {
	switch language {
	case "cel", "CEL":
		return r.cel
	default:
		return r.expr
	}
}

// JQ returns the jq engine used for rule-table attribute queries.
func (r *Registry) JQ() *GoJQEngine {
	return r.jq
}
