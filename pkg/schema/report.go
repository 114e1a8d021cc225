package schema

// DefaultReviewThreshold is the confidence below which a decision is
// flagged for human review.
const DefaultReviewThreshold = 60

// MappingDecision records how one source node was mapped. Immutable once
// emitted; every node of the input graph yields exactly one decision.
type MappingDecision struct {
	NodeID         string         `json:"node_id"`
	TargetKind     TargetStepKind `json:"target_kind"`
	Confidence     int            `json:"confidence"` // 0-100
	Rationale      string         `json:"rationale"`
	RequiresReview bool           `json:"requires_review"`
	RuleID         string         `json:"rule_id,omitempty"`
}

// ComplexityLevel buckets the overall migration difficulty.
type ComplexityLevel string

const (
	ComplexitySimple     ComplexityLevel = "simple"
	ComplexityModerate   ComplexityLevel = "moderate"
	ComplexityComplex    ComplexityLevel = "complex"
	ComplexityImpossible ComplexityLevel = "impossible"
)

// Metrics are the aggregate structural measurements of a process graph.
type Metrics struct {
	NodeCount        int     `json:"node_count"`
	EdgeCount        int     `json:"edge_count"`
	GatewayCount     int     `json:"gateway_count"`
	BranchingFactor  int     `json:"branching_factor"`  // max out-degree among gateways
	MaxNestingDepth  int     `json:"max_nesting_depth"` // longest container chain
	UnsupportedRatio float64 `json:"unsupported_ratio"` // confidence==0 nodes / node count
}

// Analysis is the analyzer output: graph-level feasibility plus metrics.
type Analysis struct {
	FeasibilityScore int             `json:"feasibility_score"` // 0-100
	ComplexityLevel  ComplexityLevel `json:"complexity_level"`
	Metrics          Metrics         `json:"metrics"`
}

// MigrationReport is the complete account of a single transformation:
// what migrated, what partially migrated, what could not, and why.
type MigrationReport struct {
	ProcessID        string            `json:"process_id"`
	FeasibilityScore int               `json:"feasibility_score"`
	ComplexityLevel  ComplexityLevel   `json:"complexity_level"`
	Metrics          Metrics           `json:"metrics"`
	Supported        []MappingDecision `json:"supported"`
	Partial          []MappingDecision `json:"partial"`
	Unsupported      []MappingDecision `json:"unsupported"`
	Warnings         []string          `json:"warnings"`
}

// Decisions returns all decisions in report order: supported, partial,
// then unsupported, each bucket preserving original node order.
func (r *MigrationReport) Decisions() []MappingDecision {
	out := make([]MappingDecision, 0, len(r.Supported)+len(r.Partial)+len(r.Unsupported))
	out = append(out, r.Supported...)
	out = append(out, r.Partial...)
	out = append(out, r.Unsupported...)
	return out
}
