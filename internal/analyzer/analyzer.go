// Package analyzer scores a classified process graph: aggregate structural
// metrics, an overall feasibility score, and a complexity bucket. It runs on
// the transformer's decisions rather than re-judging nodes, so the report
// and the analysis can never disagree about a node.
package analyzer

import (
	"github.com/flowport/flowport/pkg/schema"
)

// Thresholds are the complexity bucket boundaries on the feasibility score.
type Thresholds struct {
	Simple   int
	Moderate int
	Complex  int
}

// DefaultThresholds returns the documented bucket boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Simple: 80, Moderate: 50, Complex: 20}
}

// Analyze computes metrics and feasibility for one graph and its decisions.
// Deterministic; an empty graph scores 100 and classifies as simple.
func Analyze(g *schema.ProcessGraph, classifications map[string]schema.ClassificationResult, decisions []schema.MappingDecision, th Thresholds) schema.Analysis {
	if th.Simple == 0 && th.Moderate == 0 && th.Complex == 0 {
		th = DefaultThresholds()
	}

	metrics := computeMetrics(g, classifications, decisions)
	score := feasibility(decisions)

	return schema.Analysis{
		FeasibilityScore: score,
		ComplexityLevel:  bucket(score, th),
		Metrics:          metrics,
	}
}

// feasibility is the clamped mean decision confidence. Every node counts,
// including zero-confidence ones; a graph full of unmappable constructs
// scores accordingly low instead of being excluded from its own average.
func feasibility(decisions []schema.MappingDecision) int {
	if len(decisions) == 0 {
		return 100
	}
	sum := 0
	for _, d := range decisions {
		sum += d.Confidence
	}
	score := sum / len(decisions)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func bucket(score int, th Thresholds) schema.ComplexityLevel {
	switch {
	case score >= th.Simple:
		return schema.ComplexitySimple
	case score >= th.Moderate:
		return schema.ComplexityModerate
	case score >= th.Complex:
		return schema.ComplexityComplex
	default:
		return schema.ComplexityImpossible
	}
}

func computeMetrics(g *schema.ProcessGraph, classifications map[string]schema.ClassificationResult, decisions []schema.MappingDecision) schema.Metrics {
	m := schema.Metrics{
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}

	for id, node := range g.Nodes {
		if node.Category != schema.CategoryGateway {
			continue
		}
		m.GatewayCount++
		if cls, ok := classifications[id]; ok && cls.Context.OutDegree > m.BranchingFactor {
			m.BranchingFactor = cls.Context.OutDegree
		}
	}

	for _, cls := range classifications {
		if cls.Context.ContainerDepth > m.MaxNestingDepth {
			m.MaxNestingDepth = cls.Context.ContainerDepth
		}
	}

	if len(decisions) > 0 {
		unsupported := 0
		for _, d := range decisions {
			if d.Confidence == 0 {
				unsupported++
			}
		}
		m.UnsupportedRatio = float64(unsupported) / float64(len(decisions))
	}

	return m
}
