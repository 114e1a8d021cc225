package analyzer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowport/flowport/pkg/schema"
)

func decision(nodeID string, confidence int) schema.MappingDecision {
	return schema.MappingDecision{NodeID: nodeID, Confidence: confidence, Rationale: "test"}
}

func TestFeasibilityIsMeanConfidence(t *testing.T) {
	decisions := []schema.MappingDecision{
		decision("a", 100),
		decision("b", 80),
		decision("c", 60),
	}
	g := &schema.ProcessGraph{Nodes: map[string]*schema.ProcessNode{}}

	analysis := Analyze(g, nil, decisions, DefaultThresholds())

	assert.Equal(t, 80, analysis.FeasibilityScore)
	assert.Equal(t, schema.ComplexitySimple, analysis.ComplexityLevel)
}

func TestComplexityBuckets(t *testing.T) {
	cases := []struct {
		name       string
		confidence int
		expected   schema.ComplexityLevel
	}{
		{"simple at boundary", 80, schema.ComplexitySimple},
		{"moderate below simple", 79, schema.ComplexityModerate},
		{"moderate at boundary", 50, schema.ComplexityModerate},
		{"complex below moderate", 49, schema.ComplexityComplex},
		{"complex at boundary", 20, schema.ComplexityComplex},
		{"impossible below complex", 19, schema.ComplexityImpossible},
		{"impossible at zero", 0, schema.ComplexityImpossible},
	}

	g := &schema.ProcessGraph{Nodes: map[string]*schema.ProcessNode{}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			analysis := Analyze(g, nil, []schema.MappingDecision{decision("n", tc.confidence)}, DefaultThresholds())
			assert.Equal(t, tc.expected, analysis.ComplexityLevel)
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	g := &schema.ProcessGraph{Nodes: map[string]*schema.ProcessNode{}}
	th := Thresholds{Simple: 90, Moderate: 70, Complex: 40}

	analysis := Analyze(g, nil, []schema.MappingDecision{decision("n", 85)}, th)
	assert.Equal(t, schema.ComplexityModerate, analysis.ComplexityLevel)
}

func TestEmptyGraphIsSimple(t *testing.T) {
	g := &schema.ProcessGraph{Nodes: map[string]*schema.ProcessNode{}}

	analysis := Analyze(g, nil, nil, DefaultThresholds())

	assert.Equal(t, 100, analysis.FeasibilityScore)
	assert.Equal(t, schema.ComplexitySimple, analysis.ComplexityLevel)
	assert.Equal(t, 0, analysis.Metrics.NodeCount)
	assert.Zero(t, analysis.Metrics.UnsupportedRatio)
}

// complexityRank orders levels from easiest to hardest so tests can compare
// them numerically.
func complexityRank(level schema.ComplexityLevel) int {
	switch level {
	case schema.ComplexitySimple:
		return 0
	case schema.ComplexityModerate:
		return 1
	case schema.ComplexityComplex:
		return 2
	default:
		return 3
	}
}

func TestUnmappableNodesOnlyEverLowerTheScore(t *testing.T) {
	g := &schema.ProcessGraph{Nodes: map[string]*schema.ProcessNode{}}
	decisions := []schema.MappingDecision{
		decision("a", 100),
		decision("b", 95),
		decision("c", 90),
	}

	prev := Analyze(g, nil, decisions, DefaultThresholds())
	assert.Equal(t, schema.ComplexitySimple, prev.ComplexityLevel)

	for i := 0; i < 3; i++ {
		decisions = append(decisions, decision(fmt.Sprintf("unmappable_%d", i), 0))
		next := Analyze(g, nil, decisions, DefaultThresholds())

		assert.Less(t, next.FeasibilityScore, prev.FeasibilityScore,
			"each confidence-0 node must strictly lower the score")
		assert.GreaterOrEqual(t, complexityRank(next.ComplexityLevel), complexityRank(prev.ComplexityLevel),
			"complexity never gets easier as unmappable nodes accumulate")
		prev = next
	}
}

func TestMetrics(t *testing.T) {
	g := &schema.ProcessGraph{
		Nodes: map[string]*schema.ProcessNode{
			"t1": {ID: "t1", Category: schema.CategoryTask},
			"t2": {ID: "t2", Category: schema.CategoryTask},
			"gw": {ID: "gw", Category: schema.CategoryGateway},
		},
		Edges: []schema.ProcessEdge{
			{ID: "f1", Source: "t1", Target: "gw"},
			{ID: "f2", Source: "gw", Target: "t2"},
		},
	}
	classifications := map[string]schema.ClassificationResult{
		"t1": {NodeID: "t1", Context: schema.StructuralContext{ContainerDepth: 2}},
		"t2": {NodeID: "t2"},
		"gw": {NodeID: "gw", Context: schema.StructuralContext{OutDegree: 4}},
	}
	decisions := []schema.MappingDecision{
		decision("t1", 100),
		decision("t2", 100),
		decision("gw", 0),
	}

	analysis := Analyze(g, classifications, decisions, DefaultThresholds())

	assert.Equal(t, 3, analysis.Metrics.NodeCount)
	assert.Equal(t, 2, analysis.Metrics.EdgeCount)
	assert.Equal(t, 1, analysis.Metrics.GatewayCount)
	assert.Equal(t, 4, analysis.Metrics.BranchingFactor)
	assert.Equal(t, 2, analysis.Metrics.MaxNestingDepth)
	assert.InDelta(t, 1.0/3.0, analysis.Metrics.UnsupportedRatio, 1e-9)
}
