package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowport/flowport/pkg/schema"
)

func TestBuildPartitionsByConfidence(t *testing.T) {
	decisions := []schema.MappingDecision{
		{NodeID: "a", Confidence: 100},
		{NodeID: "b", Confidence: 80},
		{NodeID: "c", Confidence: 79},
		{NodeID: "d", Confidence: 20},
		{NodeID: "e", Confidence: 19},
		{NodeID: "f", Confidence: 0},
	}
	analysis := schema.Analysis{FeasibilityScore: 50, ComplexityLevel: schema.ComplexityModerate}

	r := Build("proc_1", analysis, decisions, []string{"warning one"})

	require.Len(t, r.Supported, 2)
	assert.Equal(t, "a", r.Supported[0].NodeID)
	assert.Equal(t, "b", r.Supported[1].NodeID)

	require.Len(t, r.Partial, 2)
	assert.Equal(t, "c", r.Partial[0].NodeID)
	assert.Equal(t, "d", r.Partial[1].NodeID)

	require.Len(t, r.Unsupported, 2)
	assert.Equal(t, "e", r.Unsupported[0].NodeID)
	assert.Equal(t, "f", r.Unsupported[1].NodeID)

	assert.Equal(t, "proc_1", r.ProcessID)
	assert.Equal(t, 50, r.FeasibilityScore)
	assert.Equal(t, schema.ComplexityModerate, r.ComplexityLevel)
	assert.Equal(t, []string{"warning one"}, r.Warnings)
}

func TestBuildPreservesOrderWithinBuckets(t *testing.T) {
	decisions := []schema.MappingDecision{
		{NodeID: "z", Confidence: 90},
		{NodeID: "m", Confidence: 95},
		{NodeID: "a", Confidence: 85},
	}

	r := Build("p", schema.Analysis{}, decisions, nil)

	require.Len(t, r.Supported, 3)
	assert.Equal(t, "z", r.Supported[0].NodeID)
	assert.Equal(t, "m", r.Supported[1].NodeID)
	assert.Equal(t, "a", r.Supported[2].NodeID)
}

func TestBuildEmptyInputs(t *testing.T) {
	r := Build("p", schema.Analysis{}, nil, nil)

	assert.NotNil(t, r.Supported)
	assert.NotNil(t, r.Partial)
	assert.NotNil(t, r.Unsupported)
	assert.NotNil(t, r.Warnings)
	assert.Empty(t, r.Decisions())
}
