package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowport/flowport/pkg/schema"
)

func graphOf(nodes []*schema.ProcessNode, edges []schema.ProcessEdge) *schema.ProcessGraph {
	g := &schema.ProcessGraph{
		ProcessID: "p",
		Nodes:     make(map[string]*schema.ProcessNode, len(nodes)),
		Edges:     edges,
		Lanes:     map[string]string{},
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	return g
}

func TestEventPositionsFromTopology(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "s", Category: schema.CategoryEvent},
		{ID: "mid", Category: schema.CategoryEvent, SubKind: schema.SubKind{
			Event: &schema.EventDetail{Trigger: schema.TriggerTimer, Interrupting: true}}},
		{ID: "e", Category: schema.CategoryEvent},
	}
	edges := []schema.ProcessEdge{
		{ID: "f1", Source: "s", Target: "mid"},
		{ID: "f2", Source: "mid", Target: "e"},
	}

	results := Classify(graphOf(nodes, edges))

	assert.Equal(t, schema.PositionStart, results["s"].SubKind.Event.Position)
	assert.Equal(t, schema.PositionIntermediate, results["mid"].SubKind.Event.Position)
	assert.Equal(t, schema.TriggerTimer, results["mid"].SubKind.Event.Trigger)
	assert.Equal(t, schema.PositionEnd, results["e"].SubKind.Event.Position)

	// Missing detail defaults to a plain interrupting none-trigger event.
	assert.Equal(t, schema.TriggerNone, results["s"].SubKind.Event.Trigger)
	assert.True(t, results["s"].SubKind.Event.Interrupting)
}

func TestBoundaryEventContext(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "host", Category: schema.CategoryTask, SubKind: schema.SubKind{
			Task: &schema.TaskDetail{Type: schema.TaskUser}}},
		{ID: "b", Category: schema.CategoryEvent, AttachedTo: "host", SubKind: schema.SubKind{
			Event: &schema.EventDetail{Trigger: schema.TriggerTimer, Interrupting: false}}},
	}

	results := Classify(graphOf(nodes, nil))

	b := results["b"]
	assert.Equal(t, schema.PositionBoundary, b.SubKind.Event.Position)
	assert.False(t, b.SubKind.Event.Interrupting)
	assert.Equal(t, "host", b.Context.AttachedToID)
	assert.Equal(t, schema.CategoryTask, b.Context.HostCategory)
	assert.Equal(t, schema.TaskUser, b.Context.HostTaskType)
}

func TestGatewayDirections(t *testing.T) {
	gw := func(id string) *schema.ProcessNode {
		return &schema.ProcessNode{ID: id, Category: schema.CategoryGateway, SubKind: schema.SubKind{
			Gateway: &schema.GatewayDetail{Type: schema.GatewayExclusive}}}
	}
	task := func(id string) *schema.ProcessNode {
		return &schema.ProcessNode{ID: id, Category: schema.CategoryTask}
	}

	nodes := []*schema.ProcessNode{
		gw("split"), gw("merge"), gw("both"),
		task("a"), task("b"), task("c"), task("d"),
	}
	edges := []schema.ProcessEdge{
		{ID: "f1", Source: "a", Target: "split"},
		{ID: "f2", Source: "split", Target: "b"},
		{ID: "f3", Source: "split", Target: "c"},
		{ID: "f4", Source: "b", Target: "merge"},
		{ID: "f5", Source: "c", Target: "merge"},
		{ID: "f6", Source: "merge", Target: "d"},
		{ID: "f7", Source: "a", Target: "both"},
		{ID: "f8", Source: "d", Target: "both"},
		{ID: "f9", Source: "both", Target: "b"},
		{ID: "f10", Source: "both", Target: "c"},
	}

	results := Classify(graphOf(nodes, edges))

	assert.Equal(t, schema.DirectionDiverging, results["split"].SubKind.Gateway.Direction)
	assert.Equal(t, schema.DirectionConverging, results["merge"].SubKind.Gateway.Direction)
	assert.Equal(t, schema.DirectionMixed, results["both"].SubKind.Gateway.Direction)
}

func TestStructuralContextCounts(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "gw", Category: schema.CategoryGateway, SubKind: schema.SubKind{
			Gateway: &schema.GatewayDetail{Type: schema.GatewayExclusive}}},
		{ID: "a", Category: schema.CategoryTask},
		{ID: "b", Category: schema.CategoryTask},
		{ID: "c", Category: schema.CategoryTask},
	}
	edges := []schema.ProcessEdge{
		{ID: "f1", Source: "a", Target: "gw"},
		{ID: "f2", Source: "gw", Target: "b", Condition: "x > 1"},
		{ID: "f3", Source: "gw", Target: "c", IsDefault: true},
	}

	results := Classify(graphOf(nodes, edges))

	ctx := results["gw"].Context
	assert.Equal(t, 1, ctx.InDegree)
	assert.Equal(t, 2, ctx.OutDegree)
	assert.Equal(t, 1, ctx.ConditionCount)
	assert.True(t, ctx.HasDefaultEdge)
}

func TestTaskDefaultsToGeneric(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "t", Category: schema.CategoryTask},
	}

	results := Classify(graphOf(nodes, nil))

	require.NotNil(t, results["t"].SubKind.Task)
	assert.Equal(t, schema.TaskGeneric, results["t"].SubKind.Task.Type)
}

func TestContainerDepthAndMultiInstanceInheritance(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "outer", Category: schema.CategoryTask, SubKind: schema.SubKind{
			Task: &schema.TaskDetail{Type: schema.TaskSubProcess, MultiInstance: true}}},
		{ID: "inner", Category: schema.CategoryTask, Container: "outer", SubKind: schema.SubKind{
			Task: &schema.TaskDetail{Type: schema.TaskSubProcess}}},
		{ID: "leaf", Category: schema.CategoryTask, Container: "inner", SubKind: schema.SubKind{
			Task: &schema.TaskDetail{Type: schema.TaskUser}}},
	}

	results := Classify(graphOf(nodes, nil))

	assert.Equal(t, 0, results["outer"].Context.ContainerDepth)
	assert.Equal(t, 1, results["inner"].Context.ContainerDepth)
	assert.Equal(t, 2, results["leaf"].Context.ContainerDepth)
	assert.True(t, results["leaf"].Context.MultiInstance,
		"an enclosing multi-instance subprocess marks its children")
}

func TestLaneContainerDepth(t *testing.T) {
	g := graphOf([]*schema.ProcessNode{
		{ID: "lane1", Category: schema.CategoryLane},
		{ID: "t", Category: schema.CategoryTask, Container: "lane1"},
	}, nil)
	g.Lanes["lane1"] = ""

	results := Classify(g)
	assert.Equal(t, 1, results["t"].Context.ContainerDepth)
}

func TestUnknownCategoryStaysUnclassified(t *testing.T) {
	nodes := []*schema.ProcessNode{
		{ID: "x", Category: schema.CategoryUnknown, SubKind: schema.SubKind{Unclassified: true}},
	}

	results := Classify(graphOf(nodes, nil))

	assert.True(t, results["x"].SubKind.Unclassified)
	assert.Equal(t, schema.CategoryUnknown, results["x"].Category)
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	detail := &schema.EventDetail{Trigger: schema.TriggerMessage, Interrupting: true}
	nodes := []*schema.ProcessNode{
		{ID: "ev", Category: schema.CategoryEvent, SubKind: schema.SubKind{Event: detail}},
	}

	_ = Classify(graphOf(nodes, nil))

	assert.Empty(t, detail.Position, "classifier works on a copy of the detail")
}
