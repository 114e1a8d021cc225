// Package transform rewrites a classified process graph into the target
// sequential workflow model. The source's concurrent token flow does not
// exist in the target, so gateway semantics are emulated: conditional edges
// become visibility rules, parallel fan-out becomes step groups, and joins
// become synthetic wait steps. The transformer never aborts on an unmappable
// node; a partial-but-explainable result beats a fatal error.
package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowport/flowport/internal/expressions"
	"github.com/flowport/flowport/internal/ruletable"
	"github.com/flowport/flowport/pkg/schema"
)

// Markers used in rules when a branch has no concrete step to reference.
const (
	StartMarker = "__start__"
	EndMarker   = "__end__"
)

// Config holds the transformer's tunable knobs.
type Config struct {
	// ReviewThreshold is the confidence below which a decision is flagged
	// for human review.
	ReviewThreshold int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{ReviewThreshold: schema.DefaultReviewThreshold}
}

// Result is the transformer output: the target document, one decision per
// source node, and all non-fatal warnings collected along the way.
type Result struct {
	Document  *schema.TargetWorkflowDocument
	Decisions []schema.MappingDecision
	Warnings  []string
}

// transformer carries the per-run state of one transformation.
type transformer struct {
	g       *schema.ProcessGraph
	cls     map[string]schema.ClassificationResult
	table   *ruletable.Table
	exprs   *expressions.Registry
	cfg     Config
	ord     ordering
	pos     map[string]int // node id -> topological position
	pairs   map[string]string // diverge id -> converge id
	res     map[string]ruletable.Resolution
	stepIDs map[string]string // node id -> emitted step id
	waits   map[string]joinWait // converge id -> wait spec from matched fork

	doc       *schema.TargetWorkflowDocument
	decisions []schema.MappingDecision
	warnings  []string
}

// joinWait records what a join step must wait for, captured at the fork.
type joinWait struct {
	members []string
	dynamic bool // inclusive join: wait only for activated branches
}

// Transform walks the graph in topological order and emits the target
// workflow document plus the full decision list. Deterministic: the same
// graph and rule table always produce byte-identical output.
func Transform(ctx context.Context, g *schema.ProcessGraph, classifications map[string]schema.ClassificationResult, table *ruletable.Table, exprs *expressions.Registry, cfg Config) *Result {
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = schema.DefaultReviewThreshold
	}

	t := &transformer{
		g:       g,
		cls:     classifications,
		table:   table,
		exprs:   exprs,
		cfg:     cfg,
		res:     make(map[string]ruletable.Resolution, len(g.Nodes)),
		stepIDs: make(map[string]string, len(g.Nodes)),
		waits:   make(map[string]joinWait),
		doc: &schema.TargetWorkflowDocument{
			Name:   g.Name,
			Steps:  []schema.TargetStep{},
			Rules:  []schema.TargetRule{},
			Groups: []schema.TargetGroup{},
		},
	}

	t.ord = topologicalOrder(g)
	t.warnings = append(t.warnings, t.ord.Warnings...)
	t.pos = make(map[string]int, len(t.ord.Sorted))
	for i, id := range t.ord.Sorted {
		t.pos[id] = i
	}
	t.pairs = pairGateways(g, classifications, t.ord)

	// Phase 1: resolve every node against the rule table so downstream
	// step references can be computed before construct emission.
	for _, id := range t.ord.Sorted {
		t.resolveNode(ctx, id)
	}

	// Phase 2: emit steps, rules, and groups in topological order.
	for _, id := range t.ord.Sorted {
		t.emitNode(id)
	}

	// Phase 3: boundary events attach to host steps that may appear later
	// in the walk, so their rules are applied once all steps exist.
	for _, id := range t.ord.Sorted {
		t.attachBoundary(id)
	}

	t.emitContainerGroups()

	return &Result{
		Document:  t.doc,
		Decisions: t.decisions,
		Warnings:  t.warnings,
	}
}

// resolveNode looks up the capability rule for a node, degrades confidence
// for unparseable branch conditions, and records the mapping decision.
func (t *transformer) resolveNode(ctx context.Context, id string) {
	node := t.g.Nodes[id]
	cls := t.cls[id]
	res := t.table.Lookup(ctx, cls, node.RawAttributes)

	if cls.SubKind.Gateway != nil && cls.SubKind.Gateway.Direction != schema.DirectionConverging {
		gt := cls.SubKind.Gateway.Type
		if gt == schema.GatewayExclusive || gt == schema.GatewayInclusive {
			for _, e := range t.g.Outgoing(id) {
				if e.Condition == "" {
					continue
				}
				engine := t.exprs.ForLanguage(e.ConditionLanguage)
				if err := engine.Validate(e.Condition); err != nil {
					res.Confidence -= 10
					if res.Confidence < 0 {
						res.Confidence = 0
					}
					t.warnings = append(t.warnings, fmt.Sprintf(
						"condition on edge %s does not parse as %s; copied verbatim", e.ID, engine.Name()))
				}
			}
		}
	}

	t.res[id] = res
	t.decisions = append(t.decisions, schema.MappingDecision{
		NodeID:         id,
		TargetKind:     res.TargetKind,
		Confidence:     res.Confidence,
		Rationale:      res.Rationale,
		RequiresReview: res.Confidence < t.cfg.ReviewThreshold,
		RuleID:         res.RuleID,
	})
}

// emitNode appends the target constructs for one node.
func (t *transformer) emitNode(id string) {
	node := t.g.Nodes[id]
	cls := t.cls[id]
	res := t.res[id]

	if cls.SubKind.Gateway != nil {
		t.emitGateway(id, cls, res)
		return
	}

	switch res.TargetKind {
	case schema.StepKindTask, schema.StepKindApproval, schema.StepKindAutomate, schema.StepKindNotify:
		// An expanded subprocess is represented by the group its children
		// form; only a collapsed one gets a placeholder step.
		if cls.SubKind.Task != nil && cls.SubKind.Task.Type == schema.TaskSubProcess && t.hasChildren(id) {
			return
		}
		step := schema.TargetStep{
			ID:           id,
			Title:        titleOf(node),
			Kind:         res.TargetKind,
			SourceNodeID: id,
			Group:        t.containerGroup(node),
		}
		// Intermediate timer events become wait steps carrying their own
		// deadline specification.
		if cls.SubKind.Event != nil && cls.SubKind.Event.Trigger == schema.TriggerTimer && hasTimerDefinition(node) {
			deadline, valid := timerDeadline(node.RawAttributes)
			step.Deadline = deadline
			if !valid {
				t.warnings = append(t.warnings, fmt.Sprintf(
					"timer specification %q on %s is not a recognized duration, cycle, or date", deadline, id))
			}
		}
		t.doc.Steps = append(t.doc.Steps, step)
		t.stepIDs[id] = id
	}
}

// emitGateway rewrites one gateway into rules, groups, and join steps.
func (t *transformer) emitGateway(id string, cls schema.ClassificationResult, res ruletable.Resolution) {
	gw := cls.SubKind.Gateway

	// A gateway joins when the table maps it to a join or when an upstream
	// fork recorded it as the convergence point. A mixed gateway does both:
	// it joins its inbound branches before fanning out again, so the join
	// is emitted first and the outbound constructs route from it.
	if res.TargetKind == schema.StepKindJoin || t.convergesForFork(id) {
		t.emitJoin(id, gw)
	}

	if gw.Direction == schema.DirectionDiverging || gw.Direction == schema.DirectionMixed {
		switch gw.Type {
		case schema.GatewayExclusive:
			t.emitExclusiveSplit(id)
		case schema.GatewayInclusive:
			t.emitExclusiveSplit(id) // per-edge condition rules, same shape
			t.emitForkGroup(id, gw.Type)
		case schema.GatewayParallel:
			t.emitForkGroup(id, gw.Type)
		}
		// Event-based and complex gateways emit no construct; their
		// low-confidence decision carries the explanation.
	}
}

// emitExclusiveSplit emits one rule per outgoing edge. The declared default
// edge, or absent one the first edge in declared order, becomes the fallback
// whose condition is the synthesized "all other conditions false".
func (t *transformer) emitExclusiveSplit(id string) {
	outgoing := t.g.Outgoing(id)
	if len(outgoing) == 0 {
		return
	}

	fallbackIdx := -1
	for i, e := range outgoing {
		if e.IsDefault {
			fallbackIdx = i
			break
		}
	}
	if fallbackIdx < 0 {
		fallbackIdx = 0
		t.warnings = append(t.warnings, fmt.Sprintf(
			"gateway %s has no default flow; treating first declared edge %s as fallback (heuristic, not a semantic guarantee)",
			id, outgoing[0].ID))
	}

	trigger := t.precedingStep(id)
	if own, ok := t.stepIDs[id]; ok {
		// A mixed gateway routes from its own join step.
		trigger = own
	}
	for i, e := range outgoing {
		rule := schema.TargetRule{
			TriggerStepID: trigger,
			Condition:     e.Condition,
			IsFallback:    i == fallbackIdx,
			Action:        schema.ActionActivate,
			TargetStepID:  t.downstreamStep(e.Target),
			SourceEdgeID:  e.ID,
		}
		if rule.IsFallback {
			// The fallback fires when no sibling condition matched; any
			// declared condition on it is redundant and dropped.
			rule.Condition = ""
		}
		t.doc.Rules = append(t.doc.Rules, rule)
	}
}

// emitForkGroup creates the group emulating parallel/inclusive fan-out and
// records the wait spec for the matching join.
func (t *transformer) emitForkGroup(id string, gatewayType schema.GatewayType) {
	outgoing := t.g.Outgoing(id)
	if len(outgoing) < 2 {
		return
	}

	members := make([]string, 0, len(outgoing))
	seen := make(map[string]bool, len(outgoing))
	for _, e := range outgoing {
		first := t.downstreamStep(e.Target)
		if first == EndMarker || seen[first] {
			continue
		}
		seen[first] = true
		members = append(members, first)
	}

	group := schema.TargetGroup{
		Name:          "group_" + id,
		MemberStepIDs: members,
		SourceNodeID:  id,
	}
	t.doc.Groups = append(t.doc.Groups, group)

	converge, ok := t.pairs[id]
	if !ok {
		t.warnings = append(t.warnings, fmt.Sprintf(
			"fork %s has no convergence point; branches complete independently", id))
		return
	}
	t.waits[converge] = joinWait{
		members: members,
		dynamic: gatewayType == schema.GatewayInclusive,
	}
}

// emitJoin inserts the synthetic join step and its wait rule. An inclusive
// join waits only for branches whose activation flag was set at the fork; a
// parallel join waits for every member.
func (t *transformer) emitJoin(id string, gw *schema.GatewayDetail) {
	joinID := "join_" + id
	node := t.g.Nodes[id]

	wait, ok := t.waits[id]
	if !ok {
		// Unbalanced join with no matched fork: wait for the nearest
		// upstream step of every incoming edge.
		members := make([]string, 0)
		seen := make(map[string]bool)
		for _, e := range t.g.Incoming(id) {
			up := t.nearestUpstreamStep(e.Source)
			if up == StartMarker || seen[up] {
				continue
			}
			seen[up] = true
			members = append(members, up)
		}
		wait = joinWait{members: members, dynamic: gw.Type == schema.GatewayInclusive}
	}

	t.doc.Steps = append(t.doc.Steps, schema.TargetStep{
		ID:           joinID,
		Title:        joinTitle(node),
		Kind:         schema.StepKindJoin,
		SourceNodeID: id,
		Synthetic:    true,
	})
	t.stepIDs[id] = joinID

	trigger := joinID
	if len(wait.members) > 0 {
		trigger = wait.members[len(wait.members)-1]
	}
	t.doc.Rules = append(t.doc.Rules, schema.TargetRule{
		TriggerStepID: trigger,
		Action:        schema.ActionActivate,
		TargetStepID:  joinID,
		WaitFor:       wait.members,
		DynamicWait:   wait.dynamic,
	})
}

// attachBoundary applies timer boundary events as deadline rules on their
// host steps. Non-timer boundary events were already reported unsupported by
// the rule table; no construct is emitted for them.
func (t *transformer) attachBoundary(id string) {
	node := t.g.Nodes[id]
	cls := t.cls[id]
	if cls.SubKind.Event == nil || cls.SubKind.Event.Position != schema.PositionBoundary {
		return
	}
	if cls.SubKind.Event.Trigger != schema.TriggerTimer {
		return
	}

	hostStep, ok := t.stepIDs[node.AttachedTo]
	if !ok {
		t.warnings = append(t.warnings, fmt.Sprintf(
			"timer boundary %s attached to %s, which produced no step; deadline dropped", id, node.AttachedTo))
		return
	}

	deadline, valid := timerDeadline(node.RawAttributes)
	if deadline == "" {
		t.warnings = append(t.warnings, fmt.Sprintf(
			"timer boundary %s has no timer specification; deadline dropped", id))
		return
	}
	if !valid {
		t.warnings = append(t.warnings, fmt.Sprintf(
			"timer specification %q on boundary %s is not a recognized duration, cycle, or date", deadline, id))
	}

	if step := t.doc.Step(hostStep); step != nil {
		step.Deadline = deadline
	}

	// The boundary's outgoing path, if any, is activated when the
	// deadline fires.
	target := EndMarker
	var edgeID string
	if outgoing := t.g.Outgoing(id); len(outgoing) > 0 {
		target = t.downstreamStep(outgoing[0].Target)
		edgeID = outgoing[0].ID
	}
	t.doc.Rules = append(t.doc.Rules, schema.TargetRule{
		TriggerStepID: hostStep,
		Action:        schema.ActionDeadline,
		TargetStepID:  target,
		SourceEdgeID:  edgeID,
	})
}

// emitContainerGroups creates one group per subprocess container that
// produced member steps, so the target preserves the nesting as grouping.
func (t *transformer) emitContainerGroups() {
	memberships := make(map[string][]string)
	for _, step := range t.doc.Steps {
		if step.Group != "" {
			memberships[step.Group] = append(memberships[step.Group], step.ID)
		}
	}

	containers := make([]string, 0, len(memberships))
	for c := range memberships {
		containers = append(containers, c)
	}
	sort.Strings(containers)

	for _, c := range containers {
		t.doc.Groups = append(t.doc.Groups, schema.TargetGroup{
			Name:          c,
			MemberStepIDs: memberships[c],
			SourceNodeID:  c,
		})
	}
}

// downstreamStep resolves the first step at or after a node, following
// outgoing edges in declared order. Chained gateways are traversed; a branch
// that reaches no step resolves to the end marker.
func (t *transformer) downstreamStep(nodeID string) string {
	visited := make(map[string]bool)
	var walk func(id string) string
	walk = func(id string) string {
		if visited[id] {
			return ""
		}
		visited[id] = true
		if stepID, ok := t.stepIDsWillEmit(id); ok {
			return stepID
		}
		for _, e := range t.g.Outgoing(id) {
			if e.IsLoop || t.ord.Removed[e.ID] {
				continue
			}
			if found := walk(e.Target); found != "" {
				return found
			}
		}
		return ""
	}
	if found := walk(nodeID); found != "" {
		return found
	}
	return EndMarker
}

// stepIDsWillEmit reports the step id a node emits (or will emit later in
// the walk), independent of walk progress.
func (t *transformer) stepIDsWillEmit(id string) (string, bool) {
	res, ok := t.res[id]
	if !ok {
		return "", false
	}
	cls := t.cls[id]
	switch res.TargetKind {
	case schema.StepKindTask, schema.StepKindApproval, schema.StepKindAutomate, schema.StepKindNotify:
		if cls.SubKind.Task != nil && cls.SubKind.Task.Type == schema.TaskSubProcess && t.hasChildren(id) {
			return "", false
		}
		return id, true
	case schema.StepKindJoin:
		return "join_" + id, true
	}
	if cls.SubKind.Gateway != nil && t.convergesForFork(id) {
		return "join_" + id, true
	}
	return "", false
}

// convergesForFork reports whether some fork pairs with this node as its
// convergence point, meaning a wait spec is recorded for it before it emits.
// Only parallel and inclusive forks with two or more branches are ever paired.
func (t *transformer) convergesForFork(id string) bool {
	for _, converge := range t.pairs {
		if converge == id {
			return true
		}
	}
	return false
}

// hasChildren reports whether any node names this one as its container.
func (t *transformer) hasChildren(id string) bool {
	for _, n := range t.g.Nodes {
		if n.Container == id {
			return true
		}
	}
	return false
}

// precedingStep finds the nearest upstream step-emitting node: the one with
// the highest topological position among all backwards-reachable emitters.
// Gateways directly after the start resolve to the start marker.
func (t *transformer) precedingStep(nodeID string) string {
	incoming := make(map[string][]string, len(t.g.Nodes))
	for _, e := range t.g.Edges {
		if e.IsLoop || t.ord.Removed[e.ID] {
			continue
		}
		incoming[e.Target] = append(incoming[e.Target], e.Source)
	}

	best := ""
	bestPos := -1
	visited := map[string]bool{nodeID: true}
	queue := []string{nodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, src := range incoming[id] {
			if visited[src] {
				continue
			}
			visited[src] = true
			if stepID, ok := t.stepIDsWillEmit(src); ok {
				if t.pos[src] > bestPos {
					best = stepID
					bestPos = t.pos[src]
				}
				continue
			}
			queue = append(queue, src)
		}
	}
	if best == "" {
		return StartMarker
	}
	return best
}

// nearestUpstreamStep resolves a node to its own step or the nearest
// upstream one. Used for unbalanced joins.
func (t *transformer) nearestUpstreamStep(nodeID string) string {
	if stepID, ok := t.stepIDsWillEmit(nodeID); ok {
		return stepID
	}
	return t.precedingStep(nodeID)
}

// containerGroup returns the nearest enclosing subprocess id, or "".
// Lane containers do not group; they become assignment hints instead.
func (t *transformer) containerGroup(node *schema.ProcessNode) string {
	seen := map[string]bool{node.ID: true}
	container := node.Container
	for container != "" && !seen[container] {
		seen[container] = true
		c := t.g.Nodes[container]
		if c == nil {
			return ""
		}
		if c.SubKind.Task != nil && c.SubKind.Task.Type == schema.TaskSubProcess {
			return container
		}
		container = c.Container
	}
	return ""
}

func titleOf(node *schema.ProcessNode) string {
	if node.Label != "" {
		return node.Label
	}
	return node.ID
}

func joinTitle(node *schema.ProcessNode) string {
	if node.Label != "" {
		return "Wait for " + node.Label
	}
	return "Wait for branches"
}
