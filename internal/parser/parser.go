// Package parser turns raw BPMN 2.0 markup into an in-memory process graph.
// It performs no semantic interpretation: category and trigger hints come
// straight from element tag names and event-definition children, leaving
// topology-derived facts (position, direction) to the classifier.
package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/flowport/flowport/pkg/schema"
)

// flowNodeTags maps BPMN element local names to category and partial subkind
// hints. Unknown tags inside a process are kept as CategoryUnknown nodes so
// the pipeline degrades to a zero-confidence decision instead of failing.
var taskTags = map[string]schema.TaskType{
	"task":             schema.TaskGeneric,
	"userTask":         schema.TaskUser,
	"serviceTask":      schema.TaskService,
	"scriptTask":       schema.TaskScript,
	"manualTask":       schema.TaskManual,
	"sendTask":         schema.TaskSend,
	"receiveTask":      schema.TaskReceive,
	"businessRuleTask": schema.TaskBusinessRule,
	"subProcess":       schema.TaskSubProcess,
	"callActivity":     schema.TaskCallActivity,
}

var gatewayTags = map[string]schema.GatewayType{
	"exclusiveGateway":  schema.GatewayExclusive,
	"parallelGateway":   schema.GatewayParallel,
	"inclusiveGateway":  schema.GatewayInclusive,
	"eventBasedGateway": schema.GatewayEventBased,
	"complexGateway":    schema.GatewayComplex,
}

var eventTags = map[string]bool{
	"startEvent":             true,
	"endEvent":               true,
	"intermediateCatchEvent": true,
	"intermediateThrowEvent": true,
	"boundaryEvent":          true,
}

var eventDefinitionTags = map[string]schema.EventTrigger{
	"messageEventDefinition":     schema.TriggerMessage,
	"timerEventDefinition":       schema.TriggerTimer,
	"errorEventDefinition":       schema.TriggerError,
	"signalEventDefinition":      schema.TriggerSignal,
	"escalationEventDefinition":  schema.TriggerEscalation,
	"conditionalEventDefinition": schema.TriggerConditional,
	"terminateEventDefinition":   schema.TriggerTerminate,
	"compensateEventDefinition":  schema.TriggerCompensate,
	"linkEventDefinition":        schema.TriggerLink,
}

// Parse converts raw BPMN markup into a ProcessGraph. Input is
// already-loaded UTF-8 text; no file or network I/O happens here.
//
// Unknown attributes and vendor extension elements are ignored rather than
// rejected. Non-well-formed markup or a missing process root returns
// MALFORMED_INPUT; an edge referencing a missing node returns
// DANGLING_REFERENCE; two default flows on one gateway returns
// STRUCTURAL_VIOLATION. On any error no partial graph is returned.
func Parse(raw []byte) (*schema.ProcessGraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))

	g := &schema.ProcessGraph{
		Nodes: make(map[string]*schema.ProcessNode),
		Lanes: make(map[string]string),
	}
	defaults := make(map[string]string) // gateway id -> default flow id

	foundProcess := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeMalformedInput,
				"not well-formed: %s", err.Error()).WithCause(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "definitions":
			// Container element, descend.
		case "process":
			if foundProcess {
				// Additional participants are skipped; the engine
				// transforms one process per document.
				if err := dec.Skip(); err != nil {
					return nil, malformed(err)
				}
				continue
			}
			foundProcess = true
			g.ProcessID = attr(start, "id")
			g.Name = attr(start, "name")
			if err := parseContainer(dec, start, g, defaults, ""); err != nil {
				return nil, err
			}
		default:
			if err := dec.Skip(); err != nil {
				return nil, malformed(err)
			}
		}
	}

	if !foundProcess {
		return nil, schema.NewError(schema.ErrCodeMalformedInput, "no process element found")
	}

	if err := resolveReferences(g, defaults); err != nil {
		return nil, err
	}
	return g, nil
}

func malformed(err error) *schema.FlowportError {
	return schema.NewErrorf(schema.ErrCodeMalformedInput,
		"not well-formed: %s", err.Error()).WithCause(err)
}

// parseContainer walks the children of a process or subProcess element.
// Nodes found inside a subProcess get the subprocess id as their container.
func parseContainer(dec *xml.Decoder, parent xml.StartElement, g *schema.ProcessGraph, defaults map[string]string, container string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == parent.Name.Local {
				return nil
			}
		case xml.StartElement:
			name := t.Name.Local
			switch {
			case name == "sequenceFlow":
				if err := parseSequenceFlow(dec, t, g); err != nil {
					return err
				}
			case name == "laneSet":
				if err := parseLaneSet(dec, t, g, container); err != nil {
					return err
				}
			case taskTags[name] != "" || gatewayTags[name] != "" || eventTags[name] ||
				name == "dataObject" || name == "dataObjectReference":
				if err := parseFlowNode(dec, t, g, defaults, container); err != nil {
					return err
				}
			case name == "documentation" || name == "extensionElements" ||
				name == "dataStoreReference" || name == "association" ||
				name == "textAnnotation" || name == "group" || name == "ioSpecification":
				// Presentation and data-association noise; skip.
				if err := dec.Skip(); err != nil {
					return malformed(err)
				}
			default:
				// Unrecognized flow element: keep it so downstream produces
				// an explicit zero-confidence decision for it.
				if id := attr(t, "id"); id != "" {
					g.Nodes[id] = &schema.ProcessNode{
						ID:            id,
						Category:      schema.CategoryUnknown,
						SubKind:       schema.SubKind{Unclassified: true},
						Label:         attr(t, "name"),
						RawAttributes: rawAttrs(t),
						Container:     container,
					}
				}
				if err := dec.Skip(); err != nil {
					return malformed(err)
				}
			}
		}
	}
}

// parseFlowNode reads one flow node element, including its event-definition
// and loop-characteristics children.
func parseFlowNode(dec *xml.Decoder, start xml.StartElement, g *schema.ProcessGraph, defaults map[string]string, container string) error {
	name := start.Name.Local
	id := attr(start, "id")
	if id == "" {
		return schema.NewErrorf(schema.ErrCodeMalformedInput, "%s element without id", name)
	}

	node := &schema.ProcessNode{
		ID:            id,
		Label:         attr(start, "name"),
		RawAttributes: rawAttrs(start),
		Container:     container,
	}
	node.RawAttributes["element"] = name

	switch {
	case taskTags[name] != "":
		node.Category = schema.CategoryTask
		node.SubKind.Task = &schema.TaskDetail{Type: taskTags[name]}
	case gatewayTags[name] != "":
		node.Category = schema.CategoryGateway
		node.SubKind.Gateway = &schema.GatewayDetail{Type: gatewayTags[name]}
		if def := attr(start, "default"); def != "" {
			defaults[id] = def
		}
	case eventTags[name]:
		node.Category = schema.CategoryEvent
		detail := &schema.EventDetail{Trigger: schema.TriggerNone, Interrupting: true}
		if name == "boundaryEvent" {
			node.AttachedTo = attr(start, "attachedToRef")
			if v := attr(start, "cancelActivity"); v == "false" {
				detail.Interrupting = false
			}
		}
		if v := attr(start, "isInterrupting"); v == "false" {
			detail.Interrupting = false
		}
		node.SubKind.Event = detail
	case name == "dataObject" || name == "dataObjectReference":
		node.Category = schema.CategoryDataObject
	}

	g.Nodes[id] = node

	if name == "subProcess" {
		// A subprocess is both a task-like node and a container for its
		// children; descend instead of skipping.
		return parseContainer(dec, start, g, defaults, id)
	}

	// Walk children for event definitions and loop characteristics.
	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == name {
				return nil
			}
		case xml.StartElement:
			child := t.Name.Local
			switch {
			case eventDefinitionTags[child] != "" && node.SubKind.Event != nil:
				node.SubKind.Event.Trigger = eventDefinitionTags[child]
				if child == "timerEventDefinition" {
					if err := parseTimerDefinition(dec, t, node); err != nil {
						return err
					}
					continue
				}
			case child == "multiInstanceLoopCharacteristics" && node.SubKind.Task != nil:
				node.SubKind.Task.MultiInstance = true
			case child == "standardLoopCharacteristics" && node.SubKind.Task != nil:
				node.SubKind.Task.Loop = true
			}
			if err := dec.Skip(); err != nil {
				return malformed(err)
			}
		}
	}
}

// parseTimerDefinition captures timeDuration / timeCycle / timeDate text
// into the node's raw attributes for the transformer's deadline mapping.
func parseTimerDefinition(dec *xml.Decoder, start xml.StartElement, node *schema.ProcessNode) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "timeDuration", "timeCycle", "timeDate":
				text, err := elementText(dec, t)
				if err != nil {
					return err
				}
				node.RawAttributes[t.Name.Local] = strings.TrimSpace(text)
			default:
				if err := dec.Skip(); err != nil {
					return malformed(err)
				}
			}
		}
	}
}

// parseSequenceFlow reads one sequenceFlow element and its optional
// conditionExpression child.
func parseSequenceFlow(dec *xml.Decoder, start xml.StartElement, g *schema.ProcessGraph) error {
	edge := schema.ProcessEdge{
		ID:     attr(start, "id"),
		Source: attr(start, "sourceRef"),
		Target: attr(start, "targetRef"),
	}
	if edge.ID == "" {
		return schema.NewError(schema.ErrCodeMalformedInput, "sequenceFlow element without id")
	}
	// Loop back-edges must be explicitly tagged; untagged cycles are broken
	// by the transformer with a warning.
	if v := attr(start, "isLoop"); v == "true" {
		edge.IsLoop = true
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "sequenceFlow" {
				g.Edges = append(g.Edges, edge)
				return nil
			}
		case xml.StartElement:
			if t.Name.Local == "conditionExpression" {
				edge.ConditionLanguage = attr(t, "language")
				text, err := elementText(dec, t)
				if err != nil {
					return err
				}
				edge.Condition = strings.TrimSpace(text)
			} else if err := dec.Skip(); err != nil {
				return malformed(err)
			}
		}
	}
}

// parseLaneSet records lane membership: each flowNodeRef child assigns the
// referenced node to its lane once cross-references are resolved.
func parseLaneSet(dec *xml.Decoder, start xml.StartElement, g *schema.ProcessGraph, parent string) error {
	currentLane := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			return malformed(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				return nil
			}
			if t.Name.Local == "lane" {
				currentLane = ""
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "lane":
				currentLane = attr(t, "id")
				if currentLane != "" {
					g.Lanes[currentLane] = parent
					g.Nodes[currentLane] = &schema.ProcessNode{
						ID:            currentLane,
						Category:      schema.CategoryLane,
						Label:         attr(t, "name"),
						RawAttributes: rawAttrs(t),
						Container:     parent,
					}
				}
			case "flowNodeRef":
				text, err := elementText(dec, t)
				if err != nil {
					return err
				}
				ref := strings.TrimSpace(text)
				if ref != "" && currentLane != "" {
					// Applied after all nodes are parsed.
					g.Lanes["node:"+ref] = currentLane
				}
			default:
				if err := dec.Skip(); err != nil {
					return malformed(err)
				}
			}
		}
	}
}

// resolveReferences checks that every edge endpoint and boundary attachment
// names an existing node, applies lane membership, and marks default flows.
func resolveReferences(g *schema.ProcessGraph, defaults map[string]string) error {
	for i := range g.Edges {
		e := &g.Edges[i]
		if g.Nodes[e.Source] == nil {
			return schema.NewErrorf(schema.ErrCodeDanglingReference,
				"source %q does not exist", e.Source).WithEdge(e.ID)
		}
		if g.Nodes[e.Target] == nil {
			return schema.NewErrorf(schema.ErrCodeDanglingReference,
				"target %q does not exist", e.Target).WithEdge(e.ID)
		}
	}

	for id, node := range g.Nodes {
		if node.AttachedTo != "" && g.Nodes[node.AttachedTo] == nil {
			return schema.NewErrorf(schema.ErrCodeDanglingReference,
				"attachedToRef %q does not exist", node.AttachedTo).WithNode(id)
		}
		if lane, ok := g.Lanes["node:"+id]; ok {
			node.Container = lane
		}
	}
	// Drop the temporary node->lane entries; Lanes keeps lane->parent only.
	for k := range g.Lanes {
		if strings.HasPrefix(k, "node:") {
			delete(g.Lanes, k)
		}
	}

	for gatewayID, flowID := range defaults {
		found := false
		for i := range g.Edges {
			e := &g.Edges[i]
			if e.ID != flowID {
				continue
			}
			found = true
			if e.Source != gatewayID {
				return schema.NewErrorf(schema.ErrCodeStructuralViolation,
					"default flow %q does not originate at gateway %q", flowID, gatewayID).WithNode(gatewayID)
			}
			e.IsDefault = true
		}
		if !found {
			return schema.NewErrorf(schema.ErrCodeDanglingReference,
				"default flow %q does not exist", flowID).WithNode(gatewayID)
		}
	}

	return validateDefaults(g)
}

// validateDefaults enforces the at-most-one-default invariant for exclusive
// and inclusive gateways. Two defaults on one gateway is a precise,
// reportable structural violation rather than a generic failure.
func validateDefaults(g *schema.ProcessGraph) error {
	counts := make(map[string]int)
	for _, e := range g.Edges {
		if e.IsDefault {
			counts[e.Source]++
		}
	}
	for nodeID, n := range counts {
		node := g.Nodes[nodeID]
		if node == nil || node.SubKind.Gateway == nil {
			continue
		}
		gt := node.SubKind.Gateway.Type
		if (gt == schema.GatewayExclusive || gt == schema.GatewayInclusive) && n > 1 {
			return schema.NewErrorf(schema.ErrCodeStructuralViolation,
				"gateway has %d default flows, at most one is allowed", n).WithNode(nodeID)
		}
	}
	return nil
}

// attr returns the value of the named attribute, matching on local name so
// namespace prefixes do not matter.
func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// rawAttrs copies all attributes into a map keyed by local name. Vendor
// extension attributes pass through untouched for rule-table matching.
func rawAttrs(el xml.StartElement) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		m[a.Name.Local] = a.Value
	}
	return m
}

// elementText reads the character data of the current element up to its end tag.
func elementText(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", malformed(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
