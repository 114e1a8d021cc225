package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/flowport/flowport/pkg/schema"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport prints the migration report as tables: a summary header, one
// row per mapping decision, then warnings.
func renderReport(rep *schema.MigrationReport) {
	fmt.Printf("Process:     %s\n", rep.ProcessID)
	fmt.Printf("Feasibility: %d/100\n", rep.FeasibilityScore)
	fmt.Printf("Complexity:  %s\n", rep.ComplexityLevel)
	fmt.Printf("Nodes: %d  Edges: %d  Gateways: %d  Branching: %d  Nesting: %d\n\n",
		rep.Metrics.NodeCount, rep.Metrics.EdgeCount, rep.Metrics.GatewayCount,
		rep.Metrics.BranchingFactor, rep.Metrics.MaxNestingDepth)

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Node", "Target", "Confidence", "Review", "Rationale"})
	for _, d := range rep.Decisions() {
		review := ""
		if d.RequiresReview {
			review = "yes"
		}
		tw.AppendRow(table.Row{d.NodeID, d.TargetKind, d.Confidence, review, d.Rationale})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Confidence", Align: text.AlignRight},
		{Name: "Rationale", WidthMax: 60},
	})
	tw.Render()

	if len(rep.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range rep.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
}

// renderDocumentSummary prints a compact view of the converted workflow.
func renderDocumentSummary(doc *schema.TargetWorkflowDocument) {
	fmt.Printf("\nWorkflow %q: %d steps, %d rules, %d groups\n",
		doc.Name, len(doc.Steps), len(doc.Rules), len(doc.Groups))

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Step", "Title", "Kind", "Group", "Deadline"})
	for _, step := range doc.Steps {
		tw.AppendRow(table.Row{step.ID, step.Title, step.Kind, step.Group, step.Deadline})
	}
	tw.Render()
}

// writeDocument marshals the workflow document to a file or stdout ("-").
func writeDocument(doc *schema.TargetWorkflowDocument, out string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if out == "" || out == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Document written to %s\n", out)
	return nil
}
