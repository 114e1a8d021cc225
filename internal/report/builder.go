// Package report assembles the migration report: the analyzer's scores plus
// every mapping decision partitioned into supported / partial / unsupported
// buckets. The report is the audit trail of a transformation; nothing in it
// is recomputed, it only reorganizes what the pipeline already decided.
package report

import (
	"github.com/flowport/flowport/pkg/schema"
)

// Confidence boundaries for the report buckets.
const (
	SupportedMin = 80
	PartialMin   = 20
)

// Build partitions decisions into the three buckets, preserving their
// original order within each bucket, and attaches the analysis and warnings.
func Build(processID string, analysis schema.Analysis, decisions []schema.MappingDecision, warnings []string) *schema.MigrationReport {
	r := &schema.MigrationReport{
		ProcessID:        processID,
		FeasibilityScore: analysis.FeasibilityScore,
		ComplexityLevel:  analysis.ComplexityLevel,
		Metrics:          analysis.Metrics,
		Supported:        []schema.MappingDecision{},
		Partial:          []schema.MappingDecision{},
		Unsupported:      []schema.MappingDecision{},
		Warnings:         warnings,
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}

	for _, d := range decisions {
		switch {
		case d.Confidence >= SupportedMin:
			r.Supported = append(r.Supported, d)
		case d.Confidence >= PartialMin:
			r.Partial = append(r.Partial, d)
		default:
			r.Unsupported = append(r.Unsupported, d)
		}
	}
	return r
}
