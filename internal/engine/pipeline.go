// Package engine wires the migration stages into one pipeline:
// parse -> classify -> transform -> analyze -> report. The pipeline owns the
// rule table and expression engines so repeated runs share compiled state.
package engine

import (
	"context"
	"log/slog"

	"github.com/flowport/flowport/internal/analyzer"
	"github.com/flowport/flowport/internal/classifier"
	"github.com/flowport/flowport/internal/expressions"
	"github.com/flowport/flowport/internal/logging"
	"github.com/flowport/flowport/internal/parser"
	"github.com/flowport/flowport/internal/report"
	"github.com/flowport/flowport/internal/ruletable"
	"github.com/flowport/flowport/internal/transform"
	"github.com/flowport/flowport/internal/validation"
	"github.com/flowport/flowport/pkg/schema"
)

// Pipeline runs migrations. Safe for concurrent use: all shared state is
// read-only after construction.
type Pipeline struct {
	table      *ruletable.Table
	exprs      *expressions.Registry
	validator  *validation.DocumentValidator
	logger     *slog.Logger
	cfg        transform.Config
	thresholds analyzer.Thresholds
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRuleTable replaces the embedded capability table.
func WithRuleTable(table *ruletable.Table) Option {
	return func(p *Pipeline) { p.table = table }
}

// WithReviewThreshold overrides the confidence below which decisions are
// flagged for review.
func WithReviewThreshold(threshold int) Option {
	return func(p *Pipeline) { p.cfg.ReviewThreshold = threshold }
}

// WithThresholds overrides the complexity bucket boundaries.
func WithThresholds(th analyzer.Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = th }
}

// New constructs a pipeline with the embedded rule table and all expression
// engines ready.
func New(opts ...Option) (*Pipeline, error) {
	exprs, err := expressions.NewRegistry()
	if err != nil {
		return nil, err
	}
	validator, err := validation.NewDocumentValidator()
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		exprs:      exprs,
		validator:  validator,
		logger:     slog.Default(),
		cfg:        transform.DefaultConfig(),
		thresholds: analyzer.DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.table == nil {
		table, err := ruletable.Load()
		if err != nil {
			return nil, err
		}
		p.table = table
	}
	return p, nil
}

// Table returns the capability table the pipeline runs with.
func (p *Pipeline) Table() *ruletable.Table {
	return p.table
}

// RunResult is the complete outcome of one migration run.
type RunResult struct {
	Graph    *schema.ProcessGraph           `json:"-"`
	Document *schema.TargetWorkflowDocument `json:"document"`
	Report   *schema.MigrationReport        `json:"report"`
}

// Migrate parses a source document and produces the target workflow plus the
// migration report. Malformed input is the only fatal outcome; unmappable
// constructs surface as low-confidence decisions, never as errors.
func (p *Pipeline) Migrate(ctx context.Context, raw []byte) (*RunResult, error) {
	graph, err := parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithDocumentID(ctx, graph.ProcessID)
	log := logging.LogWith(ctx, p.logger)

	classifications := classifier.Classify(graph)
	result := transform.Transform(ctx, graph, classifications, p.table, p.exprs, p.cfg)
	if err := p.validator.Validate(result.Document); err != nil {
		return nil, err
	}
	analysis := analyzer.Analyze(graph, classifications, result.Decisions, p.thresholds)
	rep := report.Build(graph.ProcessID, analysis, result.Decisions, result.Warnings)

	log.InfoContext(ctx, "migration complete",
		slog.Int("nodes", analysis.Metrics.NodeCount),
		slog.Int("steps", len(result.Document.Steps)),
		slog.Int("feasibility", analysis.FeasibilityScore),
		slog.String("complexity", string(analysis.ComplexityLevel)))

	return &RunResult{
		Graph:    graph,
		Document: result.Document,
		Report:   rep,
	}, nil
}

// Analyze runs the pipeline for its report only. The transform stage still
// executes because decision confidences depend on it, but the target
// document is not returned.
func (p *Pipeline) Analyze(ctx context.Context, raw []byte) (*schema.MigrationReport, error) {
	res, err := p.Migrate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}
