package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/store"
)

func migrateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Convert a BPMN document into a workflow document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			logger := newLogger()
			pipeline, err := newPipeline(logger)
			if err != nil {
				return err
			}

			res, err := pipeline.Migrate(cmd.Context(), raw)
			if err != nil {
				return err
			}

			runID, err := archiveRun(cmd, args[0], res)
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(map[string]any{
					"run_id":   runID,
					"document": res.Document,
					"report":   res.Report,
				})
			}

			renderReport(res.Report)
			if out != "" {
				if err := writeDocument(res.Document, out); err != nil {
					return err
				}
			} else {
				renderDocumentSummary(res.Document)
			}
			if runID != "" {
				fmt.Printf("\nArchived as run %s\n", runID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the workflow document JSON to this file ('-' for stdout)")
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Report migration feasibility without emitting a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			pipeline, err := newPipeline(newLogger())
			if err != nil {
				return err
			}

			rep, err := pipeline.Analyze(cmd.Context(), raw)
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(rep)
			}
			renderReport(rep)
			return nil
		},
	}
}

// archiveRun saves the result when --db-path is set. Returns the run id, or
// "" when archiving is disabled.
func archiveRun(cmd *cobra.Command, sourcePath string, res *engine.RunResult) (string, error) {
	s, err := openStore(cmd)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	defer s.Close()

	run := &store.Run{
		ID:               uuid.NewString(),
		ProcessID:        res.Report.ProcessID,
		SourceName:       filepath.Base(sourcePath),
		FeasibilityScore: res.Report.FeasibilityScore,
		Complexity:       res.Report.ComplexityLevel,
		Document:         res.Document,
		Report:           res.Report,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.SaveRun(cmd.Context(), run); err != nil {
		return "", err
	}
	return run.ID, nil
}
