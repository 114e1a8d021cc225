package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowport/flowport/internal/store"
	"github.com/flowport/flowport/pkg/schema"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "runs", Short: "Browse archived migration runs"}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsDeleteCmd())
	return cmd
}

// requireStore opens the archive or fails: runs subcommands are meaningless
// without --db-path.
func requireStore(cmd *cobra.Command) (store.Store, error) {
	s, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("--db-path is required (or set FLOWPORT_DB_PATH)")
	}
	return s, nil
}

func runsListCmd() *cobra.Command {
	var processID, complexity string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), store.RunFilter{
				ProcessID:  processID,
				Complexity: schema.ComplexityLevel(complexity),
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(runs)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Run", "Process", "Source", "Feasibility", "Complexity", "Created"})
			for _, run := range runs {
				tw.AppendRow(table.Row{
					run.ID, run.ProcessID, run.SourceName, run.FeasibilityScore,
					run.Complexity, run.CreatedAt.Format(time.RFC3339),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&processID, "process", "", "filter by process id")
	cmd.Flags().StringVar(&complexity, "complexity", "", "filter by complexity level")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func runsShowCmd() *cobra.Command {
	var document bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(run)
			}
			renderReport(run.Report)
			if document {
				return writeDocument(run.Document, "-")
			}
			renderDocumentSummary(run.Document)
			return nil
		},
	}
	cmd.Flags().BoolVar(&document, "document", false, "print the full workflow document JSON")
	return cmd
}

func runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", args[0])
			return nil
		},
	}
}
