package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flowport/flowport/internal/batch"
)

func batchCmd() *cobra.Command {
	var workers int
	var extensions []string
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Migrate every BPMN document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			pipeline, err := newPipeline(logger)
			if err != nil {
				return err
			}

			runner := batch.NewRunner(pipeline, workers, logger)
			result, err := runner.RunDir(cmd.Context(), args[0], extensions)
			if err != nil {
				return err
			}

			if viper.GetBool("json") {
				return printJSON(result)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"File", "Process", "Feasibility", "Complexity", "Duration", "Error"})
			for _, item := range result.Items {
				if item.Error != "" {
					tw.AppendRow(table.Row{item.Path, "", "", "", item.Duration.Round(time.Millisecond), item.Error})
					continue
				}
				tw.AppendRow(table.Row{
					item.Path, item.Report.ProcessID, item.Report.FeasibilityScore,
					item.Report.ComplexityLevel, item.Duration.Round(time.Millisecond), "",
				})
			}
			tw.Render()
			fmt.Printf("\nRun %s: %d succeeded, %d failed\n", result.RunID, result.Succeeded, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d documents failed", result.Failed, len(result.Items))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "concurrent migrations")
	cmd.Flags().StringSliceVar(&extensions, "ext", []string{".bpmn", ".xml"}, "file extensions to migrate")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		for i, ext := range extensions {
			if !strings.HasPrefix(ext, ".") {
				extensions[i] = "." + ext
			}
		}
		return nil
	}
	return cmd
}
