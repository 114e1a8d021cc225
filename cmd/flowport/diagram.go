package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowport/flowport/internal/diagram"
)

func diagramCmd() *cobra.Command {
	var view, format, out string
	cmd := &cobra.Command{
		Use:   "diagram <file>",
		Short: "Render a BPMN document or its converted workflow as a diagram",
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
			res, err := pipeline.Migrate(cmd.Context(), raw)
			if err != nil {
				return err
			}

			var model *diagram.Model
			switch view {
			case "source":
				model = diagram.BuildSource(res.Graph, res.Report)
			case "target":
				model = diagram.BuildTarget(res.Document)
			default:
				return fmt.Errorf("view must be source or target, got %q", view)
			}

			switch format {
			case "mermaid":
				text := diagram.RenderMermaid(model)
				if out == "" {
					fmt.Print(text)
					return nil
				}
				return os.WriteFile(out, []byte(text), 0o644)
			case "png":
				png, err := diagram.RenderImage(model)
				if err != nil {
					return err
				}
				if out == "" {
					return fmt.Errorf("--out is required for png output")
				}
				if err := os.WriteFile(out, png, 0o644); err != nil {
					return err
				}
				fmt.Printf("Diagram written to %s\n", out)
				return nil
			default:
				return fmt.Errorf("format must be mermaid or png, got %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&view, "view", "source", "diagram the source process or the target workflow")
	cmd.Flags().StringVar(&format, "format", "mermaid", "output format: mermaid or png")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout for mermaid if empty)")
	return cmd
}
