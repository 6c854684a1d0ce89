package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joelkehle/paper-review/internal/paperreview"
	"github.com/joelkehle/paper-review/internal/render"
)

var renderFlags struct {
	output string
	html   bool
}

var renderCmd = &cobra.Command{
	Use:   "render <report.json>",
	Short: "Render a saved review report to PDF or HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderFlags.output, "output", "o", "", "Output file (required)")
	f.BoolVar(&renderFlags.html, "html", false, "Write HTML instead of PDF (no browser needed)")
	_ = renderCmd.MarkFlagRequired("output")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var report paperreview.ReviewReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}
	if err := report.Scores.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	var out []byte
	if renderFlags.html {
		doc, err := render.HTML(report)
		if err != nil {
			return err
		}
		out = []byte(doc)
	} else {
		out, err = render.NewPDFRenderer(cfg.ChromePath).Render(cmd.Context(), report)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(renderFlags.output, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", renderFlags.output)
	return nil
}
