package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/paper-review/internal/paperreview"
	"github.com/joelkehle/paper-review/internal/render"
	"github.com/joelkehle/paper-review/internal/textextract"
)

var reviewFlags struct {
	format      string
	output      string
	pdfPath     string
	concurrency int
	timeout     time.Duration
	quiet       bool
}

var reviewCmd = &cobra.Command{
	Use:   "review <paper.pdf|paper.txt>",
	Short: "Review one paper and print the report",
	Long: `Extracts text from a PDF or UTF-8 text file, runs the review pipeline and
writes the report as JSON (default) or Markdown.

  paper-review review paper.pdf
  paper-review review paper.pdf --format=markdown -o review.md
  paper-review review paper.pdf --pdf review.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&reviewFlags.format, "format", "json", "Output format: json or markdown")
	f.StringVarP(&reviewFlags.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.StringVar(&reviewFlags.pdfPath, "pdf", "", "Also render the report to this PDF file")
	f.IntVar(&reviewFlags.concurrency, "concurrency", 0, "Max concurrent section calls (default from config)")
	f.DurationVar(&reviewFlags.timeout, "timeout", 0, "Per-call generation timeout (default from config)")
	f.BoolVarP(&reviewFlags.quiet, "quiet", "q", false, "Suppress stage progress on stderr")
}

func runReview(cmd *cobra.Command, args []string) error {
	if reviewFlags.format != "json" && reviewFlags.format != "markdown" {
		return fmt.Errorf("unknown format %q (want json or markdown)", reviewFlags.format)
	}
	c := cfg
	if reviewFlags.concurrency > 0 {
		c.MaxSectionConcurrency = reviewFlags.concurrency
	}
	if reviewFlags.timeout > 0 {
		c.CallTimeout = reviewFlags.timeout
	}

	extracted, err := textextract.FromFile(cmd.Context(), args[0], c.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("extract %s: %w", args[0], err)
	}

	tp, stopTracing, err := startTracing(cmd.Context(), c)
	if err != nil {
		return err
	}
	defer stopTracing()

	gen, closeGen, err := buildGenerator(c)
	if err != nil {
		return err
	}
	defer closeGen()

	stderr := cmd.ErrOrStderr()
	progress := func(stage, message string) {
		if !reviewFlags.quiet {
			fmt.Fprintf(stderr, "[%s] %s\n", stage, message)
		}
	}
	report, err := newPipeline(c, gen, tp).RunWithProgress(cmd.Context(), extracted.Text, baseName(args[0]), progress)
	if err != nil {
		return fmt.Errorf("review failed at %s (%s): %w", paperreview.StageNameFromError(err), paperreview.KindName(err), err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if reviewFlags.output != "" {
		fh, err := os.Create(reviewFlags.output)
		if err != nil {
			return err
		}
		defer fh.Close()
		out = fh
	}
	if err := writeReport(out, report, reviewFlags.format); err != nil {
		return err
	}

	if reviewFlags.pdfPath != "" {
		pdf, err := render.NewPDFRenderer(c.ChromePath).Render(cmd.Context(), report)
		if err != nil {
			return err
		}
		if err := os.WriteFile(reviewFlags.pdfPath, pdf, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "PDF: %s\n", reviewFlags.pdfPath)
	}
	return nil
}

func writeReport(w io.Writer, report paperreview.ReviewReport, format string) error {
	if format == "markdown" {
		_, err := io.WriteString(w, paperreview.RenderMarkdown(report))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
