package paperreview

import (
	"fmt"
	"strings"
	"time"
)

var scoreLabels = map[string]string{
	FieldNovelty:                "Novelty",
	FieldTechnicalQuality:       "Technical Quality",
	FieldMethodology:            "Methodology",
	FieldExperimentalValidation: "Experimental Validation",
	FieldClarity:                "Clarity",
}

const Disclaimer = "This is an automated preliminary review generated from extracted text. " +
	"It does not replace assessment by qualified human reviewers."

func RenderMarkdown(report ReviewReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Peer Review Report\n\n")
	fmt.Fprintf(&b, "- File: %s\n", report.Filename)
	if report.Metadata != nil {
		if report.Metadata.ReviewID != "" {
			fmt.Fprintf(&b, "- Review ID: %s\n", report.Metadata.ReviewID)
		}
		if !report.Metadata.CompletedAt.IsZero() {
			fmt.Fprintf(&b, "- Date: %s\n", report.Metadata.CompletedAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(&b, "\n%s\n\n", Disclaimer)

	fmt.Fprintf(&b, "## Decision\n\n")
	fmt.Fprintf(&b, "Overall decision: **%s** (average score %.2f / 10).\n\n", report.Decision, report.AverageScore)

	fmt.Fprintf(&b, "## Scores\n\n")
	fmt.Fprintf(&b, "| Criterion | Score | Justification |\n|---|---|---|\n")
	for _, field := range ScoreFields {
		v, _ := report.Scores.Score(field)
		fmt.Fprintf(&b, "| %s | %d | %s |\n", scoreLabels[field], v, tableCell(report.Scores.Justification[field]))
	}
	b.WriteString("\n")

	if len(report.Observations) > 0 {
		fmt.Fprintf(&b, "## Section Observations\n\n")
		for _, name := range report.Observations.Sections() {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", sectionTitle(name), strings.TrimSpace(report.Observations[name]))
		}
	}

	fmt.Fprintf(&b, "## Suggestions for Improvement\n\n%s\n", strings.TrimSpace(report.Suggestions))
	return b.String()
}

func sectionTitle(name SectionName) string {
	s := string(name)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func tableCell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
