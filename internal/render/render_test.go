package render

import (
	"strings"
	"testing"

	"github.com/joelkehle/paper-review/internal/paperreview"
)

func sampleReport() paperreview.ReviewReport {
	return paperreview.ReviewReport{
		Filename: "paper <draft>.pdf",
		Scores: paperreview.ScoreCard{
			Novelty: 8, TechnicalQuality: 8, Methodology: 8, ExperimentalValidation: 8, Clarity: 9,
			Justification: map[string]string{
				"novelty": "New.", "technical_quality": "Sound.", "methodology": "Clear.",
				"experimental_validation": "Broad.", "clarity": "Readable.",
			},
		},
		AverageScore: 8.2,
		Decision:     paperreview.DecisionAccept,
		Suggestions:  "- Release code.",
		Observations: paperreview.ObservationSet{paperreview.SectionAbstract: "SUMMARY:\nShort."},
	}
}

func TestHTMLRendersReport(t *testing.T) {
	doc, err := HTML(sampleReport())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{
		"<title>Peer Review: paper &lt;draft&gt;.pdf</title>",
		"<span class='report-badge decision-accept'>Accept</span>",
		"Average 8.20 / 10",
		"<table>",
		`<h2 data-page-break-before="true">Section Observations</h2>`,
		"<li>Release code.</li>",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("html missing %q:\n%s", want, doc)
		}
	}
}

func TestApplyPrintLayoutHooksNoopWhenHeadingMissing(t *testing.T) {
	in := "<h2>Scores</h2><p>x</p>"
	if out := applyPrintLayoutHooks(in); out != in {
		t.Fatalf("expected no change, got %s", out)
	}
}

func TestBadgeClassForTwoWordDecision(t *testing.T) {
	r := sampleReport()
	r.Decision = paperreview.DecisionWeakReject
	if got := buildBadgeHTML(r); !strings.Contains(got, "decision-weak-reject") {
		t.Fatalf("unexpected badge html %s", got)
	}
}

func TestNewPDFRendererKeepsExplicitChromePath(t *testing.T) {
	if r := NewPDFRenderer("/opt/chrome"); r.chromePath != "/opt/chrome" || r.timeout != defaultRenderTimeout {
		t.Fatalf("unexpected renderer %+v", r)
	}
}
