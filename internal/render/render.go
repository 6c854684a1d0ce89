package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/paper-review/internal/paperreview"
)

const defaultRenderTimeout = 30 * time.Second

const reportCSS = `
body{font-family:Georgia,"Times New Roman",serif;color:#1c1917;background:#fff;padding:0.6rem;line-height:1.45;}
.pdf-wrap{max-width:1000px;margin:0 auto;}
.report-badges{margin:0 0 0.8rem 0;}
.report-badge{display:inline-block;margin-right:0.4rem;padding:0.15rem 0.55rem;border-radius:999px;font-size:0.8rem;font-family:Helvetica,Arial,sans-serif;}
.decision-accept{background:#dcfce7;color:#14532d;border:1px solid #86efac;}
.decision-weak-accept{background:#ecfccb;color:#365314;border:1px solid #bef264;}
.decision-weak-reject{background:#fef3c7;color:#78350f;border:1px solid #fcd34d;}
.decision-reject{background:#fee2e2;color:#7f1d1d;border:1px solid #fca5a5;}
.score-badge{background:#f1f5f9;color:#0f172a;border:1px solid #cbd5e1;}
.report-html blockquote{margin:0.6rem 0;padding:0.3rem 0.8rem;border-left:3px solid #a8a29e;color:#57534e;}
.report-html table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
.report-html th,.report-html td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
.report-html thead th{background:#f1f5f9;font-weight:700;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;} .pdf-wrap{max-width:none;}}
`

// HTML renders a review report as a standalone HTML document.
func HTML(report paperreview.ReviewReport) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(paperreview.RenderMarkdown(report)), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	title := "Peer Review"
	if report.Filename != "" {
		title += ": " + report.Filename
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + reportCSS + "</style></head><body>" +
		"<div class='pdf-wrap'><div class='report-badges'>" + buildBadgeHTML(report) + "</div>" +
		"<div class='report-html'>" + applyPrintLayoutHooks(content.String()) + "</div></div>" +
		"</body></html>", nil
}

var reObservationsHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Section Observations\s*</h2>`)

// applyPrintLayoutHooks starts the per-section observations on a new page.
func applyPrintLayoutHooks(contentHTML string) string {
	return reObservationsHeading.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">Section Observations</h2>`)
}

func buildBadgeHTML(report paperreview.ReviewReport) string {
	var out strings.Builder
	if report.Decision != "" {
		class := "decision-" + strings.ReplaceAll(strings.ToLower(string(report.Decision)), " ", "-")
		out.WriteString("<span class='report-badge " + class + "'>" + html.EscapeString(string(report.Decision)) + "</span>")
	}
	out.WriteString(fmt.Sprintf("<span class='report-badge score-badge'>Average %.2f / 10</span>", report.AverageScore))
	return out.String()
}

// PDFRenderer prints report HTML through a headless Chromium.
type PDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

func NewPDFRenderer(chromePath string) *PDFRenderer {
	if strings.TrimSpace(chromePath) == "" {
		chromePath = detectChromePath()
	}
	return &PDFRenderer{chromePath: chromePath, timeout: defaultRenderTimeout}
}

func (r *PDFRenderer) Render(ctx context.Context, report paperreview.ReviewReport) ([]byte, error) {
	htmlDoc, err := HTML(report)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.5).
				WithMarginRight(0.5).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

func detectChromePath() string {
	for _, p := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
