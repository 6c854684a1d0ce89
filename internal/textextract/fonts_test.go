package textextract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/joelkehle/paper-review/internal/paperreview"
)

// Maps codes 01..06 to "Results" through a ToUnicode CMap.
const resultsCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<00> <FF>
endcodespacerange
6 beginbfchar
<01> <0052>
<02> <0065>
<03> <0073>
<04> <0075>
<05> <006C>
<06> <0074>
endbfchar
endcmap
end
end`

// Every line is placed with an absolute text matrix.
const matrixPositionedPage = `BT /F1 16 Tf 1 0 0 1 72 740 Tm (Title of Paper) Tj
/F1 11 Tf 1 0 0 1 72 700 Tm (Abstract) Tj 1 0 0 1 72 686 Tm (We study caf\351 queues.) Tj
1 0 0 1 72 660 Tm (Introduction) Tj 1 0 0 1 72 646 Tm (Queues matter.) Tj
1 0 0 1 160 646 Tm (A lot.) Tj ET`

const relativePositionedPage = `BT /F1 11 Tf 72 740 Td (Methods) Tj 0 -14 Td (We simulate.) Tj ET
BT /F2 11 Tf 72 700 Td <01020304050603> Tj ET
BT /F1 11 Tf 72 686 Td (It works.) Tj ET`

func pdfStream(content string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
}

// buildPDF assembles a small PDF with one page per content stream. /F1 is a
// WinAnsi Helvetica; with mapped set, /F2 decodes through resultsCMap.
func buildPDF(header string, mapped bool, contents ...string) []byte {
	kids := make([]string, len(contents))
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 6+2*i)
	}
	fonts := "/F1 3 0 R"
	if mapped {
		fonts += " /F2 4 0 R"
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(contents)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Mapped /ToUnicode 5 0 R >>",
		pdfStream(resultsCMap),
	}
	for i, c := range contents {
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << %s >> >> /Contents %d 0 R >>", fonts, 7+2*i),
			pdfStream(c),
		)
	}

	var b bytes.Buffer
	b.WriteString(header + "\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestFromBytesPDFUsesFontEncodings(t *testing.T) {
	data := buildPDF("%PDF-1.4", true, matrixPositionedPage, relativePositionedPage)

	res, err := FromBytes(context.Background(), "paper.pdf", data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	want := "Title of Paper\nAbstract\nWe study café queues.\nIntroduction\nQueues matter. A lot.\n" +
		"Methods\nWe simulate.\nResults\nIt works."
	if res.Text != want {
		t.Fatalf("text:\n got %q\nwant %q", res.Text, want)
	}
	if res.Method != MethodPDF || res.Pages != 2 {
		t.Fatalf("method=%s pages=%d", res.Method, res.Pages)
	}

	sections := paperreview.Segment(res.Text)
	for _, name := range []paperreview.SectionName{
		paperreview.SectionAbstract,
		paperreview.SectionIntroduction,
		paperreview.SectionMethodology,
		paperreview.SectionResults,
	} {
		if sections[name] == "" {
			t.Fatalf("section %s not detected in %q", name, res.Text)
		}
	}
}

func TestFromBytesPDFFallsBackToRawContent(t *testing.T) {
	// The font-aware reader only accepts 1.x headers.
	data := buildPDF("%PDF-2.0", false, matrixPositionedPage)

	res, err := FromBytes(context.Background(), "paper.pdf", data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if res.Method != MethodPDFRaw {
		t.Fatalf("method = %s, want %s", res.Method, MethodPDFRaw)
	}
	if !strings.Contains(res.Text, "Abstract\nWe study café queues.\nIntroduction\n") {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestExtractWithFontsSkipsEmptyPages(t *testing.T) {
	data := buildPDF("%PDF-1.4", false, "", matrixPositionedPage)

	pages, total, err := extractWithFonts(context.Background(), data)
	if err != nil {
		t.Fatalf("extractWithFonts: %v", err)
	}
	if total != 2 || len(pages) != 1 || !strings.HasPrefix(pages[0], "Title of Paper\nAbstract") {
		t.Fatalf("total=%d pages=%q", total, pages)
	}
}
