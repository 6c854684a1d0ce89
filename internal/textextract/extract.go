package textextract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joelkehle/paper-review/internal/logging"
	"github.com/joelkehle/paper-review/internal/paperreview"
)

const (
	DefaultMaxBytes = 20 * 1024 * 1024

	// MethodPDF decodes text with each page's font encodings.
	MethodPDF = "pdf"
	// MethodPDFRaw reads raw content streams; used when the font-aware reader
	// cannot parse the file.
	MethodPDFRaw = "pdfcpu"
	MethodText   = "text"
)

type Result struct {
	Text   string
	Method string
	Pages  int
}

// FromFile extracts text from a PDF or UTF-8 text file on disk.
func FromFile(ctx context.Context, path string, maxBytes int64) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Result{}, fmt.Errorf("document too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return FromBytes(ctx, filepath.Base(path), data)
}

// FromBytes extracts text from an uploaded document. Anything that is not a
// PDF must be valid UTF-8. An empty result is reported as
// paperreview.ErrExtractionUnavailable.
func FromBytes(ctx context.Context, name string, data []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if IsPDF(name, data) {
		return extractPDF(ctx, data)
	}
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("%w: %s is neither PDF nor UTF-8 text", paperreview.ErrExtractionUnavailable, name)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("%w: %s is empty", paperreview.ErrExtractionUnavailable, name)
	}
	return Result{Text: text, Method: MethodText}, nil
}

func IsPDF(name string, data []byte) bool {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func extractPDF(ctx context.Context, data []byte) (Result, error) {
	pages, total, err := extractWithFonts(ctx, data)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}
	if err == nil && len(pages) > 0 {
		return Result{Text: strings.Join(pages, "\n"), Method: MethodPDF, Pages: total}, nil
	}
	if err != nil {
		logging.New("textextract").Debug("font-aware extraction failed, reading raw content", "error", err)
	}

	pages, total, err = extractRawContent(ctx, data)
	if err != nil {
		return Result{}, err
	}
	if len(pages) == 0 {
		return Result{}, fmt.Errorf("%w: no text content found in PDF", paperreview.ErrExtractionUnavailable)
	}
	return Result{Text: strings.Join(pages, "\n"), Method: MethodPDFRaw, Pages: total}, nil
}

func extractRawContent(ctx context.Context, data []byte) ([]string, int, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: pdfcpu read: %v", paperreview.ErrExtractionUnavailable, err)
	}

	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if text := extractPageText(pdfCtx, pageNr); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, pdfCtx.PageCount, nil
}

func extractPageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContent(data)
}
