package textextract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractWithFonts reads every page through the PDF object reader and
// decodes shown strings with the font's own encoding, ToUnicode maps
// included. Any page it cannot interpret fails the whole document so the
// caller can fall back to raw content extraction.
func extractWithFonts(ctx context.Context, data []byte) ([]string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}
	total := r.NumPage()
	var pages []string
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			return nil, total, fmt.Errorf("page %d: %w", n, err)
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages, total, nil
}

func pageText(page pdf.Page) (text string, err error) {
	// The reader reports malformed objects by panicking.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("interpret content: %v", r)
		}
	}()

	fonts := map[string]pdf.TextEncoding{}
	for _, name := range page.Fonts() {
		fonts[name] = page.Font(name).Encoder()
	}

	var (
		l   lineLayout
		enc pdf.TextEncoding
	)
	decode := func(v pdf.Value) string {
		if enc == nil {
			return decodeTextBytes([]byte(v.RawString()))
		}
		return enc.Decode(v.RawString())
	}
	do := func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		num := func(i int) float64 {
			if i >= len(args) {
				return 0
			}
			return args[i].Float64()
		}
		switch op {
		case "BT":
			l.beginText()
		case "ET":
			l.endText()
		case "Tf":
			enc = nil
			if len(args) == 2 {
				enc = fonts[args[0].Name()]
			}
		case "TL":
			l.setLeading(num(0))
		case "Td":
			l.moveLine(num(1))
		case "TD":
			l.moveLine(num(1))
			l.setLeading(-num(1))
		case "Tm":
			l.setMatrix(num(5))
		case "T*":
			l.nextLine()
		case "Tj":
			if len(args) == 1 {
				l.show(decode(args[0]))
			}
		case "'", "\"":
			l.nextLine()
			if len(args) > 0 {
				l.show(decode(args[len(args)-1]))
			}
		case "TJ":
			if len(args) != 1 {
				return
			}
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				el := arr.Index(i)
				switch el.Kind() {
				case pdf.String:
					l.show(decode(el))
				case pdf.Integer, pdf.Real:
					l.kern(el.Float64())
				}
			}
		}
	}

	contents := page.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Null:
		return "", nil
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			pdf.Interpret(contents.Index(i), do)
		}
	default:
		pdf.Interpret(contents, do)
	}
	return l.text(), nil
}
