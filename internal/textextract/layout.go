package textextract

import (
	"math"
	"strings"
)

const (
	// TJ offsets are in thousandths of text space; a gap wider than this is
	// treated as a word break.
	tjWordGap = -250

	// Baseline shifts smaller than this (in text space units) stay on the
	// same output line.
	baselineTolerance = 1.0
)

// lineLayout follows the text line matrix of a content stream closely enough
// to decide where output lines break. It tracks only the baseline: a new
// baseline starts a new line, a move along the same baseline is a word gap.
type lineLayout struct {
	sb      strings.Builder
	y       float64
	leading float64
}

// beginText handles BT, which resets the text matrix to identity.
func (l *lineLayout) beginText() {
	l.newline()
	l.y = 0
}

// endText handles ET. Text objects never share an output line.
func (l *lineLayout) endText() {
	l.newline()
}

func (l *lineLayout) setLeading(tl float64) {
	l.leading = tl
}

// moveLine handles Td and TD.
func (l *lineLayout) moveLine(ty float64) {
	l.moveTo(l.y + ty)
}

// setMatrix handles Tm; f is the vertical translation of the new matrix.
func (l *lineLayout) setMatrix(f float64) {
	l.moveTo(f)
}

// nextLine handles T* and the implicit T* of the quote operators.
func (l *lineLayout) nextLine() {
	l.newline()
	l.y -= l.leading
}

func (l *lineLayout) moveTo(y float64) {
	if math.Abs(y-l.y) >= baselineTolerance {
		l.newline()
	} else {
		l.space()
	}
	l.y = y
}

func (l *lineLayout) show(s string) {
	l.sb.WriteString(s)
}

// kern handles a numeric TJ element.
func (l *lineLayout) kern(offset float64) {
	if offset <= tjWordGap {
		l.space()
	}
}

func (l *lineLayout) text() string {
	return cleanText(l.sb.String())
}

func (l *lineLayout) newline() {
	s := l.sb.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		l.sb.WriteByte('\n')
	}
}

func (l *lineLayout) space() {
	s := l.sb.String()
	if s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		l.sb.WriteByte(' ')
	}
}
