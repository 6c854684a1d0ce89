package textextract

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

type operandKind int

const (
	opOther operandKind = iota
	opString
	opNumber
	opArray
)

type operand struct {
	kind operandKind
	str  string
	num  float64
	arr  []operand
}

// textFromContent walks a raw page content stream and renders its
// text-showing operators through lineLayout. Strings are decoded as PDF text
// strings since no font information is available here.
func textFromContent(data []byte) string {
	var (
		l        lineLayout
		operands []operand
		arrays   [][]operand
	)
	push := func(o operand) {
		if n := len(arrays); n > 0 {
			arrays[n-1] = append(arrays[n-1], o)
			return
		}
		operands = append(operands, o)
	}
	last := func(kind operandKind) (operand, bool) {
		if len(operands) == 0 || operands[len(operands)-1].kind != kind {
			return operand{}, false
		}
		return operands[len(operands)-1], true
	}
	showLast := func() {
		if o, ok := last(opString); ok {
			l.show(o.str)
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, n := readLiteral(data[i:])
			push(operand{kind: opString, str: decodePDFString(raw)})
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			end := strings.Index(string(data[i:]), ">>")
			if end < 0 {
				i = len(data)
			} else {
				i += end + 2
			}
			push(operand{kind: opOther})
		case c == '<':
			end := strings.IndexByte(string(data[i:]), '>')
			if end < 0 {
				i = len(data)
				continue
			}
			push(operand{kind: opString, str: decodeHexString(data[i+1 : i+end])})
			i += end + 1
		case c == '[':
			arrays = append(arrays, nil)
			i++
		case c == ']':
			if n := len(arrays); n > 0 {
				arr := arrays[n-1]
				arrays = arrays[:n-1]
				push(operand{kind: opArray, arr: arr})
			}
			i++
		case c == '>' || c == ')' || c == '{' || c == '}':
			i++
		default:
			start := i
			if c == '/' {
				i++
			}
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			tok := string(data[start:i])
			if tok == "" {
				i++
				continue
			}
			if tok[0] == '/' {
				push(operand{kind: opOther})
				continue
			}
			if f, err := strconv.ParseFloat(tok, 64); err == nil {
				push(operand{kind: opNumber, num: f})
				continue
			}
			if len(arrays) > 0 {
				push(operand{kind: opOther})
				continue
			}

			// The last operand is ty for Td/TD, f for Tm and TL's leading.
			lastNum, hasNum := last(opNumber)
			switch tok {
			case "BT":
				l.beginText()
			case "ET":
				l.endText()
			case "TL":
				if hasNum {
					l.setLeading(lastNum.num)
				}
			case "Td":
				if hasNum {
					l.moveLine(lastNum.num)
				}
			case "TD":
				if hasNum {
					l.moveLine(lastNum.num)
					l.setLeading(-lastNum.num)
				}
			case "Tm":
				if hasNum {
					l.setMatrix(lastNum.num)
				}
			case "T*":
				l.nextLine()
			case "Tj":
				showLast()
			case "'", "\"":
				l.nextLine()
				showLast()
			case "TJ":
				if o, ok := last(opArray); ok {
					for _, el := range o.arr {
						switch el.kind {
						case opString:
							l.show(el.str)
						case opNumber:
							l.kern(el.num)
						}
					}
				}
			}
			operands = operands[:0]
		}
	}
	return l.text()
}

// readLiteral returns the body of a parenthesised string starting at data[0]
// and the number of bytes consumed. Balanced inner parentheses are allowed.
func readLiteral(data []byte) ([]byte, int) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return data[1:i], i + 1
			}
		}
	}
	return data[1:], len(data)
}

func decodePDFString(raw []byte) string {
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			out = append(out, raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b', 'f':
		case '\r', '\n':
			// line continuation
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				out = append(out, byte(val))
			} else {
				out = append(out, raw[i])
			}
		}
	}
	return decodeTextBytes(out)
}

func decodeHexString(raw []byte) string {
	clean := make([]byte, 0, len(raw)+1)
	for _, b := range raw {
		if !isPDFSpace(b) {
			clean = append(clean, b)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out, err := hex.DecodeString(string(clean))
	if err != nil {
		return ""
	}
	return decodeTextBytes(out)
}

// decodeTextBytes reads UTF-16BE when the string carries a byte order mark
// and treats every other byte as a Latin-1 code point.
func decodeTextBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		u := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// cleanText collapses runs of spaces inside each line, drops unprintable
// characters and blank lines.
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			if unicode.IsSpace(r) {
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
			} else if unicode.IsPrint(r) {
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
