package extract

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// kernSpaceThreshold is the TJ adjustment (in thousandths of a text space
// unit) beyond which a kern is treated as an inter-word gap. Subset fonts
// frequently drop the space glyph and encode word breaks this way.
const kernSpaceThreshold = 180

// contentText scrapes the text-show operators out of a decoded PDF content
// stream. It understands literal and hex strings, the Tj, TJ, ' and "
// operators, and inserts line breaks at text-positioning operators. Font
// encodings are not resolved: WinAnsi-style single-byte text survives,
// CID-keyed fonts generally do not, and pages that decode to mostly
// non-printable runes are dropped.
func contentText(data []byte) string {
	p := &contentParser{data: data}
	p.run()

	text := tidyContentText(p.out.String())
	if !mostlyPrintable(text) {
		return ""
	}
	return text
}

type operand struct {
	str   []byte
	num   float64
	isStr bool
}

type contentParser struct {
	data     []byte
	pos      int
	out      strings.Builder
	operands []operand
}

func (p *contentParser) run() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case isPDFSpace(c):
			p.pos++
		case c == '%':
			p.skipComment()
		case c == '(':
			p.pushString(p.readLiteralString())
		case c == '<':
			if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
				p.pos += 2
			} else {
				p.pushString(p.readHexString())
			}
		case c == '>', c == '[', c == ']', c == '{', c == '}':
			p.pos++
		case c == '/':
			p.readName()
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			p.pushNumber(p.readNumber())
		default:
			p.applyOperator(p.readOperator())
		}
	}
}

func (p *contentParser) pushString(s []byte) {
	p.operands = append(p.operands, operand{str: s, isStr: true})
}

func (p *contentParser) pushNumber(n float64) {
	p.operands = append(p.operands, operand{num: n})
}

func (p *contentParser) applyOperator(op string) {
	switch op {
	case "Tj":
		if n := len(p.operands); n > 0 && p.operands[n-1].isStr {
			p.appendText(p.operands[n-1].str)
		}
	case "TJ":
		for _, o := range p.operands {
			if o.isStr {
				p.appendText(o.str)
			} else if o.num <= -kernSpaceThreshold {
				p.appendSpace()
			}
		}
	case "'", "\"":
		p.appendBreak()
		if n := len(p.operands); n > 0 && p.operands[n-1].isStr {
			p.appendText(p.operands[n-1].str)
		}
	case "Td", "TD":
		// tx ty Td: a vertical move starts a new line, a pure horizontal
		// move is column layout within one.
		if len(p.operands) >= 2 && p.operands[1].num != 0 {
			p.appendBreak()
		} else {
			p.appendSpace()
		}
	case "T*", "Tm", "ET":
		p.appendBreak()
	case "BI":
		p.skipInlineImage()
	}
	p.operands = p.operands[:0]
}

func (p *contentParser) appendText(b []byte) {
	if len(b) == 0 {
		return
	}
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		p.out.WriteString(decodeUTF16BE(b[2:]))
		return
	}
	for _, c := range b {
		switch {
		case c == '\n' || c == '\t':
			p.out.WriteByte(c)
		case c < 0x20 || c == 0x7F:
			// Control bytes are glyph indexes from an unmapped font.
		default:
			if r := win1252Rune(c); r != 0 {
				p.out.WriteRune(r)
			}
		}
	}
}

func (p *contentParser) appendSpace() {
	s := p.out.String()
	if s == "" || strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n") {
		return
	}
	p.out.WriteByte(' ')
}

func (p *contentParser) appendBreak() {
	s := p.out.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	p.out.WriteByte('\n')
}

func (p *contentParser) skipComment() {
	for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
		p.pos++
	}
}

// readLiteralString consumes a (...)-delimited string starting at '('.
// Balanced unescaped parentheses nest; escapes follow the PDF string rules.
func (p *contentParser) readLiteralString() []byte {
	p.pos++ // consume '('
	var out []byte
	depth := 1

	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.data) {
				return out
			}
			e := p.data[p.pos]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// Escaped newline continues the string.
				if p.pos+1 < len(p.data) && p.data[p.pos+1] == '\n' {
					p.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && p.pos+1 < len(p.data); k++ {
						d := p.data[p.pos+1]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						p.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			p.pos++
		case '(':
			depth++
			out = append(out, c)
			p.pos++
		case ')':
			depth--
			p.pos++
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
			p.pos++
		}
	}
	return out
}

// readHexString consumes a <...>-delimited hex string starting at '<'.
// Whitespace between digits is ignored; an odd final digit is padded with 0.
func (p *contentParser) readHexString() []byte {
	p.pos++ // consume '<'
	var out []byte
	var hi byte
	havePair := false

	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		if c == '>' {
			break
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if !havePair {
			hi = v
			havePair = true
		} else {
			out = append(out, hi<<4|v)
			havePair = false
		}
	}
	if havePair {
		out = append(out, hi<<4)
	}
	return out
}

func (p *contentParser) readName() {
	p.pos++ // consume '/'
	for p.pos < len(p.data) && isPDFRegular(p.data[p.pos]) {
		p.pos++
	}
}

func (p *contentParser) readNumber() float64 {
	start := p.pos
	if c := p.data[p.pos]; c == '+' || c == '-' {
		p.pos++
	}
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
		} else {
			break
		}
	}
	n, err := strconv.ParseFloat(string(p.data[start:p.pos]), 64)
	if err != nil {
		return 0
	}
	return n
}

func (p *contentParser) readOperator() string {
	start := p.pos
	for p.pos < len(p.data) && isPDFRegular(p.data[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		// Unknown delimiter byte; skip it so the scan always advances.
		p.pos++
		return ""
	}
	return string(p.data[start:p.pos])
}

// skipInlineImage advances past BI ... ID <binary> EI. The binary payload
// is unframed, so the scan looks for a whitespace-delimited EI token.
func (p *contentParser) skipInlineImage() {
	for p.pos+1 < len(p.data) {
		if p.data[p.pos] == 'E' && p.data[p.pos+1] == 'I' {
			prevOK := p.pos == 0 || isPDFSpace(p.data[p.pos-1])
			nextOK := p.pos+2 >= len(p.data) || isPDFSpace(p.data[p.pos+2])
			if prevOK && nextOK {
				p.pos += 2
				return
			}
		}
		p.pos++
	}
	p.pos = len(p.data)
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
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

func isPDFRegular(c byte) bool {
	return !isPDFSpace(c) && !isPDFDelimiter(c)
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func decodeUTF16BE(b []byte) string {
	if len(b) < 2 {
		return ""
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

// tidyContentText collapses intra-line whitespace runs left behind by
// kern-derived spaces and trims the page.
func tidyContentText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// mostlyPrintable reports whether at least 60% of the runes are text-like.
// Pages failing this are glyph-index soup from unmapped fonts.
func mostlyPrintable(s string) bool {
	if s == "" {
		return false
	}
	total, printable := 0, 0
	for _, r := range s {
		total++
		switch {
		case r == '\n' || r == '\t' || r == ' ':
			printable++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			printable++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			printable++
		}
	}
	return printable*10 >= total*6
}
