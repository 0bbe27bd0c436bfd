package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentText_SimpleShow(t *testing.T) {
	got := contentText([]byte("BT /F1 12 Tf (Hello World) Tj ET"))
	assert.Equal(t, "Hello World", got)
}

func TestContentText_TJKerning(t *testing.T) {
	// Small adjustments are kerning, large negative ones are word gaps.
	got := contentText([]byte("BT [(Hel) 20 (lo) -250 (World)] TJ ET"))
	assert.Equal(t, "Hello World", got)
}

func TestContentText_TJKerningWithExplicitSpace(t *testing.T) {
	got := contentText([]byte("BT [(Hel) -30 (lo) -250 ( World)] TJ ET"))
	assert.Equal(t, "Hello World", got)
}

func TestContentText_VerticalMoveStartsLine(t *testing.T) {
	got := contentText([]byte("BT (First line) Tj 0 -14 Td (Second line) Tj ET"))
	assert.Equal(t, "First line\nSecond line", got)
}

func TestContentText_HorizontalMoveStaysOnLine(t *testing.T) {
	got := contentText([]byte("BT (Col A) Tj 120 0 Td (Col B) Tj ET"))
	assert.Equal(t, "Col A Col B", got)
}

func TestContentText_QuoteOperators(t *testing.T) {
	got := contentText([]byte("BT (Line one) Tj (Line two) ' ET"))
	assert.Equal(t, "Line one\nLine two", got)

	got = contentText([]byte("BT (Row) Tj 2 1 (Next) \" ET"))
	assert.Equal(t, "Row\nNext", got)
}

func TestContentText_NextLineOperator(t *testing.T) {
	got := contentText([]byte("BT (A line) Tj T* (B line) Tj ET"))
	assert.Equal(t, "A line\nB line", got)
}

func TestContentText_LiteralStringEscapes(t *testing.T) {
	got := contentText([]byte(`BT (Paren \( inside \) and backslash \\ then \101) Tj ET`))
	assert.Equal(t, `Paren ( inside ) and backslash \ then A`, got)
}

func TestContentText_BalancedNestedParens(t *testing.T) {
	got := contentText([]byte("BT (balanced (inner) text) Tj ET"))
	assert.Equal(t, "balanced (inner) text", got)
}

func TestContentText_EscapedNewlineContinuation(t *testing.T) {
	got := contentText([]byte("BT (line one \\\ncontinued) Tj ET"))
	assert.Equal(t, "line one continued", got)
}

func TestContentText_HexStrings(t *testing.T) {
	assert.Equal(t, "Hello", contentText([]byte("BT <48656C6C6F> Tj ET")))
	assert.Equal(t, "Hello", contentText([]byte("BT <48 65 6C 6C 6F> Tj ET")))
	// Odd digit counts pad with zero.
	assert.Equal(t, "H`", contentText([]byte("BT <486> Tj ET")))
}

func TestContentText_UTF16Strings(t *testing.T) {
	got := contentText([]byte("BT <FEFF00480069> Tj ET"))
	assert.Equal(t, "Hi", got)
}

func TestContentText_SkipsInlineImage(t *testing.T) {
	stream := []byte("BT (before) Tj ET BI /W 2 /H 2 ID \x01\xff(]Tj< \x02 EI BT 0 -10 Td (after) Tj ET")
	got := contentText(stream)
	assert.Equal(t, "before\nafter", got)
}

func TestContentText_SkipsComments(t *testing.T) {
	got := contentText([]byte("% page header (not shown) Tj\nBT (real) Tj ET"))
	assert.Equal(t, "real", got)
}

func TestContentText_WinAnsiPunctuation(t *testing.T) {
	// 0x93/0x94 are curly quotes in WinAnsi, 0xE9 is e-acute.
	got := contentText([]byte("BT (caf\xe9 \x93ok\x94) Tj ET"))
	assert.Equal(t, "café “ok”", got)
}

func TestContentText_DropsUnmappedGlyphSoup(t *testing.T) {
	got := contentText([]byte("BT <0102030405060708> Tj ET"))
	assert.Equal(t, "", got)
}

func TestContentText_TwoByteASCIISurvives(t *testing.T) {
	// UCS-2-ish CID text with zero high bytes degrades to readable ASCII.
	got := contentText([]byte("BT <00480065006C006C006F> Tj ET"))
	assert.Equal(t, "Hello", got)
}

func TestContentText_CollapsesRunsOfSpaces(t *testing.T) {
	got := contentText([]byte("BT (spaced   out    text) Tj ET"))
	assert.Equal(t, "spaced out text", got)
}

func TestContentText_EmptyStream(t *testing.T) {
	assert.Equal(t, "", contentText(nil))
	assert.Equal(t, "", contentText([]byte("BT ET")))
}

func TestMostlyPrintable(t *testing.T) {
	assert.True(t, mostlyPrintable("Informe anual de ventas, página 3."))
	assert.False(t, mostlyPrintable(""))
	assert.False(t, mostlyPrintable(strings.Repeat("͸", 10)+"ok"))
}
