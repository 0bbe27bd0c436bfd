package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	assert.Nil(t, Split("", Options{}))
	assert.Nil(t, Split("   \n\t  \n", Options{}))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	text := "A short note about nothing in particular."

	chunks := Split(text, Options{})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, utf8.RuneCountInString(text), chunks[0].Length)
}

func TestSplit_LengthIsRuneCount(t *testing.T) {
	text := strings.Repeat("café con leche. ", 40)

	chunks := Split(text, Options{ChunkSize: 120, Overlap: 20, MinChunkLen: 10})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, utf8.RuneCountInString(c.Text), c.Length)
		assert.Less(t, c.Length, len(c.Text), "multi-byte text counts runes, not bytes")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf to lf", "one\r\ntwo\r\nthree", "one\ntwo\nthree"},
		{"bare cr to lf", "one\rtwo", "one\ntwo"},
		{"collapse triple newline", "one\n\n\ntwo", "one\n\ntwo"},
		{"collapse long run", "one\n\n\n\n\n\ntwo", "one\n\ntwo"},
		{"preserve single blank line", "one\n\ntwo", "one\n\ntwo"},
		{"crlf run collapses", "one\r\n\r\n\r\ntwo", "one\n\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "basic boundaries",
			in:   "Hello world. This is fine. Done now.",
			want: []string{"Hello world.", "This is fine.", "Done now."},
		},
		{
			name: "no split before lowercase",
			in:   "See e.g. the appendix for details.",
			want: []string{"See e.g. the appendix for details."},
		},
		{
			name: "no split without whitespace",
			in:   "Version 2.5 shipped. Release notes follow.",
			want: []string{"Version 2.5 shipped.", "Release notes follow."},
		},
		{
			name: "exclamation and question marks",
			in:   "Stop! Why did it stop? Nobody knows.",
			want: []string{"Stop!", "Why did it stop?", "Nobody knows."},
		},
		{
			name: "ellipsis terminator",
			in:   "It trailed off… Then it resumed.",
			want: []string{"It trailed off…", "Then it resumed."},
		},
		{
			name: "accented uppercase starts a sentence",
			in:   "La obra termina. Ésta es la segunda parte.",
			want: []string{"La obra termina.", "Ésta es la segunda parte."},
		},
		{
			name: "newline counts as boundary whitespace",
			in:   "First line ends here.\nNext line starts.",
			want: []string{"First line ends here.", "Next line starts."},
		},
		{
			name: "no boundaries at all",
			in:   "just a lowercase run with no terminators",
			want: []string{"just a lowercase run with no terminators"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitIntoSentences(tt.in))
		})
	}
}

func TestMergeShortFragments(t *testing.T) {
	// "Dr." splits off as a fragment and gets folded back in
	pieces := splitIntoSentences("Dr. Smith arrived early. No. He left after lunch.")
	merged := mergeShortFragments(pieces)

	assert.Equal(t, []string{
		"Dr. Smith arrived early. No.",
		"He left after lunch.",
	}, merged)
}

func TestHasSentenceBoundary(t *testing.T) {
	assert.True(t, hasSentenceBoundary("One thing. Another thing."))
	assert.False(t, hasSentenceBoundary("no terminators here at all"))
	assert.False(t, hasSentenceBoundary("trailing period only."))
	assert.False(t, hasSentenceBoundary("period. then lowercase"))
}

func TestSplit_AutoDetection(t *testing.T) {
	t.Run("paragraph when blank lines and text exceeds budget", func(t *testing.T) {
		text := strings.Repeat("word ", 20) + "\n\n" + strings.Repeat("more ", 20)
		chunks := Split(text, Options{ChunkSize: 50, Overlap: 10, MinChunkLen: 10})
		require.NotEmpty(t, chunks)
		assert.Equal(t, StrategyParagraph, chunks[0].Strategy)
	})

	t.Run("sentence when blank lines but text fits budget", func(t *testing.T) {
		text := "Hi there. Bye now.\n\nMore text follows."
		chunks := Split(text, Options{})
		require.NotEmpty(t, chunks)
		assert.Equal(t, StrategySentence, chunks[0].Strategy)
	})

	t.Run("sentence when boundaries detectable", func(t *testing.T) {
		chunks := Split("One thing happened. Then another thing happened.", Options{})
		require.NotEmpty(t, chunks)
		assert.Equal(t, StrategySentence, chunks[0].Strategy)
	})

	t.Run("character when no structure", func(t *testing.T) {
		chunks := Split(strings.Repeat("x", 300), Options{ChunkSize: 100, Overlap: 20, MinChunkLen: 10})
		require.NotEmpty(t, chunks)
		assert.Equal(t, StrategyCharacter, chunks[0].Strategy)
	})
}

// makeSentence builds a 49-character sentence tagged with a letter so
// tests can assert exact chunk composition.
func makeSentence(i int) string {
	return fmt.Sprintf("Sentence %c is exactly this long for the test run.", rune('A'+i))
}

func TestSplit_SentenceAccumulation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 12; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(makeSentence(i))
	}

	chunks := Split(b.String(), Options{
		ChunkSize:   200,
		Overlap:     60,
		MinChunkLen: 20,
		Strategy:    StrategySentence,
	})

	// 12 sentences of 49 chars pack four to a chunk, with the fourth
	// carried into the next chunk as overlap
	require.Len(t, chunks, 4)
	assert.Equal(t, makeSentence(0)+" "+makeSentence(1)+" "+makeSentence(2)+" "+makeSentence(3), chunks[0].Text)
	assert.True(t, strings.HasPrefix(chunks[1].Text, makeSentence(3)), "overlap carries a whole trailing sentence")
	assert.True(t, strings.HasPrefix(chunks[2].Text, makeSentence(6)))
	assert.True(t, strings.HasSuffix(chunks[3].Text, makeSentence(11)))

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplit_ThreeParagraphDocument(t *testing.T) {
	// Three paragraphs of roughly 850 characters each
	sentence := "The quick brown fox jumps over the lazy dog near the riverbank. "
	paragraph := strings.TrimSpace(strings.Repeat(sentence, 13))
	text := paragraph + "\n\n" + paragraph + "\n\n" + paragraph
	require.Greater(t, len(text), 2400)

	chunks := Split(text, Options{})

	// Each paragraph stands alone: none fit together within 1000 chars
	require.GreaterOrEqual(t, len(chunks), 3)
	require.LessOrEqual(t, len(chunks), 4)
	assert.Equal(t, StrategyParagraph, chunks[0].Strategy)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Text, "The quick brown fox"))
	}
}

func TestSplit_ParagraphOverlapCarriesLastParagraph(t *testing.T) {
	// Small paragraphs so the last one fits the overlap budget
	paras := make([]string, 6)
	for i := range paras {
		paras[i] = fmt.Sprintf("Paragraph %c holds a little bit of content for testing.", rune('A'+i))
	}
	text := strings.Join(paras, "\n\n")

	chunks := Split(text, Options{
		ChunkSize:   150,
		Overlap:     80,
		MinChunkLen: 20,
		Strategy:    StrategyParagraph,
	})

	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		lastPara := prev[strings.LastIndex(prev, "\n\n")+2:]
		if utf8.RuneCountInString(lastPara) <= 80 {
			assert.True(t, strings.HasPrefix(chunks[i].Text, lastPara),
				"chunk %d should start with the previous chunk's final paragraph", i)
		}
	}
}

func TestSplit_OversizedParagraphRecursesIntoSentences(t *testing.T) {
	sentence := "Relentless documentation describes the system in exhausting detail. "
	big := strings.TrimSpace(strings.Repeat(sentence, 30)) // ~2000 chars
	text := "Short opening paragraph.\n\n" + big + "\n\nShort closing paragraph."

	chunks := Split(text, Options{ChunkSize: 1000, Overlap: 200, MinChunkLen: 100, Strategy: StrategyParagraph})

	require.Greater(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 1500,
			"oversized paragraph must be split rather than emitted whole")
	}
	// The small opening paragraph must not surface as an undersized chunk
	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(c.Text), 100)
	}
}

func TestSplit_CharacterWindowsNudgeToWhitespace(t *testing.T) {
	// 10-character cycles ending in a space; every cut lands on a word end
	text := strings.Repeat("abcdefghi ", 30)

	chunks := Split(text, Options{ChunkSize: 100, Overlap: 20, MinChunkLen: 10, Strategy: StrategyCharacter})

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c.Text, "abcdefghi"),
			"chunk %d should end on a word boundary, got %q", i, c.Text[len(c.Text)-10:])
	}
}

func TestSplit_CharacterModeCoversWholeInput(t *testing.T) {
	text := strings.Repeat("abcdefghi ", 30)

	chunks := Split(text, Options{ChunkSize: 100, Overlap: 20, MinChunkLen: 10, Strategy: StrategyCharacter})

	// Every chunk is a verbatim slice of the source, in order
	pos := 0
	for i, c := range chunks {
		idx := strings.Index(text[pos:], c.Text)
		require.GreaterOrEqual(t, idx, 0, "chunk %d not found after position %d", i, pos)
		pos += idx + 1
	}
	// And the final chunk reaches the end of the source
	last := chunks[len(chunks)-1].Text
	assert.True(t, strings.HasSuffix(strings.TrimRight(text, " "), strings.TrimRight(last, " ")))
}

func TestSplit_CharacterModeProgressGuard(t *testing.T) {
	// A lone space early in the window pulls the cut far back; the overlap
	// would then move start backward without the guard.
	text := strings.Repeat("x", 50) + " " + strings.Repeat("y", 300)

	chunks := Split(text, Options{ChunkSize: 120, Overlap: 100, MinChunkLen: 10, Strategy: StrategyCharacter})

	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1].Text, "y"))

	total := 0
	for _, c := range chunks {
		total += len(c.Text)
	}
	assert.GreaterOrEqual(t, total, len(text)-1, "all input must be covered")
}

func TestSplit_OversizedSentencePreSplit(t *testing.T) {
	// One giant "sentence" with no boundaries, forced through sentence mode
	text := strings.Repeat("z", 350)

	chunks := Split(text, Options{ChunkSize: 100, Overlap: 20, MinChunkLen: 10, Strategy: StrategySentence})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 100)
	}
}

func TestSplit_MinChunkLenHoldsForNonFinalChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(makeSentence(i % 20))
		b.WriteString(" ")
	}

	opts := Options{ChunkSize: 200, Overlap: 40, MinChunkLen: 80, Strategy: StrategySentence}
	chunks := Split(b.String(), opts)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(c.Text), opts.MinChunkLen)
	}
}

func TestSplit_RuneBudgetForMultibyteText(t *testing.T) {
	// Multi-byte runes must be budgeted per character, not per byte
	text := strings.Repeat("á", 250)

	chunks := Split(text, Options{ChunkSize: 100, Overlap: 20, MinChunkLen: 10, Strategy: StrategyCharacter})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 100)
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()
	assert.Equal(t, DefaultChunkSize, opts.ChunkSize)
	assert.Equal(t, DefaultOverlap, opts.Overlap)
	assert.Equal(t, DefaultMinChunkLen, opts.MinChunkLen)
	assert.Equal(t, StrategyAuto, opts.Strategy)

	// Overlap is clamped below the chunk size
	clamped := Options{ChunkSize: 50, Overlap: 80}.WithDefaults()
	assert.Less(t, clamped.Overlap, clamped.ChunkSize)
}
