// Package chunk splits document text into overlapping retrieval chunks.
//
// The splitter works on prose. It prefers natural boundaries (paragraphs,
// then sentences) and falls back to fixed-width windows when the text has
// no detectable structure. Chunk sizes are counted in characters (runes),
// not bytes, so multi-byte text is budgeted the same as ASCII.
package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// collapseNewlines matches runs of three or more newlines.
var collapseNewlines = regexp.MustCompile(`\n{3,}`)

// Splitter splits normalized text into chunks.
type Splitter struct {
	opts Options
}

// NewSplitter creates a splitter with the given options. Zero option
// values are replaced with defaults.
func NewSplitter(opts Options) *Splitter {
	return &Splitter{opts: opts.WithDefaults()}
}

// Options returns the resolved options the splitter runs with.
func (s *Splitter) Options() Options {
	return s.opts
}

// Split splits text into chunks using the configured strategy.
// Empty or whitespace-only input yields no chunks.
func Split(text string, opts Options) []Chunk {
	return NewSplitter(opts).Split(text)
}

// Split splits text into chunks. Concatenating the chunk texts in index
// order reproduces the source, modulo overlap duplication and whitespace
// normalization.
func (s *Splitter) Split(text string) []Chunk {
	normalized := Normalize(text)
	if strings.TrimSpace(normalized) == "" {
		return nil
	}

	strategy := s.opts.Strategy
	if strategy == StrategyAuto {
		strategy = s.detect(normalized)
	}

	var parts []string
	var sep string
	switch strategy {
	case StrategyParagraph:
		parts = s.splitParagraphs(normalized)
		sep = "\n\n"
	case StrategySentence:
		parts = s.splitSentences(normalized)
		sep = " "
	default:
		parts = s.splitCharacters(normalized)
	}
	parts = s.enforceMinLen(parts, sep)

	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{
			Text:     p,
			Index:    i,
			Length:   utf8.RuneCountInString(p),
			Strategy: strategy,
		})
	}
	return chunks
}

// Normalize converts CRLF line endings to LF and collapses runs of three
// or more newlines to a single blank line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return collapseNewlines.ReplaceAllString(text, "\n\n")
}

// detect picks a concrete strategy for auto mode: paragraph splitting when
// the text has blank-line structure and is long enough to need splitting,
// sentence splitting when boundaries are detectable, character otherwise.
func (s *Splitter) detect(text string) Strategy {
	if strings.Contains(text, "\n\n") && utf8.RuneCountInString(text) > s.opts.ChunkSize {
		return StrategyParagraph
	}
	if hasSentenceBoundary(text) {
		return StrategySentence
	}
	return StrategyCharacter
}

// splitParagraphs accumulates whole paragraphs into chunks. A paragraph
// much larger than the chunk budget is split by sentence instead of being
// emitted whole.
func (s *Splitter) splitParagraphs(text string) []string {
	paragraphs := splitBlocks(text)

	var chunks []string
	var run []string
	flushRun := func() {
		if len(run) > 0 {
			chunks = append(chunks, s.pack(run, "\n\n", s.lastParagraphWithinOverlap)...)
			run = nil
		}
	}

	for _, p := range paragraphs {
		if utf8.RuneCountInString(p) > s.opts.ChunkSize*3/2 {
			flushRun()
			chunks = append(chunks, s.splitSentences(p)...)
			continue
		}
		run = append(run, p)
	}
	flushRun()

	return chunks
}

// splitSentences accumulates whole sentences into chunks. A single
// sentence larger than the chunk budget is pre-split into fixed-width
// pieces so no unit exceeds the budget on its own.
func (s *Splitter) splitSentences(text string) []string {
	sentences := mergeShortFragments(splitIntoSentences(text))

	units := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if utf8.RuneCountInString(sent) > s.opts.ChunkSize {
			units = append(units, s.splitCharacters(sent)...)
			continue
		}
		units = append(units, sent)
	}

	return s.pack(units, " ", s.trailingSentencesWithinOverlap)
}

// splitCharacters cuts fixed-width windows, nudging each cut backward to
// the nearest whitespace within characterBoundaryWindow characters so words
// are not bisected when avoidable.
func (s *Splitter) splitCharacters(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var parts []string
	start := 0
	for start < n {
		end := start + s.opts.ChunkSize
		if end >= n {
			parts = append(parts, string(runes[start:]))
			break
		}

		cut := end
		limit := end - characterBoundaryWindow
		if limit <= start {
			limit = start + 1
		}
		for i := end - 1; i >= limit; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}

		parts = append(parts, string(runes[start:cut]))

		next := cut - s.opts.Overlap
		if next <= start {
			// The nudged window was smaller than the overlap; skip the
			// overlap rather than stall.
			next = cut
		}
		start = next
	}
	return parts
}

// pack greedily fills chunks with whole units, seeding each new chunk with
// an overlap suffix of the one just closed. A chunk is only closed once it
// has reached MinChunkLen, so no undersized chunk is emitted except the
// final one.
func (s *Splitter) pack(units []string, sep string, seed func([]string) []string) []string {
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var buf []string
	bufLen := 0

	add := func(u string) {
		if len(buf) > 0 {
			bufLen += sepLen
		}
		buf = append(buf, u)
		bufLen += utf8.RuneCountInString(u)
	}

	for _, u := range units {
		uLen := utf8.RuneCountInString(u)
		if len(buf) > 0 && bufLen+sepLen+uLen > s.opts.ChunkSize && bufLen >= s.opts.MinChunkLen {
			chunks = append(chunks, strings.Join(buf, sep))
			carried := seed(buf)
			buf = nil
			bufLen = 0
			for _, c := range carried {
				add(c)
			}
		}
		add(u)
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, sep))
	}
	return chunks
}

// trailingSentencesWithinOverlap returns the longest suffix of closed whose
// joined length fits within the overlap budget. Overlap is rebuilt from
// whole sentences; a sentence is never cut mid-way to fill the budget.
func (s *Splitter) trailingSentencesWithinOverlap(closed []string) []string {
	total := 0
	i := len(closed)
	for i > 0 {
		add := utf8.RuneCountInString(closed[i-1])
		if i < len(closed) {
			add++ // joining space
		}
		if total+add > s.opts.Overlap {
			break
		}
		total += add
		i--
	}
	return closed[i:]
}

// lastParagraphWithinOverlap returns the closed chunk's final paragraph if
// it fits within the overlap budget, otherwise nothing.
func (s *Splitter) lastParagraphWithinOverlap(closed []string) []string {
	last := closed[len(closed)-1]
	if utf8.RuneCountInString(last) <= s.opts.Overlap {
		return closed[len(closed)-1:]
	}
	return nil
}

// enforceMinLen folds any non-final part shorter than MinChunkLen into its
// successor, so only the final chunk may run short. Packing already avoids
// undersized chunks within a run; this catches the seams between runs, such
// as a small paragraph flushed ahead of an oversized one.
func (s *Splitter) enforceMinLen(parts []string, sep string) []string {
	if len(parts) <= 1 {
		return parts
	}

	out := make([]string, 0, len(parts))
	carry := ""
	for i, p := range parts {
		if carry != "" {
			p = carry + sep + p
			carry = ""
		}
		if i < len(parts)-1 && utf8.RuneCountInString(p) < s.opts.MinChunkLen {
			carry = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitBlocks splits text at blank lines into trimmed, non-empty blocks.
func splitBlocks(text string) []string {
	raw := strings.Split(text, "\n\n")
	blocks := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// splitIntoSentences splits text at sentence boundaries: a terminator
// (. ! ? …) followed by whitespace followed by an uppercase letter. The
// boundary whitespace is consumed. Text with no boundaries comes back as
// a single sentence.
func splitIntoSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !isBoundaryUpper(runes[j]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = j
		i = j - 1
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// hasSentenceBoundary reports whether the text contains at least one
// sentence boundary as defined by splitIntoSentences.
func hasSentenceBoundary(text string) bool {
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j > i+1 && j < len(runes) && isBoundaryUpper(runes[j]) {
			return true
		}
	}
	return false
}

// mergeShortFragments folds fragments of minSentenceFragment characters or
// fewer into the preceding sentence (or the following one for a leading
// fragment) so abbreviations and initials do not become chunks.
func mergeShortFragments(sentences []string) []string {
	if len(sentences) <= 1 {
		return sentences
	}

	merged := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if len(merged) > 0 && utf8.RuneCountInString(sent) <= minSentenceFragment {
			merged[len(merged)-1] += " " + sent
			continue
		}
		merged = append(merged, sent)
	}

	// A leading fragment has no predecessor; fold it forward instead.
	if len(merged) > 1 && utf8.RuneCountInString(merged[0]) <= minSentenceFragment {
		merged[1] = merged[0] + " " + merged[1]
		merged = merged[1:]
	}
	return merged
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// isBoundaryUpper matches the uppercase letters that start a new sentence:
// A-Z plus the accented Spanish uppercase vowels and Ñ.
func isBoundaryUpper(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	switch r {
	case 'Á', 'É', 'Í', 'Ó', 'Ú', 'Ñ':
		return true
	}
	return false
}
