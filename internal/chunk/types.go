package chunk

// Chunk size defaults, tuned for retrieval quality on prose documents
const (
	DefaultChunkSize   = 1000 // Characters per chunk
	DefaultOverlap     = 200  // Characters carried into the next chunk
	DefaultMinChunkLen = 100  // Minimum viable chunk (final chunk exempt)
)

// minSentenceFragment is the length at or below which a split piece is
// treated as a stray fragment (an abbreviation, an initial) and merged
// into its neighbor instead of being emitted as a sentence.
const minSentenceFragment = 10

// characterBoundaryWindow is how far back from a fixed-width cut the
// splitter looks for whitespace to avoid cutting inside a word.
const characterBoundaryWindow = 100

// Strategy selects how text is split into chunks.
type Strategy string

const (
	// StrategyAuto picks paragraph, sentence, or character splitting
	// based on the shape of the text.
	StrategyAuto Strategy = "auto"
	// StrategySentence splits at sentence boundaries.
	StrategySentence Strategy = "sentence"
	// StrategyParagraph splits at blank-line boundaries.
	StrategyParagraph Strategy = "paragraph"
	// StrategyCharacter splits at fixed character offsets.
	StrategyCharacter Strategy = "character"
)

// Options configures the splitter.
type Options struct {
	ChunkSize   int      // Maximum characters per chunk (soft budget)
	Overlap     int      // Characters of context carried between chunks
	MinChunkLen int      // Non-final chunks are at least this long
	Strategy    Strategy // Splitting strategy (default: StrategyAuto)
}

// WithDefaults fills in zero values with defaults.
func (o Options) WithDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	if o.Overlap >= o.ChunkSize {
		o.Overlap = o.ChunkSize / 5
	}
	if o.MinChunkLen <= 0 {
		o.MinChunkLen = DefaultMinChunkLen
	}
	if o.MinChunkLen > o.ChunkSize {
		o.MinChunkLen = o.ChunkSize
	}
	if o.Strategy == "" {
		o.Strategy = StrategyAuto
	}
	return o
}

// Chunk is a retrievable unit of prose.
type Chunk struct {
	Text     string   // Chunk content
	Index    int      // Position within the document, 0-based
	Length   int      // Rune count of Text
	Strategy Strategy // Resolved strategy that produced this chunk
}
