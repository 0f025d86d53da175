package chunker

import (
	"strings"

	"github.com/nao1215/crawlchunk/internal/extract"
	"github.com/nao1215/crawlchunk/internal/model"
)

const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 800

	// DefaultOverlap is the number of characters carried over from the
	// previous chunk.
	DefaultOverlap = 100

	// DefaultMinChunkSize is the minimum length of a text unit.
	DefaultMinChunkSize = 100
)

// Chunker splits text into overlapping chunks.
// A Chunker is immutable after New and safe for concurrent use as long as its
// Splitter is.
type Chunker struct {
	chunkSize    int
	overlap      int
	minChunkSize int
	splitter     Splitter
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the number of characters carried into the next chunk.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the minimum length of a unit kept by the default
// SentenceSplitter.
func WithMinChunkSize(size int) Option {
	return func(c *Chunker) {
		if size >= 0 {
			c.minChunkSize = size
		}
	}
}

// WithSplitter replaces the default SentenceSplitter.
func WithSplitter(s Splitter) Option {
	return func(c *Chunker) {
		if s != nil {
			c.splitter = s
		}
	}
}

// New creates a Chunker. An overlap that is not smaller than the chunk size
// is reduced to a quarter of the chunk size.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:    DefaultChunkSize,
		overlap:      DefaultOverlap,
		minChunkSize: DefaultMinChunkSize,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	if c.splitter == nil {
		c.splitter = SentenceSplitter{MinLength: c.minChunkSize}
	}

	return c
}

// ChunkSize returns the maximum chunk length.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the overlap length.
func (c *Chunker) Overlap() int { return c.overlap }

// MinChunkSize returns the minimum unit length.
func (c *Chunker) MinChunkSize() int { return c.minChunkSize }

// CleanText normalizes text the same way page content is normalized.
func (c *Chunker) CleanText(text string) string {
	return extract.Clean(text)
}

// SplitParagraphs cuts text into units using the configured Splitter.
func (c *Chunker) SplitParagraphs(text string) []string {
	return c.splitter.Split(text)
}

// ChunkText cleans text and splits it into chunks.
//
// Text that fits in one chunk is returned as is, even when empty. Longer text
// is split into units which are packed greedily; when the next unit does not
// fit, the buffer is committed and the next buffer starts with the last
// overlap characters of the committed chunk. A unit that reaches an empty
// buffer is always taken, so oversized units become oversized chunks.
func (c *Chunker) ChunkText(text string) []string {
	text = c.CleanText(text)
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	var (
		chunks []string
		buf    string
	)
	for _, unit := range c.SplitParagraphs(text) {
		switch {
		case buf == "":
			buf = unit
		case len(buf)+1+len(unit) <= c.chunkSize:
			buf += " " + unit
		default:
			committed := strings.TrimSpace(buf)
			chunks = append(chunks, committed)
			buf = joinOverlap(tail(committed, c.overlap), unit)
		}
	}
	if buf = strings.TrimSpace(buf); buf != "" {
		chunks = append(chunks, buf)
	}

	return chunks
}

// ChunkDocument chunks content and wraps every chunk in a ChunkRecord with a
// sequential ChunkID starting at 0. Content that cleans to nothing yields no
// records.
func (c *Chunker) ChunkDocument(url, title, content, domain string) []model.ChunkRecord {
	texts := c.ChunkText(content)

	records := make([]model.ChunkRecord, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		records = append(records, model.ChunkRecord{
			URL:     url,
			Domain:  domain,
			Title:   title,
			ChunkID: len(records),
			Text:    text,
			Length:  len(text),
		})
	}
	return records
}

// Chunk is ChunkDocument for a model.Document.
func (c *Chunker) Chunk(doc model.Document) []model.ChunkRecord {
	return c.ChunkDocument(doc.URL, doc.Title, doc.Content, doc.Domain)
}

func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func joinOverlap(overlap, unit string) string {
	if overlap == "" {
		return unit
	}
	return overlap + " " + unit
}
