package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/crawlchunk/internal/chunker"
	"github.com/nao1215/crawlchunk/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of documents chunked at once when
// no concurrency is configured.
const DefaultBatchConcurrency = 8

// BatchChunker chunks many documents concurrently.
// Chunking a document is a pure function of its content, so documents are
// independent and only the output order needs care.
type BatchChunker struct {
	// chunker splits a single document.
	chunker *chunker.Chunker

	// concurrency is the maximum number of documents chunked at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchChunker.
type BatchOption func(*BatchChunker)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchChunker) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of documents chunked at once.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchChunker) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchChunker creates a BatchChunker around c.
// A nil chunker gets chunker.New() defaults.
func NewBatchChunker(c *chunker.Chunker, opts ...BatchOption) *BatchChunker {
	if c == nil {
		c = chunker.New()
	}
	b := &BatchChunker{
		chunker:     c,
		concurrency: DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Chunker returns the chunker used for each document.
func (b *BatchChunker) Chunker() *chunker.Chunker {
	return b.chunker
}

// ChunkAll chunks docs and returns the records of all documents, in input
// order, with chunk IDs numbered per document.
// If ctx is cancelled no new document is started and ctx.Err() is returned
// together with nil records.
func (b *BatchChunker) ChunkAll(ctx context.Context, docs []model.Document) ([]model.ChunkRecord, error) {
	b.logger.Debug("starting batch chunking",
		"documents", len(docs),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	// Each goroutine owns one slot, so no locking is needed.
	perDoc := make([][]model.ChunkRecord, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			perDoc[i] = b.chunker.Chunk(doc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, recs := range perDoc {
		total += len(recs)
	}
	records := make([]model.ChunkRecord, 0, total)
	for _, recs := range perDoc {
		records = append(records, recs...)
	}

	b.logger.Debug("batch chunking complete",
		"documents", len(docs),
		"chunks", len(records),
		"elapsed", time.Since(startTime),
	)

	return records, nil
}
