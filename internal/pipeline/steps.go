package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/crawlchunk/internal/crawler"
	"github.com/nao1215/crawlchunk/internal/ioformats"
	"github.com/nao1215/crawlchunk/internal/model"
)

// CrawlStep crawls the run's seeds and stores the extracted documents.
type CrawlStep struct {
	// spider performs the crawl.
	spider *crawler.Spider

	// timeout bounds the crawl alone. Zero means no limit.
	timeout time.Duration

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// WithCrawlTimeout bounds the duration of the crawl. When it expires the
// documents found so far are kept, the run is marked as timed out and the
// following steps still run.
func WithCrawlTimeout(d time.Duration) CrawlStepOption {
	return func(s *CrawlStep) {
		s.timeout = d
	}
}

// NewCrawlStep creates a crawl step driven by spider.
func NewCrawlStep(spider *crawler.Spider, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		spider: spider,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step. A crawl cut short by cancellation keeps its
// partial documents and marks the run as timed out.
func (s *CrawlStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if len(run.Seeds) == 0 {
		return ErrNoSeeds
	}

	crawlCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.spider.Crawl(crawlCtx, run.Seeds)
	if result != nil {
		run.Documents = append(run.Documents, result.Documents...)
		run.Failures = append(run.Failures, result.Failures...)
		run.PagesFetched += result.PagesFetched
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			run.TimedOut = true
		}
		s.logger.Warn("crawl completed with error", "error", err)
	}

	stats := s.spider.Stats()
	s.logger.Info("crawl completed",
		"pages_fetched", stats.PagesFetched,
		"urls_seen", stats.URLsSeen,
		"documents", len(run.Documents),
		"failures", len(run.Failures),
	)

	return nil
}

// LoadStep reads documents from a JSON file into the run.
// It is the entry point of offline chunking.
type LoadStep struct {
	path      string
	minLength int
	logger    *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadMinLength sets the declared length below which records are skipped.
func WithLoadMinLength(n int) LoadStepOption {
	return func(s *LoadStep) {
		if n >= 0 {
			s.minLength = n
		}
	}
}

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a step that loads documents from path.
func NewLoadStep(path string, opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{
		path:      path,
		minLength: model.MinDocumentLength,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do executes the load step. Malformed input is fatal.
func (s *LoadStep) Do(_ context.Context, run *model.CrawlRun) error {
	docs, err := ioformats.ReadDocuments(s.path, s.minLength)
	if err != nil {
		return err
	}
	run.Documents = append(run.Documents, docs...)

	s.logger.Info("documents loaded",
		"path", s.path,
		"documents", len(docs),
	)
	return nil
}

// ChunkStep splits the run's documents into chunk records.
type ChunkStep struct {
	batch  *BatchChunker
	logger *slog.Logger
}

// ChunkStepOption configures a ChunkStep.
type ChunkStepOption func(*ChunkStep)

// WithChunkLogger sets a custom logger for the chunk step.
func WithChunkLogger(logger *slog.Logger) ChunkStepOption {
	return func(s *ChunkStep) {
		s.logger = logger
	}
}

// NewChunkStep creates a chunk step. A nil batch gets NewBatchChunker(nil).
func NewChunkStep(batch *BatchChunker, opts ...ChunkStepOption) *ChunkStep {
	if batch == nil {
		batch = NewBatchChunker(nil)
	}
	s := &ChunkStep{
		batch:  batch,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ChunkStep) Name() string {
	return "chunk"
}

// Do executes the chunk step.
func (s *ChunkStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if len(run.Documents) == 0 {
		s.logger.Debug("skipping chunking, no documents")
		return nil
	}

	records, err := s.batch.ChunkAll(ctx, run.Documents)
	if err != nil {
		return fmt.Errorf("failed to chunk documents: %w", err)
	}
	run.Chunks = append(run.Chunks, records...)

	s.logger.Info("chunking completed",
		"documents", len(run.Documents),
		"chunks", len(records),
	)
	return nil
}

// WriteStep writes the run's documents and chunks as JSON files.
// An empty path skips the corresponding file.
type WriteStep struct {
	documentsPath string
	chunksPath    string
	logger        *slog.Logger
}

// WriteStepOption configures a WriteStep.
type WriteStepOption func(*WriteStep)

// WithDocumentsPath sets the file the documents are written to.
func WithDocumentsPath(path string) WriteStepOption {
	return func(s *WriteStep) {
		s.documentsPath = path
	}
}

// WithChunksPath sets the file the chunk records are written to.
func WithChunksPath(path string) WriteStepOption {
	return func(s *WriteStep) {
		s.chunksPath = path
	}
}

// WithWriteLogger sets a custom logger for the write step.
func WithWriteLogger(logger *slog.Logger) WriteStepOption {
	return func(s *WriteStep) {
		s.logger = logger
	}
}

// NewWriteStep creates a write step.
func NewWriteStep(opts ...WriteStepOption) *WriteStep {
	s := &WriteStep{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, run *model.CrawlRun) error {
	if s.documentsPath != "" {
		if err := ioformats.WriteJSON(s.documentsPath, nonNil(run.Documents)); err != nil {
			return err
		}
		s.logger.Info("documents written", "path", s.documentsPath, "documents", len(run.Documents))
	}
	if s.chunksPath != "" {
		if err := ioformats.WriteJSON(s.chunksPath, nonNil(run.Chunks)); err != nil {
			return err
		}
		s.logger.Info("chunks written", "path", s.chunksPath, "chunks", len(run.Chunks))
	}
	return nil
}

// nonNil makes empty results encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.CrawlRun) error
}

// StoreStep saves the run to a RunStore.
type StoreStep struct {
	store  RunStore
	logger *slog.Logger
}

// StoreStepOption configures a StoreStep.
type StoreStepOption func(*StoreStep)

// WithStoreLogger sets a custom logger for the store step.
func WithStoreLogger(logger *slog.Logger) StoreStepOption {
	return func(s *StoreStep) {
		s.logger = logger
	}
}

// NewStoreStep creates a step that saves the run to store.
func NewStoreStep(store RunStore, opts ...StoreStepOption) *StoreStep {
	s := &StoreStep{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do executes the store step.
func (s *StoreStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	s.logger.Debug("run saved", "run", run.ID)
	return nil
}
