package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlchunk/internal/extract"
	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/model"
)

const (
	// DefaultMaxDepth is the number of link hops followed from a seed.
	DefaultMaxDepth = 2

	// DefaultMaxPages is the number of fetches a crawl may start.
	DefaultMaxPages = 10

	// DefaultConcurrency is the number of fetches in flight at once.
	DefaultConcurrency = 8
)

// Spider crawls pages breadth-first from a set of seed URLs.
// It owns the visited set of the crawl; call Reset before reusing it.
type Spider struct {
	fetcher   Fetcher
	visited   *VisitedSet
	processor *Processor
	scorer    *extract.Scorer
	rules     RulesFunc
	logger    *slog.Logger

	// maxDepth limits link hops from a seed. 0 means only the seeds.
	maxDepth int

	// maxPages limits the number of fetches started. 0 means no limit.
	maxPages int

	// concurrency limits the fetches in flight.
	concurrency int

	// minContentLength is the length a page's content must exceed to be kept.
	minContentLength int

	mu        sync.Mutex
	pageCount int
}

// Result is the output of a crawl.
type Result struct {
	// Documents are the pages with enough main content, in completion order.
	Documents []model.Document

	// Failures are the pages whose fetch failed.
	Failures []model.FetchFailure

	// PagesFetched counts fetches that returned a tree.
	PagesFetched int

	// Dispatched counts fetches started.
	Dispatched int
}

// Option configures a Spider.
type Option func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seeds, 1 = seeds plus the pages they link to, etc.
func WithMaxDepth(depth int) Option {
	return func(s *Spider) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxPages sets the maximum number of fetches. 0 disables the limit.
func WithMaxPages(maxPages int) Option {
	return func(s *Spider) {
		if maxPages >= 0 {
			s.maxPages = maxPages
		}
	}
}

// WithConcurrency sets the number of concurrent fetches.
func WithConcurrency(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScorer sets the main-content scorer.
func WithScorer(scorer *extract.Scorer) Option {
	return func(s *Spider) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithRules sets per-host rules for link following and depth.
func WithRules(fn RulesFunc) Option {
	return func(s *Spider) {
		if fn != nil {
			s.rules = fn
		}
	}
}

// WithMinContentLength sets the content length a page must exceed to
// produce a Document.
func WithMinContentLength(n int) Option {
	return func(s *Spider) {
		if n >= 0 {
			s.minContentLength = n
		}
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches pages with fetcher.
func NewSpider(fetcher Fetcher, opts ...Option) *Spider {
	s := &Spider{
		fetcher:          fetcher,
		visited:          NewVisitedSet(),
		scorer:           extract.NewScorer(),
		rules:            noRules,
		maxDepth:         DefaultMaxDepth,
		maxPages:         DefaultMaxPages,
		concurrency:      DefaultConcurrency,
		minContentLength: model.MinDocumentLength,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.processor = NewProcessor(s.scorer, NewFrontier(s.visited, WithFrontierRules(s.rules)), s.minContentLength)

	return s
}

// Visited returns the spider's visited set.
func (s *Spider) Visited() *VisitedSet {
	return s.visited
}

// ProcessPage runs the per-page extraction of the spider on tree.
func (s *Spider) ProcessPage(tree *htmldoc.Tree, task model.FetchTask) (*model.Document, []model.FetchTask) {
	return s.processor.ProcessPage(tree, task)
}

type fetchOutcome struct {
	task model.FetchTask
	tree *htmldoc.Tree
	err  error
}

// Crawl fetches the seeds and follows their links until the queue is empty
// or the depth and page limits are reached.
//
// Seeds are claimed in the visited set before the first fetch and
// discovered links when enqueued, so every URL is fetched at most once and
// a seed linked from another seed keeps depth 0. A failed fetch is
// logged and recorded in Result.Failures. When ctx is cancelled no new fetch
// is started, in-flight fetches are drained and the partial result is
// returned together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seeds []string) (*Result, error) {
	result := &Result{
		Documents: make([]model.Document, 0),
		Failures:  make([]model.FetchFailure, 0),
	}

	queue := make([]model.FetchTask, 0, len(seeds))
	for _, seed := range seeds {
		if seed = strings.TrimSpace(seed); seed == "" {
			continue
		}
		task := model.NewFetchTask(seedURL(seed), 0, "")
		if s.visited.MarkIfNotVisited(task.URL) {
			queue = append(queue, task)
		}
	}

	outcomes := make(chan fetchOutcome)
	var g errgroup.Group
	inflight := 0

	for {
		for ctx.Err() == nil && inflight < s.concurrency && len(queue) > 0 && !s.pageLimitReached(result.Dispatched) {
			task := queue[0]
			queue = queue[1:]

			result.Dispatched++
			inflight++
			s.logger.Debug("fetching page", "url", task.URL, "depth", task.Depth)

			g.Go(func() error {
				tree, err := s.fetcher.Fetch(ctx, task.URL)
				outcomes <- fetchOutcome{task: task, tree: tree, err: err}
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		out := <-outcomes
		inflight--
		queue = s.handle(out, result, queue)
	}

	_ = g.Wait() //nolint:errcheck // workers never return an error

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// handle folds one fetch outcome into result and returns the grown queue.
func (s *Spider) handle(out fetchOutcome, result *Result, queue []model.FetchTask) []model.FetchTask {
	if out.err != nil {
		s.logger.Warn("fetch failed",
			"url", out.task.URL,
			"depth", out.task.Depth,
			"error", out.err,
		)
		result.Failures = append(result.Failures, model.FetchFailure{
			URL:   out.task.URL,
			Error: out.err.Error(),
		})
		return queue
	}
	if out.tree == nil {
		result.Failures = append(result.Failures, model.FetchFailure{
			URL:   out.task.URL,
			Error: "fetcher returned no document",
		})
		return queue
	}

	result.PagesFetched++
	s.mu.Lock()
	s.pageCount++
	s.mu.Unlock()

	// A redirect to a page that was already claimed is a duplicate.
	if final := out.tree.URL(); final != "" && NormalizeURL(final) != NormalizeURL(out.task.URL) {
		if !s.visited.MarkIfNotVisited(final) {
			s.logger.Debug("redirect to visited page dropped", "url", out.task.URL, "final_url", final)
			return queue
		}
	}

	doc, tasks := s.processor.ProcessPage(out.tree, out.task)
	if doc != nil {
		result.Documents = append(result.Documents, *doc)
	}

	for _, task := range tasks {
		if task.Depth > s.depthLimit(task.URL) {
			continue
		}
		if s.visited.MarkIfNotVisited(task.URL) {
			queue = append(queue, task)
		}
	}
	return queue
}

func (s *Spider) pageLimitReached(dispatched int) bool {
	return s.maxPages > 0 && dispatched >= s.maxPages
}

// depthLimit returns the depth limit that applies to rawURL's host.
func (s *Spider) depthLimit(rawURL string) int {
	if d := s.rules(model.DomainOf(rawURL)).MaxDepth; d > 0 {
		return d
	}
	return s.maxDepth
}

// seedURL adds a scheme to bare host seeds such as "example.com/docs".
func seedURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// Reset clears the visited set and counters so the spider can run again.
func (s *Spider) Reset() {
	s.visited.Reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageCount = 0
}

// Stats returns crawl statistics accumulated since the last Reset.
func (s *Spider) Stats() SpiderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SpiderStats{
		PagesFetched: s.pageCount,
		URLsSeen:     s.visited.Len(),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesFetched is the number of pages fetched successfully.
	PagesFetched int

	// URLsSeen is the number of unique URLs claimed.
	URLsSeen int
}
