package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CrawlRun aggregates everything produced by one invocation of the tool:
// the documents extracted by the crawler and the chunks built from them.
// Pipeline steps fill it in place.
type CrawlRun struct {
	// ID uniquely identifies the run (UUID v4).
	ID string `json:"id"`

	// Seeds are the start URLs of the crawl. Empty for offline chunking.
	Seeds []string `json:"seeds"`

	// StartedAt is when the run was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at"`

	// PagesFetched counts fetch attempts that returned a document tree.
	PagesFetched int `json:"pages_fetched"`

	// Documents are the extracted page documents.
	Documents []Document `json:"documents"`

	// Chunks are the chunk records built from Documents.
	Chunks []ChunkRecord `json:"chunks"`

	// Failures lists pages that could not be fetched.
	Failures []FetchFailure `json:"failures,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is set when the run was cancelled before it completed.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the message of the last step error, if any.
	Error string `json:"error,omitempty"`
}

// FetchFailure records a page that contributed nothing because its fetch failed.
type FetchFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// NewCrawlRun creates an empty run for the given seeds.
func NewCrawlRun(seeds []string) *CrawlRun {
	return &CrawlRun{
		ID:        uuid.NewString(),
		Seeds:     seeds,
		StartedAt: time.Now(),
		Documents: make([]Document, 0),
		Chunks:    make([]ChunkRecord, 0),
	}
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *CrawlRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// DomainCount is the number of documents and chunks for one domain.
type DomainCount struct {
	Domain    string `json:"domain"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// RunSummary is a compact view of a CrawlRun used by reports and the database.
type RunSummary struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	Seeds          []string      `json:"seeds"`
	PagesFetched   int           `json:"pages_fetched"`
	Failures       int           `json:"failures"`
	Documents      int           `json:"documents"`
	Chunks         int           `json:"chunks"`
	CharsExtracted int           `json:"chars_extracted"`
	AvgChunkLength int           `json:"avg_chunk_length"`
	MaxChunkLength int           `json:"max_chunk_length"`
	Domains        []DomainCount `json:"domains"`
	TimedOut       bool          `json:"timed_out,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Summary computes the RunSummary of r. Domains are sorted by document
// count, descending, then by name.
func (r *CrawlRun) Summary() RunSummary {
	s := RunSummary{
		ID:           r.ID,
		StartedAt:    r.StartedAt,
		Duration:     r.Duration(),
		Seeds:        r.Seeds,
		PagesFetched: r.PagesFetched,
		Failures:     len(r.Failures),
		Documents:    len(r.Documents),
		Chunks:       len(r.Chunks),
		TimedOut:     r.TimedOut,
		Error:        r.Error,
	}

	byDomain := make(map[string]*DomainCount)
	get := func(domain string) *DomainCount {
		dc, ok := byDomain[domain]
		if !ok {
			dc = &DomainCount{Domain: domain}
			byDomain[domain] = dc
		}
		return dc
	}

	for _, doc := range r.Documents {
		s.CharsExtracted += doc.Length
		get(doc.Domain).Documents++
	}

	total := 0
	for _, c := range r.Chunks {
		total += c.Length
		if c.Length > s.MaxChunkLength {
			s.MaxChunkLength = c.Length
		}
		get(c.Domain).Chunks++
	}
	if len(r.Chunks) > 0 {
		s.AvgChunkLength = total / len(r.Chunks)
	}

	s.Domains = make([]DomainCount, 0, len(byDomain))
	for _, dc := range byDomain {
		s.Domains = append(s.Domains, *dc)
	}
	sort.Slice(s.Domains, func(i, j int) bool {
		if s.Domains[i].Documents != s.Domains[j].Documents {
			return s.Domains[i].Documents > s.Domains[j].Documents
		}
		return s.Domains[i].Domain < s.Domains[j].Domain
	})

	return s
}
