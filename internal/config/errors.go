package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateChunking()
// so callers can use errors.Is() to tell them apart.
var (
	// ErrNoSeeds is returned when neither a positional argument nor --list
	// provides a URL to crawl.
	ErrNoSeeds = errors.New("no seed URL specified: provide a URL or use --list")

	// ErrInvalidDepth is returned when the crawl depth is negative.
	// Depth 0 is valid and fetches only the seeds.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	// Use 0 to crawl without a cap.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlTimeout is returned when the crawl timeout is negative.
	// Use 0 for no limit.
	ErrInvalidCrawlTimeout = errors.New("invalid crawl timeout: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoOutputFile is returned when a crawl has nowhere to write documents.
	ErrNoOutputFile = errors.New("no output file specified")

	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("invalid chunk size: must be positive")

	// ErrInvalidOverlap is returned when the chunk overlap is negative.
	ErrInvalidOverlap = errors.New("invalid overlap: must be non-negative")

	// ErrInvalidMinChunkSize is returned when the minimum sentence length is negative.
	ErrInvalidMinChunkSize = errors.New("invalid min chunk size: must be non-negative")

	// ErrInvalidMinContentLength is returned when the minimum content length is negative.
	ErrInvalidMinContentLength = errors.New("invalid min content length: must be non-negative")
)
