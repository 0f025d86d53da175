package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/crawlchunk/internal/chunker"
	"github.com/nao1215/crawlchunk/internal/crawler"
	"github.com/nao1215/crawlchunk/internal/extract"
	"github.com/nao1215/crawlchunk/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "crawlchunk"

	// DefaultMaxDepth is the number of link hops followed from a seed.
	DefaultMaxDepth = crawler.DefaultMaxDepth

	// DefaultMaxPages caps the number of fetches of one crawl.
	// 0 disables the cap.
	DefaultMaxPages = crawler.DefaultMaxPages

	// DefaultConcurrency is the number of fetches in flight, and the number
	// of documents chunked at once.
	DefaultConcurrency = crawler.DefaultConcurrency

	// DefaultTimeout bounds each HTTP request, connection and body included.
	DefaultTimeout = 60 * time.Second

	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = chunker.DefaultChunkSize

	// DefaultOverlap is the number of characters repeated between
	// consecutive chunks.
	DefaultOverlap = chunker.DefaultOverlap

	// DefaultMinChunkSize is the length below which a sentence is dropped.
	DefaultMinChunkSize = chunker.DefaultMinChunkSize

	// DefaultMinContentLength is the cleaned content length a page must
	// exceed to become a document.
	DefaultMinContentLength = model.MinDocumentLength

	// DefaultLengthWeight is the score per character of a candidate block.
	DefaultLengthWeight = 1.0

	// DefaultParagraphBonus is the score per <p> inside a candidate block.
	DefaultParagraphBonus = 200.0

	// DefaultLinkPenalty is the score subtracted per <a> inside a candidate block.
	DefaultLinkPenalty = 100.0

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = crawler.DefaultMaxBodySize

	// DefaultUserAgent identifies crawlchunk in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultOutputFile is where crawled documents are written, and where
	// offline chunking reads them from.
	DefaultOutputFile = "output.json"

	// DefaultChunksFile is where offline chunking writes chunk records.
	DefaultChunksFile = "chunks.json"

	// DefaultReportFormat is the report printed after a crawl.
	DefaultReportFormat = "text"
)

// Config holds all configuration options for crawlchunk.
// It is populated from CLI flags, optionally completed by the YAML file,
// and passed through the application rather than kept in global state.
type Config struct {
	// Seeds are the start URLs of a crawl. A URL without a scheme gets https.
	Seeds []string

	// ListFile is a file of seed URLs (CSV, NDJSON or one URL per line).
	ListFile string

	// MaxDepth is the maximum number of link hops from a seed.
	// Depth 0 fetches only the seeds.
	MaxDepth int

	// MaxPages is the maximum number of fetches of one crawl. 0 means no cap.
	MaxPages int

	// Concurrency is the number of fetches in flight at once.
	Concurrency int

	// Timeout is the timeout of a single HTTP request.
	Timeout time.Duration

	// CrawlTimeout bounds the crawl as a whole. 0 means no limit.
	// When it expires the documents collected so far are still written.
	CrawlTimeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// SameHost keeps the crawl on the host of each page.
	SameHost bool

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MinContentLength is the cleaned content length a page must exceed
	// to become a document, and the declared length below which offline
	// input records are skipped.
	MinContentLength int

	// Weights are the content scoring weights.
	Weights extract.Weights

	// ChunkSize is the maximum number of characters per chunk.
	ChunkSize int

	// Overlap is the number of characters carried over between chunks.
	Overlap int

	// MinChunkSize is the length below which a sentence is dropped.
	MinChunkSize int

	// OutputFile is the documents file. Crawls write it; offline chunking reads it.
	OutputFile string

	// ChunksFile is the chunk records file. Empty skips chunking in a crawl.
	ChunksFile string

	// ReportFormat is the format of the report printed after a crawl.
	ReportFormat string

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// SiteConfigs holds the configuration file, if one was loaded.
	SiteConfigs *File

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/crawlchunk on Linux).
	DBDir string

	// SaveToDB indicates whether runs are saved to the database.
	SaveToDB bool

	// Verbose enables debug logging.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:         DefaultMaxDepth,
		MaxPages:         DefaultMaxPages,
		Concurrency:      DefaultConcurrency,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		MaxBodySize:      DefaultMaxBodySize,
		MinContentLength: DefaultMinContentLength,
		Weights: extract.Weights{
			Length:    DefaultLengthWeight,
			Paragraph: DefaultParagraphBonus,
			Link:      DefaultLinkPenalty,
		},
		ChunkSize:    DefaultChunkSize,
		Overlap:      DefaultOverlap,
		MinChunkSize: DefaultMinChunkSize,
		OutputFile:   DefaultOutputFile,
		ReportFormat: DefaultReportFormat,
		DBDir:        XDGDataDir(),
		SaveToDB:     true,
	}
}

// XDGDataDir returns the XDG data directory for crawlchunk.
// On Linux: ~/.local/share/crawlchunk
// On macOS: ~/Library/Application Support/crawlchunk
// On Windows: %LOCALAPPDATA%\crawlchunk
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawlchunk.
// On Linux: ~/.config/crawlchunk
// On macOS: ~/Library/Application Support/crawlchunk
// On Windows: %APPDATA%\crawlchunk
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration of a crawl.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeeds
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlTimeout < 0 {
		return ErrInvalidCrawlTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.OutputFile == "" {
		return ErrNoOutputFile
	}
	return c.ValidateChunking()
}

// ValidateChunking checks the settings used by offline chunking.
func (c *Config) ValidateChunking() error {
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Overlap < 0 {
		return ErrInvalidOverlap
	}
	if c.MinChunkSize < 0 {
		return ErrInvalidMinChunkSize
	}
	if c.MinContentLength < 0 {
		return ErrInvalidMinContentLength
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

// ChunkerOptions returns the chunker options for c.
func (c *Config) ChunkerOptions() []chunker.Option {
	return []chunker.Option{
		chunker.WithChunkSize(c.ChunkSize),
		chunker.WithOverlap(c.Overlap),
		chunker.WithMinChunkSize(c.MinChunkSize),
	}
}

// Scorer returns a content scorer using the configured weights and
// minimum content length.
func (c *Config) Scorer() *extract.Scorer {
	return extract.NewScorer(
		extract.WithWeights(c.Weights),
		extract.WithMinLength(c.MinContentLength),
	)
}
