package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/crawlchunk/internal/chunker"
	"github.com/nao1215/crawlchunk/internal/config"
	"github.com/nao1215/crawlchunk/internal/crawler"
	"github.com/nao1215/crawlchunk/internal/database"
	"github.com/nao1215/crawlchunk/internal/ioformats"
	"github.com/nao1215/crawlchunk/internal/model"
	"github.com/nao1215/crawlchunk/internal/pipeline"
	"github.com/nao1215/crawlchunk/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl web sites and extract their main content",
		Long: `Crawl fetches the seed URLs, follows their links up to the configured
depth, extracts the main content of every HTML page and writes the
documents as a JSON array.

With --chunks, the documents are also split into overlapping chunks.
A report is printed when the crawl finishes and the run is saved to the
local database (disable with --no-db).

Examples:
  # Crawl a site two links deep
  crawlchunk crawl https://example.com/

  # Crawl seeds from a file and write chunks as well
  crawlchunk crawl --list urls.csv --chunks chunks.json

  # Stay on the seed's host, fetch at most 100 pages
  crawlchunk crawl --same-host -p 100 https://example.com/docs/

  # Print a Markdown report to a file
  crawlchunk crawl --report markdown --report-file report.md https://example.com/

Configuration file (.crawlchunk) example:
  defaults:
    depth: 3
  sites:
    docs.example.com:
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Seed flags
	cmd.Flags().StringP("list", "l", "",
		"File of seed URLs (CSV with a url column, NDJSON, or one URL per line)")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from a seed")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch (0 for no limit)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent fetches")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("crawl-timeout", 0,
		"Stop crawling after this duration and keep what was collected (0 for no limit)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with requests")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Bool("same-host", false,
		"Only follow links to the host of the page they were found on")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Int("min-content-length", config.DefaultMinContentLength,
		"Minimum extracted content length for a page to become a document")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"File to write the documents to")
	cmd.Flags().String("chunks", "",
		"File to write chunk records to (chunking is skipped when empty)")
	addChunkFlags(cmd)

	// Report flags
	cmd.Flags().String("report", config.DefaultReportFormat,
		"Report format: text, json or markdown")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")

	// Configuration and storage
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawlchunk in current or home directory)")
	cmd.Flags().Bool("no-db", false,
		"Do not save the run to the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run database")

	return cmd
}

// addChunkFlags registers the chunking flags shared by crawl and chunk.
func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize,
		"Maximum number of characters per chunk")
	cmd.Flags().Int("overlap", config.DefaultOverlap,
		"Number of characters repeated between consecutive chunks")
	cmd.Flags().Int("min-chunk-size", config.DefaultMinChunkSize,
		"Sentences shorter than this are dropped")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.ListFile, err = flags.GetString("list"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlTimeout, err = flags.GetDuration("crawl-timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.SameHost, err = flags.GetBool("same-host"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.MinContentLength, err = flags.GetInt("min-content-length"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ChunksFile, err = flags.GetString("chunks"); err != nil {
		return nil, err
	}
	if err := readChunkFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if cfg.ReportFormat, err = flags.GetString("report"); err != nil {
		return nil, err
	}
	if _, err := report.ParseFormat(cfg.ReportFormat); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Seeds = append(cfg.Seeds, args...)
	if cfg.ListFile != "" {
		urls, err := ioformats.ReadURLs(cfg.ListFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read URL list: %w", err)
		}
		cfg.Seeds = append(cfg.Seeds, urls...)
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	return cfg, nil
}

// readChunkFlags copies the chunking flags into cfg.
func readChunkFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.ChunkSize, err = cmd.Flags().GetInt("chunk-size"); err != nil {
		return err
	}
	if cfg.Overlap, err = cmd.Flags().GetInt("overlap"); err != nil {
		return err
	}
	if cfg.MinChunkSize, err = cmd.Flags().GetInt("min-chunk-size"); err != nil {
		return err
	}
	return nil
}

// loadConfigFile loads the configuration file into cfg.
// If the user explicitly specified a config file path, a missing file is
// an error. Otherwise the default locations are searched and a missing file
// leaves the flag values alone.
func loadConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		return nil
	}

	cfg.ApplyFile(cmd.Flags().Changed)
	return nil
}

// runCrawl executes the crawl pipeline and prints the report.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"depth", cfg.MaxDepth,
		"maxPages", cfg.MaxPages,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	p, err := createCrawlPipeline(cfg, db, logger)
	if err != nil {
		return err
	}

	run := model.NewCrawlRun(cfg.Seeds)
	fmt.Fprintf(out, "Crawling %d seed URL(s)...\n", len(cfg.Seeds))
	startTime := time.Now()

	execErr := p.Execute(ctx, run)

	fmt.Fprintf(out, "Crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	if execErr == nil {
		fmt.Fprintf(out, "Wrote %d documents to %s\n", len(run.Documents), cfg.OutputFile)
		if cfg.ChunksFile != "" {
			fmt.Fprintf(out, "Created %d chunks in %s\n", len(run.Chunks), cfg.ChunksFile)
		}
		if db != nil {
			fmt.Fprintf(out, "Saved run %s\n", run.ID)
		}
	}
	fmt.Fprintln(out)

	if err := outputReport(cfg, run, out); err != nil {
		logger.Error("report failed", "run", run.ID, "error", err)
	}

	if execErr != nil {
		return fmt.Errorf("crawl failed: %w", execErr)
	}
	return nil
}

// createCrawlPipeline assembles the crawl, chunk, write and store steps.
func createCrawlPipeline(cfg *config.Config, db *database.RunDB, logger *slog.Logger) (*pipeline.Pipeline, error) {
	client, err := crawler.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	rules := cfg.Rules()
	fetcher := crawler.NewHTTPFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithFetcherRules(rules),
	)
	spider := crawler.NewSpider(fetcher,
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithScorer(cfg.Scorer()),
		crawler.WithRules(rules),
		crawler.WithMinContentLength(cfg.MinContentLength),
		crawler.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewCrawlStep(spider,
		pipeline.WithCrawlTimeout(cfg.CrawlTimeout),
		pipeline.WithCrawlLogger(logger),
	))
	if cfg.ChunksFile != "" {
		p.AddStep(newChunkStep(cfg, logger))
	}
	p.AddStep(pipeline.NewWriteStep(
		pipeline.WithDocumentsPath(cfg.OutputFile),
		pipeline.WithChunksPath(cfg.ChunksFile),
		pipeline.WithWriteLogger(logger),
	))
	if db != nil {
		p.AddStep(pipeline.NewStoreStep(db, pipeline.WithStoreLogger(logger)))
	}

	return p, nil
}

// newChunkStep creates the chunk step for cfg.
func newChunkStep(cfg *config.Config, logger *slog.Logger) *pipeline.ChunkStep {
	batch := pipeline.NewBatchChunker(
		chunker.New(cfg.ChunkerOptions()...),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)
	return pipeline.NewChunkStep(batch, pipeline.WithChunkLogger(logger))
}

// outputReport writes the run report in the configured format.
func outputReport(cfg *config.Config, run *model.CrawlRun, stdout io.Writer) error {
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}

	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list the crawled URLs, so only the owner may read them.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	if format == report.FormatText {
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	} else {
		writer, err = report.NewWriter(format, output)
		if err != nil {
			return err
		}
	}

	_, err = writer.Write(run)
	return err
}
