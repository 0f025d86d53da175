package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/crawlchunk/internal/config"
	"github.com/nao1215/crawlchunk/internal/model"
	"github.com/nao1215/crawlchunk/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewChunkCmd creates the chunk command.
func NewChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk [input] [output]",
		Short: "Split a document file into overlapping chunks",
		Long: `Chunk reads a JSON array of documents, as written by 'crawlchunk crawl',
and writes a JSON array of chunk records.

Each document record must have url, title, content and length keys.
Records whose length is below --min-length are skipped.

Examples:
  # Read output.json, write chunks.json
  crawlchunk chunk

  # Explicit files and smaller chunks
  crawlchunk chunk pages.json pages-chunks.json --chunk-size 400 --overlap 50`,
		Args: cobra.MaximumNArgs(2),
		RunE: runChunkCmd,
	}

	addChunkFlags(cmd)
	cmd.Flags().Int("min-length", config.DefaultMinContentLength,
		"Skip input records whose declared length is below this value")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of documents chunked concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawlchunk in current or home directory)")

	return cmd
}

// runChunkCmd executes the chunk command.
func runChunkCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildChunkConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateChunking(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runChunk(ctx, cfg, logger, cmd.OutOrStdout())
}

// buildChunkConfig creates a Config for offline chunking.
// The first argument is the document file and the second the chunk file.
func buildChunkConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ChunksFile = config.DefaultChunksFile

	if len(args) > 0 {
		cfg.OutputFile = args[0]
	}
	if len(args) > 1 {
		cfg.ChunksFile = args[1]
	}

	if err := readChunkFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	if cfg.MinContentLength, err = cmd.Flags().GetInt("min-length"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if err := loadConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	return cfg, nil
}

// runChunk loads the documents, chunks them and writes the chunk file.
func runChunk(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoadStep(cfg.OutputFile,
			pipeline.WithLoadMinLength(cfg.MinContentLength),
			pipeline.WithLoadLogger(logger),
		),
		newChunkStep(cfg, logger),
		pipeline.NewWriteStep(
			pipeline.WithChunksPath(cfg.ChunksFile),
			pipeline.WithWriteLogger(logger),
		),
	)

	run := model.NewCrawlRun(nil)
	if err := p.Execute(ctx, run); err != nil {
		return fmt.Errorf("failed to chunk %s: %w", cfg.OutputFile, err)
	}

	fmt.Fprintf(out, "Created %d chunks\n", len(run.Chunks))
	return nil
}
