package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/crawlchunk/internal/config"
	"github.com/nao1215/crawlchunk/internal/database"
	"github.com/nao1215/crawlchunk/internal/ioformats"
	"github.com/nao1215/crawlchunk/internal/report"
	"github.com/spf13/cobra"
)

// runListEntry is one run in the JSON listing.
type runListEntry struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Seeds        []string      `json:"seeds"`
	PagesFetched int           `json:"pages_fetched"`
	Documents    int           `json:"documents"`
	Chunks       int           `json:"chunks"`
	Failures     int           `json:"failures"`
	TimedOut     bool          `json:"timed_out"`
	Error        string        `json:"error,omitempty"`
}

// NewRunsCmd creates the runs command.
// It lists and exports the crawl runs stored in the database.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored crawl runs or show one of them",
		Long: `Runs shows the crawl runs saved in the local database.

Without arguments all runs are listed, newest first. With a run ID (or a
unique prefix of one) the report of that run is printed, and its chunks
or documents can be exported again.

Examples:
  # List all runs
  crawlchunk runs

  # Show the report of a run
  crawlchunk runs 3f2c1a9e

  # Export the chunks of a run
  crawlchunk runs 3f2c1a9e --export chunks.json

  # Export the documents of a run
  crawlchunk runs 3f2c1a9e --export output.json --documents

  # Delete a run
  crawlchunk runs 3f2c1a9e --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunsCmd,
	}

	cmd.Flags().StringP("export", "e", "",
		"Write the chunks of the run to this file")
	cmd.Flags().Bool("documents", false,
		"Export documents instead of chunks")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().Bool("delete", false,
		"Delete the run from the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run database")

	return cmd
}

// runsOptions holds the flags of the runs command.
type runsOptions struct {
	export    string
	documents bool
	json      bool
	delete    bool
}

// runRunsCmd executes the runs command.
func runRunsCmd(cmd *cobra.Command, args []string) error {
	var opts runsOptions
	var err error

	if opts.export, err = cmd.Flags().GetString("export"); err != nil {
		return err
	}
	if opts.documents, err = cmd.Flags().GetBool("documents"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.delete, err = cmd.Flags().GetBool("delete"); err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	if len(args) == 0 && (opts.export != "" || opts.delete) {
		return errors.New("a run ID is required (run 'crawlchunk runs' to list them)")
	}
	if opts.export != "" && opts.delete {
		return errors.New("--export and --delete cannot be used together")
	}

	setupLogger(cmd)
	out := cmd.OutOrStdout()

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) && len(args) == 0 {
			return listRuns(out, nil, opts.json)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 0 {
		runs, err := db.ListRuns(ctx)
		if err != nil {
			return err
		}
		return listRuns(out, runs, opts.json)
	}

	return handleRun(ctx, db, args[0], opts, out)
}

// listRuns prints the stored runs as a table or as JSON.
func listRuns(out io.Writer, runs []database.RunInfo, asJSON bool) error {
	if asJSON {
		entries := make([]runListEntry, len(runs))
		for i, ri := range runs {
			entries[i] = runListEntry{
				ID:           ri.ID,
				StartedAt:    ri.StartedAt,
				Duration:     ri.Duration(),
				Seeds:        ri.Seeds,
				PagesFetched: ri.PagesFetched,
				Documents:    ri.Documents,
				Chunks:       ri.Chunks,
				Failures:     len(ri.Failures),
				TimedOut:     ri.TimedOut,
				Error:        ri.Error,
			}
		}
		return ioformats.EncodeJSON(out, entries)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'crawlchunk crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Stored runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %5s  %6s  %6s  %s\n", "ID", "Started", "Pages", "Docs", "Chunks", "Seeds")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))

	for _, ri := range runs {
		seeds := strings.Join(ri.Seeds, ", ")
		if len(seeds) > 40 {
			seeds = seeds[:37] + "..."
		}
		marker := ""
		switch {
		case ri.Error != "":
			marker = " (failed)"
		case ri.TimedOut:
			marker = " (timed out)"
		}
		fmt.Fprintf(out, "  %-8s  %-19s  %5d  %6d  %6d  %s%s\n",
			shortID(ri.ID),
			ri.StartedAt.Local().Format("2006-01-02 15:04:05"),
			ri.PagesFetched, ri.Documents, ri.Chunks, seeds, marker)
	}
	fmt.Fprintln(out, "\nUse 'crawlchunk runs <id>' to show a run.")

	return nil
}

// handleRun shows, exports or deletes one run.
func handleRun(ctx context.Context, db *database.RunDB, id string, opts runsOptions, out io.Writer) error {
	if opts.delete {
		runID, err := db.ResolveRunID(ctx, id)
		if err != nil {
			return err
		}
		if err := db.DeleteRun(ctx, runID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", runID)
		return nil
	}

	if opts.export != "" {
		if opts.documents {
			docs, err := db.Documents(ctx, id)
			if err != nil {
				return err
			}
			if err := ioformats.WriteJSON(opts.export, docs); err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d documents to %s\n", len(docs), opts.export)
			return nil
		}

		chunks, err := db.Chunks(ctx, id)
		if err != nil {
			return err
		}
		if err := ioformats.WriteJSON(opts.export, chunks); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d chunks to %s\n", len(chunks), opts.export)
		return nil
	}

	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}

	var writer report.Writer
	if opts.json {
		writer = report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err = writer.Write(run)
	return err
}

// shortID returns the first eight characters of a run ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
