package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/crawlchunk/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "crawlchunk.db"

// RunDB provides SQLite-based storage for crawl runs, their documents and
// their chunks.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// Otherwise a missing database yields ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the path of the database file.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		seeds TEXT NOT NULL,
		pages_fetched INTEGER NOT NULL DEFAULT 0,
		document_count INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		failures TEXT NOT NULL,
		performed_steps TEXT NOT NULL,
		timed_out INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- position keeps the order in which the crawler produced the documents
	CREATE TABLE IF NOT EXISTS documents (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		length INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_domain ON documents(domain);

	CREATE TABLE IF NOT EXISTS chunks (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		title TEXT NOT NULL,
		chunk_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		length INTEGER NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_url ON chunks(url);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunInfo is the stored metadata of a run, without documents and chunks.
type RunInfo struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Seeds          []string
	PagesFetched   int
	Documents      int
	Chunks         int
	Failures       []model.FetchFailure
	PerformedSteps []string
	TimedOut       bool
	Error          string
}

// Duration returns how long the run took.
func (ri RunInfo) Duration() time.Duration {
	if ri.FinishedAt.IsZero() {
		return 0
	}
	return ri.FinishedAt.Sub(ri.StartedAt)
}

// SaveRun stores run with its documents and chunks in one transaction.
// Saving a run with an ID that is already stored replaces it.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.CrawlRun) (err error) {
	seedsJSON, err := json.Marshal(nonNil(run.Seeds))
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}
	failuresJSON, err := json.Marshal(nonNil(run.Failures))
	if err != nil {
		return fmt.Errorf("failed to serialize failures: %w", err)
	}
	stepsJSON, err := json.Marshal(nonNil(run.PerformedSteps))
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is returned
		}
	}()

	if err = deleteRunRows(ctx, tx, run.ID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, seeds, pages_fetched, document_count,
		chunk_count, failures, performed_steps, timed_out, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		string(seedsJSON),
		run.PagesFetched,
		len(run.Documents),
		len(run.Chunks),
		string(failuresJSON),
		string(stepsJSON),
		run.TimedOut,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err = insertDocuments(ctx, tx, run.ID, run.Documents); err != nil {
		return err
	}
	if err = insertChunks(ctx, tx, run.ID, run.Chunks); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, runID string, docs []model.Document) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO documents (run_id, position, url, domain, title, content, length)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		if _, err := stmt.ExecContext(ctx, runID, i, doc.URL, doc.Domain, doc.Title, doc.Content, doc.Length); err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.URL, err)
		}
	}
	return nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, runID string, chunks []model.ChunkRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO chunks (run_id, position, url, domain, title, chunk_id, text, length)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, runID, i, c.URL, c.Domain, c.Title, c.ChunkID, c.Text, c.Length); err != nil {
			return fmt.Errorf("failed to insert chunk %d of %s: %w", c.ChunkID, c.URL, err)
		}
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteRunRows(ctx context.Context, ex execer, runID string) error {
	for _, table := range []string{"chunks", "documents"} {
		if _, err := ex.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil { //nolint:gosec // table names are constants
			return fmt.Errorf("failed to delete %s of run %s: %w", table, runID, err)
		}
	}
	if _, err := ex.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, seeds, pages_fetched, document_count,
	chunk_count, failures, performed_steps, timed_out, error`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunInfo(row rowScanner) (RunInfo, error) {
	var (
		info                               RunInfo
		startedAt, finishedAt              sql.NullString
		seedsJSON, failuresJSON, stepsJSON string
	)

	err := row.Scan(
		&info.ID,
		&startedAt,
		&finishedAt,
		&seedsJSON,
		&info.PagesFetched,
		&info.Documents,
		&info.Chunks,
		&failuresJSON,
		&stepsJSON,
		&info.TimedOut,
		&info.Error,
	)
	if err != nil {
		return RunInfo{}, err
	}

	info.StartedAt = parseTimestamp(startedAt.String)
	info.FinishedAt = parseTimestamp(finishedAt.String)

	if err := json.Unmarshal([]byte(seedsJSON), &info.Seeds); err != nil {
		return RunInfo{}, fmt.Errorf("failed to parse seeds: %w", err)
	}
	if err := json.Unmarshal([]byte(failuresJSON), &info.Failures); err != nil {
		return RunInfo{}, fmt.Errorf("failed to parse failures: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &info.PerformedSteps); err != nil {
		return RunInfo{}, fmt.Errorf("failed to parse steps: %w", err)
	}

	return info, nil
}

// ListRuns returns the metadata of all stored runs, newest first.
func (rdb *RunDB) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := rdb.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRunInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, info)
	}

	return runs, rows.Err()
}

// ResolveRunID returns the full ID of the run whose ID is id or starts
// with id. It returns ErrRunNotFound when nothing matches and
// ErrAmbiguousRunID when a prefix matches more than one run.
func (rdb *RunDB) ResolveRunID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrRunNotFound
	}

	var exact string
	err := rdb.db.QueryRowContext(ctx, "SELECT id FROM runs WHERE id = ?", id).Scan(&exact)
	if err == nil {
		return exact, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}

	rows, err := rdb.db.QueryContext(ctx,
		"SELECT id FROM runs WHERE substr(id, 1, length(?)) = ? LIMIT 2", id, id)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var match string
		if err := rows.Scan(&match); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// GetRunInfo returns the metadata of the run identified by id or an
// unambiguous prefix of it.
func (rdb *RunDB) GetRunInfo(ctx context.Context, id string) (*RunInfo, error) {
	fullID, err := rdb.ResolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := rdb.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", fullID)
	info, err := scanRunInfo(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", fullID, err)
	}
	return &info, nil
}

// GetRun loads the complete run identified by id or an unambiguous
// prefix of it.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.CrawlRun, error) {
	info, err := rdb.GetRunInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	docs, err := rdb.Documents(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	chunks, err := rdb.Chunks(ctx, info.ID)
	if err != nil {
		return nil, err
	}

	return &model.CrawlRun{
		ID:             info.ID,
		Seeds:          info.Seeds,
		StartedAt:      info.StartedAt,
		FinishedAt:     info.FinishedAt,
		PagesFetched:   info.PagesFetched,
		Documents:      docs,
		Chunks:         chunks,
		Failures:       info.Failures,
		PerformedSteps: info.PerformedSteps,
		TimedOut:       info.TimedOut,
		Error:          info.Error,
	}, nil
}

// Documents returns the documents of a run in crawl order.
func (rdb *RunDB) Documents(ctx context.Context, runID string) ([]model.Document, error) {
	fullID, err := rdb.ResolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := rdb.db.QueryContext(ctx, `
	SELECT url, domain, title, content, length
	FROM documents
	WHERE run_id = ?
	ORDER BY position
	`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.URL, &doc.Domain, &doc.Title, &doc.Content, &doc.Length); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Chunks returns the chunk records of a run in output order.
func (rdb *RunDB) Chunks(ctx context.Context, runID string) ([]model.ChunkRecord, error) {
	fullID, err := rdb.ResolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := rdb.db.QueryContext(ctx, `
	SELECT url, domain, title, chunk_id, text, length
	FROM chunks
	WHERE run_id = ?
	ORDER BY position
	`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]model.ChunkRecord, 0)
	for rows.Next() {
		var c model.ChunkRecord
		if err := rows.Scan(&c.URL, &c.Domain, &c.Title, &c.ChunkID, &c.Text, &c.Length); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// DeleteRun removes a run with its documents and chunks.
func (rdb *RunDB) DeleteRun(ctx context.Context, id string) (err error) {
	fullID, err := rdb.ResolveRunID(ctx, id)
	if err != nil {
		return err
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err = deleteRunRows(ctx, tx, fullID); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error is returned
		return err
	}
	return tx.Commit()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// timestampLayout has a fixed width so stored timestamps sort as strings.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
