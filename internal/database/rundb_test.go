package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/crawlchunk/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func sampleRun(id string, startedAt time.Time) *model.CrawlRun {
	run := model.NewCrawlRun([]string{"https://example.com/"})
	run.ID = id
	run.StartedAt = startedAt
	run.FinishedAt = startedAt.Add(3 * time.Second)
	run.PagesFetched = 2
	run.Documents = []model.Document{
		{URL: "https://example.com/", Domain: "example.com", Title: "Home", Content: "home content", Length: 12},
		{URL: "https://example.com/a", Domain: "example.com", Title: "", Content: "a content", Length: 9},
	}
	run.Chunks = []model.ChunkRecord{
		{URL: "https://example.com/", Domain: "example.com", Title: "Home", ChunkID: 0, Text: "home", Length: 4},
		{URL: "https://example.com/", Domain: "example.com", Title: "Home", ChunkID: 1, Text: "content", Length: 7},
		{URL: "https://example.com/a", Domain: "example.com", Title: "", ChunkID: 0, Text: "a content", Length: 9},
	}
	run.Failures = []model.FetchFailure{{URL: "https://example.com/missing", Error: "status 404"}}
	run.PerformedSteps = []string{"crawl", "chunk"}
	return run
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestRunDBSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	want := sampleRun("0b7e4e1c-aaaa-4f00-9c1d-000000000001", started)
	want.TimedOut = true
	want.Error = "partial"

	if err := db.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := db.GetRun(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	if got.ID != want.ID || !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("unexpected run metadata: %+v", got)
	}
	if got.PagesFetched != 2 || !got.TimedOut || got.Error != "partial" {
		t.Errorf("unexpected counters: %+v", got)
	}
	if len(got.Seeds) != 1 || got.Seeds[0] != "https://example.com/" {
		t.Errorf("unexpected seeds %v", got.Seeds)
	}
	if len(got.Failures) != 1 || got.Failures[0] != want.Failures[0] {
		t.Errorf("unexpected failures %v", got.Failures)
	}
	if len(got.PerformedSteps) != 2 {
		t.Errorf("unexpected steps %v", got.PerformedSteps)
	}

	if len(got.Documents) != len(want.Documents) {
		t.Fatalf("expected %d documents, got %d", len(want.Documents), len(got.Documents))
	}
	for i := range want.Documents {
		if got.Documents[i] != want.Documents[i] {
			t.Errorf("document %d: expected %+v, got %+v", i, want.Documents[i], got.Documents[i])
		}
	}

	if len(got.Chunks) != len(want.Chunks) {
		t.Fatalf("expected %d chunks, got %d", len(want.Chunks), len(got.Chunks))
	}
	for i := range want.Chunks {
		if got.Chunks[i] != want.Chunks[i] {
			t.Errorf("chunk %d: expected %+v, got %+v", i, want.Chunks[i], got.Chunks[i])
		}
	}
}

func TestRunDBSaveRunReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Now())
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run.Chunks = run.Chunks[:1]
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	chunks, err := db.Chunks(ctx, run.ID)
	if err != nil {
		t.Fatalf("Chunks failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk after replace, got %d", len(chunks))
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Chunks != 1 {
		t.Errorf("unexpected runs %+v", runs)
	}
}

func TestRunDBSaveEmptyRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	run := model.NewCrawlRun(nil)
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(got.Documents) != 0 || len(got.Chunks) != 0 || len(got.Seeds) != 0 {
		t.Errorf("expected empty run, got %+v", got)
	}
	if !got.FinishedAt.IsZero() {
		t.Errorf("expected zero FinishedAt, got %v", got.FinishedAt)
	}
}

func TestRunDBListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := db.SaveRun(ctx, sampleRun(id, base.Add(offsets[i]))); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}

	expected := []string{"newest", "middle", "old"}
	if len(runs) != len(expected) {
		t.Fatalf("expected %d runs, got %d", len(expected), len(runs))
	}
	for i, id := range expected {
		if runs[i].ID != id {
			t.Errorf("run %d: expected %q, got %q", i, id, runs[i].ID)
		}
	}
	if runs[0].Documents != 2 || runs[0].Chunks != 3 || len(runs[0].Failures) != 1 {
		t.Errorf("unexpected counters %+v", runs[0])
	}
	if runs[0].Duration() != 3*time.Second {
		t.Errorf("expected duration 3s, got %v", runs[0].Duration())
	}
}

func TestRunDBResolveRunID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"abc123", "abd456", "abc"} {
		if err := db.SaveRun(ctx, sampleRun(id, time.Now())); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr error
	}{
		{name: "exact match wins over prefix", id: "abc", want: "abc"},
		{name: "unique prefix", id: "abd", want: "abd456"},
		{name: "longer unique prefix", id: "abc1", want: "abc123"},
		{name: "ambiguous prefix", id: "ab", wantErr: ErrAmbiguousRunID},
		{name: "no match", id: "zzz", wantErr: ErrRunNotFound},
		{name: "empty", id: "", wantErr: ErrRunNotFound},
		{name: "wildcard is literal", id: "a%", wantErr: ErrRunNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := db.ResolveRunID(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunDBDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	keep := sampleRun("keep-run", time.Now())
	drop := sampleRun("drop-run", time.Now())
	for _, run := range []*model.CrawlRun{keep, drop} {
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	if err := db.DeleteRun(ctx, "drop"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := db.GetRun(ctx, "drop-run"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
	docs, err := db.Documents(ctx, "keep-run")
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected kept run to keep its documents, got %d", len(docs))
	}

	if err := db.DeleteRun(ctx, "drop-run"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}
