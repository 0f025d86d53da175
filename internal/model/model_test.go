package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// TestNewDocument tests Document construction.
func TestNewDocument(t *testing.T) {
	t.Parallel()

	t.Run("derives domain and length", func(t *testing.T) {
		t.Parallel()

		doc := NewDocument("https://Example.COM:8080/a/b?q=1", "Title", "hello world")
		if doc.Domain != "example.com:8080" {
			t.Errorf("expected domain example.com:8080, got %q", doc.Domain)
		}
		if doc.Length != len("hello world") {
			t.Errorf("expected length %d, got %d", len("hello world"), doc.Length)
		}
		if doc.Title != "Title" {
			t.Errorf("expected title 'Title', got %q", doc.Title)
		}
	})

	t.Run("unparsable URL yields empty domain", func(t *testing.T) {
		t.Parallel()

		if got := DomainOf("://bad"); got != "" {
			t.Errorf("expected empty domain, got %q", got)
		}
	})
}

// TestChunkRecordJSON tests the on-disk field names of ChunkRecord.
func TestChunkRecordJSON(t *testing.T) {
	t.Parallel()

	rec := ChunkRecord{URL: "u", Domain: "d", Title: "t", ChunkID: 3, Text: "x", Length: 1}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, key := range []string{`"url"`, `"domain"`, `"title"`, `"chunk_id":3`, `"text"`, `"length":1`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

// TestFetchTask tests FetchTask construction and metadata.
func TestFetchTask(t *testing.T) {
	t.Parallel()

	t.Run("seed task has no referrer", func(t *testing.T) {
		t.Parallel()

		task := NewFetchTask("https://example.com/", 0, "")
		if task.Referrer() != "" {
			t.Errorf("expected empty referrer, got %q", task.Referrer())
		}
		if task.Depth != 0 {
			t.Errorf("expected depth 0, got %d", task.Depth)
		}
	})

	t.Run("discovered task records referrer", func(t *testing.T) {
		t.Parallel()

		task := NewFetchTask("https://example.com/b", 2, "https://example.com/a")
		if task.Referrer() != "https://example.com/a" {
			t.Errorf("unexpected referrer %q", task.Referrer())
		}
	})

	t.Run("nil metadata is safe", func(t *testing.T) {
		t.Parallel()

		var task FetchTask
		if task.Referrer() != "" {
			t.Error("expected empty referrer for zero task")
		}
	})
}

// TestCrawlRunSummary tests summary aggregation.
func TestCrawlRunSummary(t *testing.T) {
	t.Parallel()

	run := NewCrawlRun([]string{"https://a.example/"})
	if run.ID == "" {
		t.Fatal("expected run ID to be set")
	}
	if run.Duration() != 0 {
		t.Errorf("expected zero duration before finish, got %v", run.Duration())
	}

	run.Documents = append(run.Documents,
		Document{URL: "https://a.example/1", Domain: "a.example", Length: 300},
		Document{URL: "https://a.example/2", Domain: "a.example", Length: 500},
		Document{URL: "https://b.example/1", Domain: "b.example", Length: 250},
	)
	run.Chunks = append(run.Chunks,
		ChunkRecord{Domain: "a.example", Length: 300},
		ChunkRecord{Domain: "a.example", Length: 500},
		ChunkRecord{Domain: "b.example", Length: 250},
	)
	run.Failures = append(run.Failures, FetchFailure{URL: "https://c.example/", Error: "boom"})
	run.FinishedAt = run.StartedAt.Add(2 * time.Second)

	s := run.Summary()

	if s.Documents != 3 || s.Chunks != 3 || s.Failures != 1 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.CharsExtracted != 1050 {
		t.Errorf("expected 1050 chars, got %d", s.CharsExtracted)
	}
	if s.AvgChunkLength != 350 {
		t.Errorf("expected avg 350, got %d", s.AvgChunkLength)
	}
	if s.MaxChunkLength != 500 {
		t.Errorf("expected max 500, got %d", s.MaxChunkLength)
	}
	if s.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", s.Duration)
	}
	if len(s.Domains) != 2 || s.Domains[0].Domain != "a.example" || s.Domains[0].Documents != 2 {
		t.Errorf("unexpected domains: %+v", s.Domains)
	}
}
