package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/crawlchunk/internal/crawler"
	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/ioformats"
	"github.com/nao1215/crawlchunk/internal/model"
)

const articleText = "Go is an open source programming language that makes it simple to build secure, scalable systems. " +
	"It was designed at Google to improve programming productivity in an era of multicore machines. " +
	"The language is statically typed and compiled, with memory safety and garbage collection."

func sitePages() map[string]string {
	return map[string]string{
		"https://example.com/": `<html><head><title>Home</title></head><body>
			<article><p>` + articleText + `</p></article>
			<a href="/about">about</a><a href="/missing">missing</a></body></html>`,
		"https://example.com/about": `<html><head><title>About</title></head><body>
			<article><p>` + articleText + `</p></article></body></html>`,
	}
}

func fakeFetcher(pages map[string]string) crawler.Fetcher {
	return crawler.FetcherFunc(func(ctx context.Context, pageURL string) (*htmldoc.Tree, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, ok := pages[pageURL]
		if !ok {
			return nil, &crawler.FetchError{URL: pageURL, StatusCode: 404, Err: crawler.ErrHTTPStatus}
		}
		return htmldoc.ParseString(body, pageURL)
	})
}

func newTestSpider(fetcher crawler.Fetcher) *crawler.Spider {
	return crawler.NewSpider(fetcher, crawler.WithLogger(discardLogger()))
}

type memoryStore struct {
	saved []*model.CrawlRun
	err   error
}

func (m *memoryStore) SaveRun(_ context.Context, run *model.CrawlRun) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, run)
	return nil
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("fills documents and failures", func(t *testing.T) {
		t.Parallel()

		step := NewCrawlStep(newTestSpider(fakeFetcher(sitePages())), WithCrawlLogger(discardLogger()))
		run := model.NewCrawlRun([]string{"https://example.com/"})

		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if step.Name() != "crawl" {
			t.Errorf("unexpected name %q", step.Name())
		}
		if len(run.Documents) != 2 {
			t.Errorf("expected 2 documents, got %d", len(run.Documents))
		}
		if len(run.Failures) != 1 || run.Failures[0].URL != "https://example.com/missing" {
			t.Errorf("unexpected failures %+v", run.Failures)
		}
		if run.PagesFetched != 2 {
			t.Errorf("expected 2 pages fetched, got %d", run.PagesFetched)
		}
		if run.TimedOut {
			t.Error("did not expect a timeout")
		}
	})

	t.Run("no seeds", func(t *testing.T) {
		t.Parallel()

		step := NewCrawlStep(newTestSpider(fakeFetcher(nil)), WithCrawlLogger(discardLogger()))
		if err := step.Do(context.Background(), model.NewCrawlRun(nil)); !errors.Is(err, ErrNoSeeds) {
			t.Errorf("expected ErrNoSeeds, got %v", err)
		}
	})

	t.Run("timeout keeps partial results", func(t *testing.T) {
		t.Parallel()

		pages := sitePages()
		slow := crawler.FetcherFunc(func(ctx context.Context, pageURL string) (*htmldoc.Tree, error) {
			if pageURL != "https://example.com/" {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return htmldoc.ParseString(pages[pageURL], pageURL)
		})

		step := NewCrawlStep(newTestSpider(slow),
			WithCrawlLogger(discardLogger()),
			WithCrawlTimeout(50*time.Millisecond),
		)
		run := model.NewCrawlRun([]string{"https://example.com/"})

		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !run.TimedOut {
			t.Error("expected run to be marked as timed out")
		}
		if len(run.Documents) != 1 {
			t.Errorf("expected the seed document to be kept, got %d", len(run.Documents))
		}
	})
}

func TestLoadStep(t *testing.T) {
	t.Parallel()

	t.Run("loads documents", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "output.json")
		docs := []model.Document{
			model.NewDocument("https://example.com/a", "A", articleText),
			model.NewDocument("https://example.com/b", "B", "too short"),
		}
		if err := ioformats.WriteJSON(path, docs); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}

		run := model.NewCrawlRun(nil)
		step := NewLoadStep(path, WithLoadLogger(discardLogger()))
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Documents) != 1 || run.Documents[0].URL != "https://example.com/a" {
			t.Errorf("unexpected documents %+v", run.Documents)
		}
	})

	t.Run("min length option", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "output.json")
		docs := []model.Document{model.NewDocument("https://example.com/b", "B", "too short")}
		if err := ioformats.WriteJSON(path, docs); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}

		run := model.NewCrawlRun(nil)
		step := NewLoadStep(path, WithLoadMinLength(0), WithLoadLogger(discardLogger()))
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Documents) != 1 {
			t.Errorf("expected 1 document, got %d", len(run.Documents))
		}
	})

	t.Run("malformed input is fatal", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "output.json")
		if err := os.WriteFile(path, []byte(`[{"url": "u"}]`), 0o600); err != nil {
			t.Fatalf("failed to write input: %v", err)
		}

		err := NewLoadStep(path, WithLoadLogger(discardLogger())).Do(context.Background(), model.NewCrawlRun(nil))
		if !errors.Is(err, ioformats.ErrMalformedInput) {
			t.Errorf("expected ErrMalformedInput, got %v", err)
		}
	})
}

func TestChunkStep(t *testing.T) {
	t.Parallel()

	t.Run("chunks documents", func(t *testing.T) {
		t.Parallel()

		run := model.NewCrawlRun(nil)
		run.Documents = []model.Document{
			model.NewDocument("https://example.com/a", "A", strings.Repeat(articleText+" ", 4)),
		}

		step := NewChunkStep(nil, WithChunkLogger(discardLogger()))
		if err := step.Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Chunks) < 2 {
			t.Fatalf("expected several chunks, got %d", len(run.Chunks))
		}
		for i, c := range run.Chunks {
			if c.ChunkID != i || c.URL != "https://example.com/a" || c.Title != "A" {
				t.Errorf("unexpected chunk %d: %+v", i, c)
			}
		}
	})

	t.Run("no documents", func(t *testing.T) {
		t.Parallel()

		run := model.NewCrawlRun(nil)
		if err := NewChunkStep(nil, WithChunkLogger(discardLogger())).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(run.Chunks) != 0 {
			t.Errorf("expected no chunks, got %d", len(run.Chunks))
		}
	})
}

func TestWriteStep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docsPath := filepath.Join(dir, "output.json")
	chunksPath := filepath.Join(dir, "out", "chunks.json")

	run := model.NewCrawlRun(nil)
	run.Documents = []model.Document{model.NewDocument("https://example.com/a", "A", articleText)}
	run.Chunks = []model.ChunkRecord{{URL: "https://example.com/a", Domain: "example.com", Title: "A", Text: "x", Length: 1}}

	step := NewWriteStep(
		WithDocumentsPath(docsPath),
		WithChunksPath(chunksPath),
		WithWriteLogger(discardLogger()),
	)
	if err := step.Do(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docs, err := ioformats.ReadDocuments(docsPath, 0)
	if err != nil {
		t.Fatalf("failed to read documents back: %v", err)
	}
	if len(docs) != 1 || docs[0] != run.Documents[0] {
		t.Errorf("unexpected documents %+v", docs)
	}
	if _, err := os.Stat(chunksPath); err != nil {
		t.Errorf("expected chunks file: %v", err)
	}
}

func TestStoreStep(t *testing.T) {
	t.Parallel()

	t.Run("saves run", func(t *testing.T) {
		t.Parallel()

		store := &memoryStore{}
		run := model.NewCrawlRun(nil)
		if err := NewStoreStep(store, WithStoreLogger(discardLogger())).Do(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.saved) != 1 || store.saved[0] != run {
			t.Error("expected run to be saved")
		}
	})

	t.Run("wraps store error", func(t *testing.T) {
		t.Parallel()

		errDisk := errors.New("disk full")
		step := NewStoreStep(&memoryStore{err: errDisk}, WithStoreLogger(discardLogger()))
		if err := step.Do(context.Background(), model.NewCrawlRun(nil)); !errors.Is(err, errDisk) {
			t.Errorf("expected wrapped store error, got %v", err)
		}
	})
}

func TestCrawlPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := &memoryStore{}

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		NewCrawlStep(newTestSpider(fakeFetcher(sitePages())), WithCrawlLogger(discardLogger())),
		NewChunkStep(NewBatchChunker(nil, WithBatchLogger(discardLogger())), WithChunkLogger(discardLogger())),
		NewWriteStep(
			WithDocumentsPath(filepath.Join(dir, "output.json")),
			WithChunksPath(filepath.Join(dir, "chunks.json")),
			WithWriteLogger(discardLogger()),
		),
		NewStoreStep(store, WithStoreLogger(discardLogger())),
	)

	run := model.NewCrawlRun([]string{"https://example.com/"})
	if err := p.Execute(context.Background(), run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := strings.Join(run.PerformedSteps, ","); got != "crawl,chunk,write,store" {
		t.Errorf("unexpected performed steps %q", got)
	}
	if len(run.Documents) != 2 || len(run.Chunks) == 0 {
		t.Errorf("expected documents and chunks, got %d and %d", len(run.Documents), len(run.Chunks))
	}
	if len(store.saved) != 1 {
		t.Error("expected run to be stored")
	}
}
