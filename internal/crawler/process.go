package crawler

import (
	"github.com/nao1215/crawlchunk/internal/extract"
	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/model"
)

// Processor turns one fetched page into a Document and follow-up tasks.
// It holds no per-crawl state other than the frontier's visited set, which
// it only reads, so pages can be processed in parallel.
type Processor struct {
	scorer           *extract.Scorer
	frontier         *Frontier
	minContentLength int
}

// NewProcessor creates a Processor. Documents are kept only when their
// cleaned content is longer than minContentLength.
func NewProcessor(scorer *extract.Scorer, frontier *Frontier, minContentLength int) *Processor {
	if scorer == nil {
		scorer = extract.NewScorer()
	}
	if frontier == nil {
		frontier = NewFrontier(nil)
	}
	return &Processor{
		scorer:           scorer,
		frontier:         frontier,
		minContentLength: minContentLength,
	}
}

// ProcessPage extracts the main content of tree and the links to follow.
// The Document is nil when the page has too little content. Returned tasks
// are one level deeper than task and are not yet claimed in the visited set.
func (p *Processor) ProcessPage(tree *htmldoc.Tree, task model.FetchTask) (*model.Document, []model.FetchTask) {
	pageURL := tree.URL()
	if pageURL == "" {
		pageURL = task.URL
	}

	var doc *model.Document
	content := extract.Clean(p.scorer.ExtractMainContent(tree))
	if len(content) > p.minContentLength {
		d := model.NewDocument(pageURL, tree.Title(), content)
		doc = &d
	}

	links := p.frontier.ExtractLinks(tree, pageURL)
	tasks := make([]model.FetchTask, 0, len(links))
	for _, link := range links {
		tasks = append(tasks, model.NewFetchTask(link, task.Depth+1, pageURL))
	}

	return doc, tasks
}
