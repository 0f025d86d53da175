package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/model"
)

const (
	// DefaultCandidateSelector lists the container elements considered as
	// main content, matched in document order.
	DefaultCandidateSelector = "main, article, section, div"

	// DefaultMinLength is the minimum text length of a candidate block.
	DefaultMinLength = 200
)

// Weights are the coefficients of the content score:
//
//	score = Length*len(text) + Paragraph*count(<p>) - Link*count(<a>)
type Weights struct {
	Length    float64 `yaml:"length"`
	Paragraph float64 `yaml:"paragraph"`
	Link      float64 `yaml:"link"`
}

// DefaultWeights returns the standard weights: 1 per character, 200 per
// paragraph and -100 per link.
func DefaultWeights() Weights {
	return Weights{
		Length:    1,
		Paragraph: 200,
		Link:      100,
	}
}

// Scorer picks the main content block of a page.
type Scorer struct {
	weights   Weights
	minLength int
	selector  string
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithWeights sets the score coefficients.
func WithWeights(w Weights) ScorerOption {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithMinLength sets the minimum candidate text length.
func WithMinLength(n int) ScorerOption {
	return func(s *Scorer) {
		if n >= 0 {
			s.minLength = n
		}
	}
}

// WithCandidateSelector overrides the CSS selector of candidate blocks.
func WithCandidateSelector(selector string) ScorerOption {
	return func(s *Scorer) {
		if selector != "" {
			s.selector = selector
		}
	}
}

// NewScorer creates a Scorer with default weights.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		weights:   DefaultWeights(),
		minLength: DefaultMinLength,
		selector:  DefaultCandidateSelector,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the coefficients in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Candidates returns every candidate block long enough to be scored,
// in document order.
func (s *Scorer) Candidates(tree *htmldoc.Tree) []model.ContentCandidate {
	var out []model.ContentCandidate
	tree.Find(s.selector).Each(func(_ int, sel *goquery.Selection) {
		text := htmldoc.Text(sel)
		textLen := utf8.RuneCountInString(text)
		if textLen < s.minLength {
			return
		}
		out = append(out, model.ContentCandidate{
			Tag:   goquery.NodeName(sel),
			Text:  text,
			Score: s.score(textLen, sel.Find("p").Length(), sel.Find("a").Length()),
		})
	})
	return out
}

func (s *Scorer) score(textLen, paragraphs, links int) float64 {
	return s.weights.Length*float64(textLen) +
		s.weights.Paragraph*float64(paragraphs) -
		s.weights.Link*float64(links)
}

// ExtractMainContent returns the text of the highest-scoring candidate, or ""
// when no candidate scores above zero. Ties keep the earlier block.
func (s *Scorer) ExtractMainContent(tree *htmldoc.Tree) string {
	best, ok := s.Best(tree)
	if !ok {
		return ""
	}
	return best.Text
}

// Best returns the winning candidate and whether one was found.
func (s *Scorer) Best(tree *htmldoc.Tree) (model.ContentCandidate, bool) {
	var (
		best  model.ContentCandidate
		found bool
	)
	bestScore := 0.0
	for _, c := range s.Candidates(tree) {
		if c.Score > bestScore {
			best = c
			bestScore = c.Score
			found = true
		}
	}
	return best, found
}
