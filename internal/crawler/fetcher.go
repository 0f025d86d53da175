package crawler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/model"
)

const (
	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "Mozilla/5.0 (compatible; crawlchunk/1.0)"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024
)

// Fetcher retrieves a page and returns its parsed tree.
// The tree's URL is the final URL after redirects.
// Implementations must return within bounded time and must not retry.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*htmldoc.Tree, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, pageURL string) (*htmldoc.Tree, error)

// Fetch calls f(ctx, pageURL).
func (f FetcherFunc) Fetch(ctx context.Context, pageURL string) (*htmldoc.Tree, error) {
	return f(ctx, pageURL)
}

// HTTPFetcher fetches pages with GET requests.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	rules       RulesFunc
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize caps the number of body bytes read per page.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithFetcherRules sets the per-host rules whose Headers are sent with requests.
func WithFetcherRules(fn RulesFunc) FetcherOption {
	return func(f *HTTPFetcher) {
		if fn != nil {
			f.rules = fn
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher using client.
// A nil client is replaced by http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...FetcherOption) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		rules:       noRules,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher. Every error it returns is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*htmldoc.Tree, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &FetchError{URL: pageURL, Err: ErrInvalidURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.rules(model.DomainOf(pageURL)).Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrHTTPStatus}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrNonHTML}
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	tree, err := htmldoc.Parse(io.LimitReader(resp.Body, f.maxBodySize), contentType, finalURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: err}
	}
	return tree, nil
}

// isHTML reports whether a Content-Type header denotes an HTML page.
// A missing header is accepted since some servers omit it.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
