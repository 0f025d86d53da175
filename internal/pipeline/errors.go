package pipeline

import "errors"

// ErrNoSeeds is returned by CrawlStep when the run has no seed URLs.
var ErrNoSeeds = errors.New("no seed URLs to crawl")
