// Package main provides the entry point for the crawlchunk CLI.
//
// crawlchunk crawls web sites, extracts the main content of each page and
// splits it into overlapping chunks sized for embedding pipelines.
//
// Usage:
//
//	crawlchunk crawl <url>...
//	crawlchunk chunk [input] [output]
//
// See --help for all available options.
package main

// main is the entry point for crawlchunk.
func main() {
	Execute()
}
