// Package config provides configuration structures and utilities for crawlchunk.
// It defines the crawl limits, extraction and chunking settings, and report
// preferences, and loads the optional .crawlchunk YAML file with per-host
// crawl rules.
package config
