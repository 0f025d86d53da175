package config

import (
	"maps"
	"strings"

	"github.com/nao1215/crawlchunk/internal/crawler"
	"github.com/nao1215/crawlchunk/internal/extract"
)

// SiteConfig holds crawl settings for a single host.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this site,
	// for example a Cookie or an Authorization header.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// IgnorePatterns are URL patterns to skip during crawling.
	// Patterns are matched against the URL path using glob syntax.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL patterns to follow during crawling.
	// If specified, only URLs matching these patterns are crawled.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// SameHost keeps the crawl on this site.
	SameHost bool `yaml:"sameHost,omitempty"`
}

// ChunkerConfig is the chunker section of the configuration file.
// Zero values leave the corresponding setting unchanged.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunkSize,omitempty"`
	Overlap      int `yaml:"overlap,omitempty"`
	MinChunkSize int `yaml:"minChunkSize,omitempty"`
}

// File represents the structure of the .crawlchunk configuration file.
type File struct {
	// Sites maps hosts to their site-specific configurations.
	// Keys are the host without the scheme (e.g., "example.com" or "localhost:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Chunker overrides the chunking defaults.
	Chunker ChunkerConfig `yaml:"chunker,omitempty"`

	// Scoring replaces the content scoring weights when set.
	Scoring *extract.Weights `yaml:"scoring,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	// Start with defaults
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = maps.Clone(cf.Defaults.Headers)
	}

	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.lookupFold(host)
	}
	if !ok {
		return result
	}

	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	if siteConfig.SameHost {
		result.SameHost = true
	}

	return result
}

// lookupFold finds a site entry whose key matches host case-insensitively.
func (cf *File) lookupFold(host string) (SiteConfig, bool) {
	for key, sc := range cf.Sites {
		if strings.EqualFold(key, host) {
			return sc, true
		}
	}
	return SiteConfig{}, false
}

// Rules converts the site configuration into crawl rules for a host.
// sameHost is the global --same-host setting; a site can only turn it on.
func (sc SiteConfig) Rules(sameHost bool) crawler.SiteRules {
	return crawler.SiteRules{
		Headers:        sc.Headers,
		MaxDepth:       sc.Depth,
		IgnorePatterns: sc.IgnorePatterns,
		FollowPatterns: sc.FollowPatterns,
		SameHost:       sameHost || sc.SameHost,
	}
}

// Rules returns the per-host crawl rules of the configuration.
// Without a configuration file every host gets the global settings only.
func (c *Config) Rules() crawler.RulesFunc {
	if c.SiteConfigs == nil {
		return crawler.StaticRules(crawler.SiteRules{SameHost: c.SameHost})
	}

	files := c.SiteConfigs
	sameHost := c.SameHost
	return func(host string) crawler.SiteRules {
		return files.GetSiteConfig(host).Rules(sameHost)
	}
}

// ApplyFile copies the chunker and scoring sections of the configuration
// file into c. isSet reports whether a command-line flag was given
// explicitly; explicit flags win over the file.
func (c *Config) ApplyFile(isSet func(flag string) bool) {
	if c.SiteConfigs == nil {
		return
	}
	if isSet == nil {
		isSet = func(string) bool { return false }
	}

	ch := c.SiteConfigs.Chunker
	if ch.ChunkSize > 0 && !isSet("chunk-size") {
		c.ChunkSize = ch.ChunkSize
	}
	if ch.Overlap > 0 && !isSet("overlap") {
		c.Overlap = ch.Overlap
	}
	if ch.MinChunkSize > 0 && !isSet("min-chunk-size") {
		c.MinChunkSize = ch.MinChunkSize
	}
	if c.SiteConfigs.Scoring != nil {
		c.Weights = *c.SiteConfigs.Scoring
	}
	if c.SiteConfigs.Defaults.Depth > 0 && !isSet("depth") {
		c.MaxDepth = c.SiteConfigs.Defaults.Depth
	}
	if c.SiteConfigs.Defaults.SameHost && !isSet("same-host") {
		c.SameHost = true
	}
}
