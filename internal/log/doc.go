// Package log provides structured logging for crawlchunk on top of the
// standard slog package.
//
// The Handler wraps any slog.Handler and sanitizes attributes before they
// are written:
//   - Credential headers configured for a site (Authorization, Cookie,
//     X-Api-Key, ...) are masked by key
//   - Bearer, Basic and JWT values are masked regardless of key
//   - Passwords in URLs with user info are removed
//   - Long strings such as page content are truncated
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose, jsonOutput)
//	slog.SetDefault(logger)
//
//	logger.Debug("fetching page",
//	    "url", "https://example.com/docs",
//	    "headers", map[string]string{"Authorization": "Bearer ..."}, // masked
//	)
package log
