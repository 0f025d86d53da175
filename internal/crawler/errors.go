package crawler

import (
	"errors"
	"fmt"
)

// Fetch failure causes.
// A failed fetch is always reported as a *FetchError whose Err is one of
// these sentinels or the underlying transport error.
var (
	// ErrInvalidURL is returned when a URL cannot be parsed or is not http(s).
	ErrInvalidURL = errors.New("invalid URL: must be an absolute http or https URL")

	// ErrHTTPStatus is returned when the server answers outside 200-399.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrNonHTML is returned when the response is not an HTML document.
	ErrNonHTML = errors.New("response is not HTML")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// FetchError records a page that could not be fetched.
type FetchError struct {
	// URL is the page that failed.
	URL string

	// StatusCode is the HTTP status, when a response was received.
	StatusCode int

	// Err is the cause.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (status %d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
