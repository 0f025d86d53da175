package ioformats

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when a document file does not have the
	// expected structure. The concrete error is a *RecordError when a single
	// record is at fault.
	ErrMalformedInput = errors.New("malformed input")

	// ErrMissingURLColumn is returned when a CSV seed list has no "url" header.
	ErrMissingURLColumn = errors.New("csv must contain a 'url' header column")

	// ErrNoURLs is returned when a seed list contains no URL.
	ErrNoURLs = errors.New("no urls found")
)

// RecordError describes a malformed record of a document file.
type RecordError struct {
	// Index is the 0-based position of the record in the array.
	Index int

	// Field is the offending key, or empty when the record itself is wrong.
	Field string

	// Reason describes the problem.
	Reason string
}

// Error implements error.
func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: record %d: %s", ErrMalformedInput, e.Index, e.Reason)
	}
	return fmt.Sprintf("%v: record %d: field %q: %s", ErrMalformedInput, e.Index, e.Field, e.Reason)
}

// Unwrap returns ErrMalformedInput.
func (e *RecordError) Unwrap() error {
	return ErrMalformedInput
}
