package report

import "errors"

// ErrUnknownFormat is returned for a report format name that is not supported.
var ErrUnknownFormat = errors.New("unknown report format")
