package ioformats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/nao1215/crawlchunk/internal/model"
)

// requiredFields must be present in every document record.
// title may be null; domain is optional.
var requiredFields = []string{"url", "title", "content", "length"}

// ReadDocuments loads a JSON array of documents from path, skipping records
// whose declared length is below minLength.
func ReadDocuments(path string, minLength int) ([]model.Document, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided input path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := DecodeDocuments(f, minLength)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return docs, nil
}

// DecodeDocuments decodes a JSON array of documents from r, skipping records
// whose declared length is below minLength. A record missing a required key
// or holding a value of the wrong type yields a *RecordError.
// When domain is absent or null it is derived from url.
func DecodeDocuments(r io.Reader, minLength int) ([]model.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if isNull(data) {
		return nil, fmt.Errorf("%w: expected a JSON array of objects, got null", ErrMalformedInput)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of objects: %v", ErrMalformedInput, err) //nolint:errorlint // only the sentinel is wrapped
	}

	docs := make([]model.Document, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			return nil, &RecordError{Index: i, Reason: "record is not an object"}
		}
		doc, err := decodeDocument(i, rec)
		if err != nil {
			return nil, err
		}
		if doc.Length < minLength {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeDocument(index int, rec map[string]json.RawMessage) (model.Document, error) {
	for _, field := range requiredFields {
		if _, ok := rec[field]; !ok {
			return model.Document{}, &RecordError{Index: index, Field: field, Reason: "missing"}
		}
	}

	var doc model.Document
	var err error

	if doc.URL, err = stringField(index, rec, "url", false); err != nil {
		return model.Document{}, err
	}
	if doc.Title, err = stringField(index, rec, "title", true); err != nil {
		return model.Document{}, err
	}
	if doc.Content, err = stringField(index, rec, "content", false); err != nil {
		return model.Document{}, err
	}
	if doc.Domain, err = stringField(index, rec, "domain", true); err != nil {
		return model.Document{}, err
	}
	if doc.Domain == "" {
		doc.Domain = model.DomainOf(doc.URL)
	}

	var length float64
	if isNull(rec["length"]) || json.Unmarshal(rec["length"], &length) != nil {
		return model.Document{}, &RecordError{Index: index, Field: "length", Reason: "must be a number"}
	}
	if length != math.Trunc(length) {
		return model.Document{}, &RecordError{Index: index, Field: "length", Reason: "must be an integer"}
	}
	doc.Length = int(length)

	return doc, nil
}

// stringField decodes rec[field] as a string. Absent keys give "".
func stringField(index int, rec map[string]json.RawMessage, field string, nullable bool) (string, error) {
	raw, ok := rec[field]
	if !ok {
		return "", nil
	}
	if isNull(raw) {
		if nullable {
			return "", nil
		}
		return "", &RecordError{Index: index, Field: field, Reason: "must not be null"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &RecordError{Index: index, Field: field, Reason: "must be a string"}
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// WriteJSON writes v to path as JSON indented with two spaces, creating
// parent directories as needed.
func WriteJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // user-provided output path is intentional
	if err != nil {
		return err
	}

	if err := EncodeJSON(f, v); err != nil {
		_ = f.Close() //nolint:errcheck // the encode error is reported
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// EncodeJSON writes v to w as JSON indented with two spaces.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
