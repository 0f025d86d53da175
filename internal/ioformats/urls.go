package ioformats

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadURLs reads seed URLs from a file.
//   - .csv: a header row with a "url" column
//   - .ndjson / .jsonl: one {"url": ...} object or raw URL per line
//   - anything else: one URL per line; blank lines and lines starting
//     with "#" are ignored
func ReadURLs(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided list path is intentional
	if err != nil {
		return nil, err
	}

	var urls []string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		urls, err = readCSV(bytes.NewReader(data))
	} else {
		urls, err = readLines(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoURLs)
	}
	return urls, nil
}

func readCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoURLs
	}

	col := -1
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), "url") {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, ErrMissingURLColumn
	}

	var out []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if u := strings.TrimSpace(row[col]); u != "" {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

// readLines handles both NDJSON and plain lists: a line that is a JSON
// object with a string "url" yields that URL, any other line is the URL.
func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "{") {
			var obj struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal([]byte(line), &obj); err == nil && obj.URL != "" {
				out = append(out, obj.URL)
			}
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
