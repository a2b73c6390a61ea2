package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"

	apperrors "napsidx/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Frame is a CSV file held in memory: a header and its records.
type Frame struct {
	Header  []string
	Records [][]string
}

// Column returns the index of name in the header, or -1.
func (f *Frame) Column(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell of record r under column name, or "" when the
// column does not exist.
func (f *Frame) Value(r int, name string) string {
	c := f.Column(name)
	if c < 0 || r < 0 || r >= len(f.Records) || c >= len(f.Records[r]) {
		return ""
	}
	return f.Records[r][c]
}

// ReadOptions changes how ReadCSVWith reads a file.
type ReadOptions struct {
	// Skip drops raw rows, counted from zero, before the header is taken.
	Skip func(row int) bool
	// Decoder converts the file content to UTF-8 first.
	Decoder *encoding.Decoder
}

// ReadCSV loads a whole CSV file. A UTF-8 BOM is dropped and header names
// are trimmed. Records may be shorter than the header.
func ReadCSV(path string) (*Frame, error) {
	return ReadCSVWith(path, ReadOptions{})
}

// ReadCSVWith loads a CSV file whose header is not on the first line or
// which is not UTF-8.
func ReadCSVWith(path string, opts ReadOptions) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path)
		}
		return nil, apperrors.NewStorageError("failed to read file", err).WithContext("file", path)
	}
	if opts.Decoder != nil {
		if data, err = opts.Decoder.Bytes(data); err != nil {
			return nil, apperrors.NewParsingError("failed to decode file", err).WithContext("file", path)
		}
	}
	return parse(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)), path, opts.Skip)
}

// ParseCSV reads CSV content from r. The name is only used in errors.
func ParseCSV(r io.Reader, name string) (*Frame, error) {
	return parse(r, name, nil)
}

func parse(r io.Reader, name string, skip func(int) bool) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("malformed CSV", err).WithContext("file", name)
	}
	if skip != nil {
		kept := rows[:0]
		for i, row := range rows {
			if !skip(i) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}
	if len(rows) == 0 {
		return &Frame{}, nil
	}

	header := rows[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	return &Frame{Header: header, Records: rows[1:]}, nil
}
