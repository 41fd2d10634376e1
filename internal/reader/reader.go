// Package reader opens tabular input files as record sources for the
// de-identification engine. Supported formats: CSV, plain text (one record
// per line), JSON Lines, and Parquet.
package reader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a supported input file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatText    Format = "text"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
	FormatUnknown Format = "unknown"
)

// Source yields records from an input file. Next returns io.EOF after the
// last record.
type Source interface {
	Headers() []string
	Next() ([]string, error)
	io.Closer
}

// UnsupportedFormatError reports an input file whose format cannot be
// handled.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Path)
}

// DetectFormat identifies the file format from its extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".txt", ".log":
		return FormatText
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	case ".parquet":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// Open opens path with the source matching its format.
func Open(path string) (Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	src, err := ForFormat(file, DetectFormat(path))
	if err != nil {
		file.Close()
		if _, ok := err.(*UnsupportedFormatError); ok {
			return nil, &UnsupportedFormatError{Path: path}
		}
		return nil, err
	}
	return src, nil
}

// ForFormat wraps an already-open file in the source for a known format.
func ForFormat(file *os.File, format Format) (Source, error) {
	switch format {
	case FormatCSV:
		return NewCSVSource(file)
	case FormatText:
		return NewTextSource(file), nil
	case FormatJSONL:
		return NewJSONLSource(file), nil
	case FormatParquet:
		return NewParquetSource(file)
	default:
		return nil, &UnsupportedFormatError{Path: file.Name()}
	}
}
