package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVSource reads a CSV file with a header row. A UTF-8 byte order mark on
// the first header cell is stripped.
type CSVSource struct {
	reader  *csv.Reader
	headers []string
	closer  io.Closer
}

// NewCSVSource reads the header row and prepares the source. Records may
// have a variable number of fields.
func NewCSVSource(r io.ReadCloser) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if err == io.EOF {
		return &CSVSource{reader: cr, closer: r}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	return &CSVSource{reader: cr, headers: headers, closer: r}, nil
}

func (s *CSVSource) Headers() []string { return s.headers }

func (s *CSVSource) Next() ([]string, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *CSVSource) Close() error { return s.closer.Close() }
