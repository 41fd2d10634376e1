package reader

import (
	"fmt"
	"io"
	"os"

	"github.com/segmentio/parquet-go"
)

// ParquetSource reads a Parquet file of text documents. Rows are read
// generically and projected onto the file's leaf column names.
type ParquetSource struct {
	reader  *parquet.Reader
	headers []string
	file    *os.File
}

// NewParquetSource opens file as a Parquet dataset.
func NewParquetSource(file *os.File) (*ParquetSource, error) {
	reader := parquet.NewReader(file)

	schema := reader.Schema()
	fields := schema.Fields()
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Name()
	}

	return &ParquetSource{reader: reader, headers: headers, file: file}, nil
}

func (s *ParquetSource) Headers() []string { return s.headers }

func (s *ParquetSource) Next() ([]string, error) {
	row := make(parquet.Row, 0, len(s.headers))
	rows := []parquet.Row{row}
	n, err := s.reader.ReadRows(rows)
	if n == 0 {
		if err == nil || err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read parquet row: %w", err)
	}

	record := make([]string, len(s.headers))
	for _, value := range rows[0] {
		col := value.Column()
		if col < 0 || col >= len(record) {
			continue
		}
		record[col] = valueString(value)
	}
	return record, nil
}

func (s *ParquetSource) Close() error {
	s.reader.Close()
	return s.file.Close()
}

// valueString renders one parquet leaf value as text. Nulls become empty
// fields.
func valueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
