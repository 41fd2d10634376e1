package reader

import (
	"bufio"
	"io"
)

// TextSource reads a plain text file as single-field records, one per line.
type TextSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewTextSource wraps r in a line-per-record source.
func NewTextSource(r io.ReadCloser) *TextSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TextSource{scanner: scanner, closer: r}
}

func (s *TextSource) Headers() []string { return []string{"text"} }

func (s *TextSource) Next() ([]string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return []string{s.scanner.Text()}, nil
}

func (s *TextSource) Close() error { return s.closer.Close() }
