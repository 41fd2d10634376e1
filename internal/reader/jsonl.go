package reader

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// JSONLSource reads a file of one JSON object per line. Column order is the
// sorted key set of the first object; later objects are projected onto those
// columns, missing keys yielding empty fields.
type JSONLSource struct {
	decoder *json.Decoder
	headers []string
	first   []string
	started bool
	closer  io.Closer
}

// NewJSONLSource wraps r in an object-per-line source.
func NewJSONLSource(r io.ReadCloser) *JSONLSource {
	return &JSONLSource{decoder: json.NewDecoder(r), closer: r}
}

func (s *JSONLSource) Headers() []string {
	s.start()
	return s.headers
}

func (s *JSONLSource) Next() ([]string, error) {
	s.start()
	if s.first != nil {
		record := s.first
		s.first = nil
		return record, nil
	}

	obj, err := s.decode()
	if err != nil {
		return nil, err
	}
	return s.project(obj), nil
}

func (s *JSONLSource) Close() error { return s.closer.Close() }

// start reads the first object to fix the column set. Decode errors are
// surfaced by the first Next call.
func (s *JSONLSource) start() {
	if s.started {
		return
	}
	s.started = true

	obj, err := s.decode()
	if err != nil {
		return
	}
	s.headers = make([]string, 0, len(obj))
	for k := range obj {
		s.headers = append(s.headers, k)
	}
	sort.Strings(s.headers)
	s.first = s.project(obj)
}

func (s *JSONLSource) decode() (map[string]any, error) {
	var obj map[string]any
	if err := s.decoder.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *JSONLSource) project(obj map[string]any) []string {
	record := make([]string, len(s.headers))
	for i, key := range s.headers {
		value, ok := obj[key]
		if !ok || value == nil {
			continue
		}
		if str, ok := value.(string); ok {
			record[i] = str
			continue
		}
		record[i] = fmt.Sprintf("%v", value)
	}
	return record
}
