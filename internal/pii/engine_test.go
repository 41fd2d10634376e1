package pii

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/deidscan/deidscan/internal/logger"
)

func newTestEngine(t *testing.T, configs map[Category]MaskConfig, opts Options) *Engine {
	t.Helper()
	patterns, warnings := NewRegistry().ResolveAll(nil)
	if len(warnings) != 0 {
		t.Fatalf("default patterns produced warnings: %v", warnings)
	}
	engine, err := New(patterns, configs, opts, logger.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return engine
}

func TestNewEngineValidation(t *testing.T) {
	patterns, _ := NewRegistry().ResolveAll(nil)

	t.Run("nil logger is rejected", func(t *testing.T) {
		if _, err := New(patterns, nil, DefaultOptions(), nil); err == nil {
			t.Error("New accepted a nil logger")
		}
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		bad := map[Category]MaskConfig{"ssn": {Enabled: true, Strategy: StrategyFull}}
		if _, err := New(patterns, bad, DefaultOptions(), logger.NewNop()); err == nil {
			t.Error("New accepted an unknown category")
		}
	})

	t.Run("unknown strategy is rejected", func(t *testing.T) {
		bad := map[Category]MaskConfig{CategoryEmail: {Enabled: true, Strategy: "tokenize"}}
		if _, err := New(patterns, bad, DefaultOptions(), logger.NewNop()); err == nil {
			t.Error("New accepted an unknown strategy")
		}
	})
}

func TestProcessText(t *testing.T) {
	engine := newTestEngine(t, nil, DefaultOptions())

	t.Run("mixed categories in one sentence", func(t *testing.T) {
		rc := NewRunContext()
		text := "contact John Smith at john.smith@example.com, phone +91-9876543210"
		got, counts := engine.ProcessText(text, rc)

		want := "contact person1 person2 at user1@example.com, phone +91-98******10"
		if got != want {
			t.Errorf("ProcessText = %q, want %q", got, want)
		}
		if counts[CategoryPersonName] != 1 || counts[CategoryEmail] != 1 || counts[CategoryPhone] != 1 {
			t.Errorf("counts = %v", counts)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		got, counts := engine.ProcessText("", NewRunContext())
		if got != "" || len(counts) != 0 {
			t.Errorf("ProcessText(\"\") = %q, %v", got, counts)
		}
	})

	t.Run("text with no matches is unchanged", func(t *testing.T) {
		text := "nothing sensitive in here"
		got, counts := engine.ProcessText(text, NewRunContext())
		if got != text {
			t.Errorf("ProcessText = %q, want input unchanged", got)
		}
		if counts.Total() != 0 {
			t.Errorf("counts = %v, want none", counts)
		}
	})

	t.Run("disabled category is skipped", func(t *testing.T) {
		configs := DefaultMaskConfigs()
		configs[CategoryEmail] = MaskConfig{Enabled: false}
		disabled := newTestEngine(t, configs, DefaultOptions())

		text := "alice@example.com"
		got, counts := disabled.ProcessText(text, NewRunContext())
		if got != text {
			t.Errorf("ProcessText = %q, want input unchanged", got)
		}
		if counts[CategoryEmail] != 0 {
			t.Errorf("email count = %d, want 0", counts[CategoryEmail])
		}
	})

	t.Run("invalid checksum is neither masked nor counted", func(t *testing.T) {
		text := "card 4111111111111112 on record"
		got, counts := engine.ProcessText(text, NewRunContext())
		if got != text {
			t.Errorf("ProcessText = %q, want input unchanged", got)
		}
		if counts[CategoryCard] != 0 {
			t.Errorf("card count = %d, want 0", counts[CategoryCard])
		}
	})
}

func TestProcessTextIdempotent(t *testing.T) {
	// Masked output must never re-match a pattern, whatever the strategy.
	for _, strategy := range []Strategy{StrategyRedact, StrategyFull, StrategyHash} {
		t.Run(string(strategy), func(t *testing.T) {
			configs := DefaultMaskConfigs()
			for c := range configs {
				configs[c] = MaskConfig{Enabled: true, Strategy: strategy}
			}
			engine := newTestEngine(t, configs, DefaultOptions())

			text := "John Smith, alice@example.com, 4111111111111111, A1234567, 01/02/1990"
			once, counts := engine.ProcessText(text, NewRunContext())
			if counts.Total() == 0 {
				t.Fatal("first pass found nothing")
			}

			twice, again := engine.ProcessText(once, NewRunContext())
			if twice != once {
				t.Errorf("second pass changed the text: %q -> %q", once, twice)
			}
			if again.Total() != 0 {
				t.Errorf("second pass counted %d matches, want 0", again.Total())
			}
		})
	}
}

func TestProcessRecord(t *testing.T) {
	engine := newTestEngine(t, nil, DefaultOptions())
	rc := NewRunContext()

	record := []string{"John Smith", "alice@example.com", "no pii"}
	got, counts := engine.ProcessRecord(record, rc)

	if got[0] != "person1 person2" {
		t.Errorf("field 0 = %q", got[0])
	}
	if got[1] != "user1@example.com" {
		t.Errorf("field 1 = %q", got[1])
	}
	if got[2] != "no pii" {
		t.Errorf("field 2 = %q", got[2])
	}
	if counts.Total() != 2 {
		t.Errorf("counts = %v, want 2 total", counts)
	}
	if record[1] != "alice@example.com" {
		t.Error("input record was modified")
	}
}

// sliceSource is a RecordSource over an in-memory table.
type sliceSource struct {
	headers []string
	records [][]string
	pos     int
	err     error
}

func (s *sliceSource) Headers() []string { return s.headers }

func (s *sliceSource) Next() ([]string, error) {
	if s.pos >= len(s.records) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func TestEngineRun(t *testing.T) {
	engine := newTestEngine(t, nil, DefaultOptions())

	t.Run("aliases are stable across records", func(t *testing.T) {
		src := &sliceSource{
			headers: []string{"name", "email"},
			records: [][]string{
				{"John Smith", "a@x.com"},
				{"Jane Doe", "b@x.com"},
				{"John Smith", "a@x.com"},
			},
		}

		result, err := engine.Run(context.Background(), src, nil)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if result.Summary.RowsProcessed != 3 {
			t.Errorf("rows = %d, want 3", result.Summary.RowsProcessed)
		}
		if result.Records[0][1] != "user1@x.com" || result.Records[1][1] != "user2@x.com" {
			t.Errorf("email aliases = %q, %q", result.Records[0][1], result.Records[1][1])
		}
		if result.Records[2][1] != result.Records[0][1] {
			t.Errorf("repeat email got a different alias: %q vs %q", result.Records[2][1], result.Records[0][1])
		}
		if result.Records[2][0] != result.Records[0][0] {
			t.Errorf("repeat name got a different alias: %q vs %q", result.Records[2][0], result.Records[0][0])
		}
		if result.Summary.Matches[CategoryEmail] != 3 {
			t.Errorf("email matches = %d, want 3", result.Summary.Matches[CategoryEmail])
		}
		if result.Metrics != nil {
			t.Error("metrics computed without expected counts")
		}
	})

	t.Run("metrics computed when expected counts given", func(t *testing.T) {
		src := &sliceSource{
			headers: []string{"email"},
			records: [][]string{{"a@x.com"}, {"b@x.com"}},
		}

		result, err := engine.Run(context.Background(), src, ExpectedCounts{CategoryEmail: 2})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Metrics == nil {
			t.Fatal("metrics missing")
		}
		for _, entry := range result.Metrics {
			if entry.Category != CategoryEmail {
				continue
			}
			if entry.TP != 2 || entry.FP != 0 || entry.FN != 0 {
				t.Errorf("email entry = %+v", entry)
			}
			if entry.Risk != RiskLow {
				t.Errorf("email risk = %s, want %s", entry.Risk, RiskLow)
			}
		}
	})

	t.Run("source error aborts with context", func(t *testing.T) {
		src := &sliceSource{
			headers: []string{"email"},
			records: [][]string{{"a@x.com"}},
			err:     errors.New("torn file"),
		}

		_, err := engine.Run(context.Background(), src, nil)
		if err == nil || !strings.Contains(err.Error(), "torn file") {
			t.Errorf("err = %v, want wrapped source error", err)
		}
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := &sliceSource{headers: []string{"email"}, records: [][]string{{"a@x.com"}}}
		if _, err := engine.Run(ctx, src, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}
