package pii

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/deidscan/deidscan/internal/logger"
	"go.uber.org/zap"
)

// Counts tallies accepted matches per category.
type Counts map[Category]int

// Add merges other into c.
func (c Counts) Add(other Counts) {
	for k, v := range other {
		c[k] += v
	}
}

// Total returns the sum over all categories.
func (c Counts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// ExpectedCounts holds ground-truth totals per category. A category missing
// from the map is unevaluated; a present zero means "none should exist".
type ExpectedCounts map[Category]int

// Summary aggregates a whole run.
type Summary struct {
	RowsProcessed int    `json:"rows_processed"`
	TotalMatches  int    `json:"total_matches"`
	Matches       Counts `json:"matches"`
}

// RecordSource yields tabular records one at a time. Next returns io.EOF
// after the last record.
type RecordSource interface {
	Headers() []string
	Next() ([]string, error)
}

// Result is the full output of a batch run.
type Result struct {
	Headers []string      `json:"headers"`
	Records [][]string    `json:"records"`
	Summary Summary       `json:"summary"`
	Metrics []MetricEntry `json:"metrics,omitempty"`
}

// Engine runs detection and de-identification over text and records. Pattern
// and masking policy are fixed at construction; per-run pseudonymization
// state lives in a RunContext supplied by the caller.
type Engine struct {
	handlers map[Category]Handler
	patterns map[Category]Pattern
	configs  map[Category]MaskConfig
	opts     Options
	logger   *logger.Logger
}

// New builds an engine from resolved patterns and per-category masking
// policy. Categories missing from configs default to enabled partial
// masking.
func New(patterns map[Category]Pattern, configs map[Category]MaskConfig, opts Options, log *logger.Logger) (*Engine, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}

	merged := DefaultMaskConfigs()
	enabled := 0
	for c, cfg := range configs {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category in mask config: %q", c)
		}
		if cfg.Strategy != "" && !cfg.Strategy.Valid() {
			return nil, fmt.Errorf("unknown strategy %q for category %s", cfg.Strategy, c)
		}
		if cfg.Strategy == "" {
			cfg.Strategy = StrategyPartial
		}
		merged[c] = cfg
	}
	for _, cfg := range merged {
		if cfg.Enabled {
			enabled++
		}
	}

	engine := &Engine{
		handlers: handlerTable(),
		patterns: patterns,
		configs:  merged,
		opts:     opts,
		logger:   log.WithComponent("pii-engine"),
	}

	log.Info("De-identification engine initialized",
		zap.Int("categories", len(categoryOrder)),
		zap.Int("enabled", enabled),
		zap.Bool("pseudonymize", opts.Pseudonymize),
	)

	return engine, nil
}

// ProcessText runs every enabled category over text in the fixed category
// order and returns the de-identified text with per-category accepted-match
// counts. Each category scans the output of the previous one, so earlier
// categories claim overlapping spans.
func (e *Engine) ProcessText(text string, rc *RunContext) (string, Counts) {
	counts := make(Counts)
	if text == "" {
		return text, counts
	}

	out := text
	for _, c := range categoryOrder {
		cfg := e.configs[c]
		if !cfg.Enabled {
			continue
		}
		pattern, ok := e.patterns[c]
		if !ok {
			continue
		}

		masked, n := e.handlers[c].DetectAndMask(out, pattern, cfg, rc, e.opts)
		if n > 0 {
			counts[c] = n
			out = masked
			e.logger.Debug("PII detected and masked",
				zap.String("category", string(c)),
				zap.Int("count", n),
				zap.String("strategy", string(cfg.Strategy)),
			)
		}
	}
	return out, counts
}

// ProcessRecord de-identifies every field of one record. The input slice is
// not modified.
func (e *Engine) ProcessRecord(record []string, rc *RunContext) ([]string, Counts) {
	out := make([]string, len(record))
	counts := make(Counts)

	for i, field := range record {
		masked, fieldCounts := e.ProcessText(field, rc)
		out[i] = masked
		counts.Add(fieldCounts)
	}
	return out, counts
}

// Run drains src through the engine with one shared RunContext, so aliases
// stay stable across all records of the batch. Cancellation is checked
// between records; a record already being processed completes. When expected
// is non-nil the result carries evaluation metrics.
func (e *Engine) Run(ctx context.Context, src RecordSource, expected ExpectedCounts) (*Result, error) {
	rc := NewRunContext()
	result := &Result{
		Headers: src.Headers(),
		Summary: Summary{Matches: make(Counts)},
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", result.Summary.RowsProcessed+1, err)
		}

		masked, counts := e.ProcessRecord(record, rc)
		result.Records = append(result.Records, masked)
		result.Summary.RowsProcessed++
		result.Summary.Matches.Add(counts)
	}
	result.Summary.TotalMatches = result.Summary.Matches.Total()

	if expected != nil {
		result.Metrics = ComputeMetrics(result.Summary.Matches, expected)
	}

	e.logger.Info("Run complete",
		zap.Int("rows", result.Summary.RowsProcessed),
		zap.Int("matches", result.Summary.TotalMatches),
		zap.Int("email_aliases", rc.AliasCount(CategoryEmail)),
		zap.Int("person_aliases", rc.AliasCount(CategoryPersonName)),
	)

	return result, nil
}
