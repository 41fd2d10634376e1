package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deidscan/deidscan/internal/config"
	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/pii"
	"github.com/deidscan/deidscan/internal/reader"
	"github.com/deidscan/deidscan/internal/report"
	"github.com/deidscan/deidscan/internal/store"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Configuration file path")
		inputFile    = flag.String("input", "", "Input file (CSV, TXT, JSONL, or Parquet)")
		outputFile   = flag.String("output", "", "De-identified output file (default: <input>_deidentified)")
		summaryFile  = flag.String("summary", "", "Summary report file (default: stdout)")
		expectedFile = flag.String("expected", "", "JSON file with expected counts per category")
	)
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input customers.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input notes.txt --expected counts.json --summary report.txt\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting batch de-identification",
		zap.String("input", *inputFile),
		zap.String("preset", cfg.Detection.Preset),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling run...")
		cancel()
	}()

	if err := run(ctx, cfg, log, *inputFile, *outputFile, *summaryFile, *expectedFile); err != nil {
		log.Fatal("Batch run failed", zap.Error(err))
	}

	log.Info("Batch run completed successfully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, inputFile, outputFile, summaryFile, expectedFile string) error {
	expected, err := loadExpectedCounts(expectedFile)
	if err != nil {
		return err
	}

	registry := pii.NewRegistry()
	overrides := cfg.Detection.PatternOverrides
	if cfg.Detection.Preset != pii.DefaultPresetName {
		merged := registry.GetPreset(cfg.Detection.Preset)
		for category, pattern := range overrides {
			merged[category] = pattern
		}
		overrides = merged
	}

	patterns, warnings := registry.ResolveAll(overrides)
	for _, warn := range warnings {
		log.Warn("Pattern override rejected", zap.Error(warn))
	}

	engine, err := pii.New(patterns, cfg.Detection.Masking, cfg.EngineOptions(), log)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	src, err := reader.Open(inputFile)
	if err != nil {
		return err
	}
	defer src.Close()

	start := time.Now()
	result, err := engine.Run(ctx, src, expected)
	if err != nil {
		return err
	}
	runID := uuid.New().String()
	log = log.WithRunID(runID)

	log.Info("Scan finished",
		zap.Int("rows", result.Summary.RowsProcessed),
		zap.Int("matches", result.Summary.TotalMatches),
		zap.Duration("duration", time.Since(start)),
	)

	format := reader.DetectFormat(inputFile)
	if cfg.Database.Enabled {
		recordRun(ctx, cfg, log, runID, string(format), result)
	}
	if outputFile == "" {
		outputFile = defaultOutputPath(inputFile, format)
	}
	if err := writeOutput(outputFile, format, result); err != nil {
		return err
	}
	log.Info("De-identified output written", zap.String("path", outputFile))

	metrics := result.Metrics
	if metrics == nil {
		metrics = pii.ComputeMetrics(result.Summary.Matches, nil)
	}
	summary := report.RenderSummary(result.Summary, metrics)

	if summaryFile == "" {
		fmt.Println(summary)
		return nil
	}
	if err := os.WriteFile(summaryFile, []byte(summary+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write summary report: %w", err)
	}
	log.Info("Summary report written", zap.String("path", summaryFile))
	return nil
}

// recordRun persists the run summary to the history store. A storage failure
// is logged, not fatal: the output files already exist.
func recordRun(ctx context.Context, cfg *config.Config, log *logger.Logger, runID, format string, result *pii.Result) {
	runStore, err := store.NewStore(&store.Config{
		URL:             cfg.Database.URL,
		MaxConnections:  cfg.Database.MaxConnections,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Error("Failed to connect run store", zap.Error(err))
		return
	}
	defer runStore.Close()

	err = runStore.InsertRun(ctx, &store.RunRecord{
		RunID:         runID,
		SourceFormat:  format,
		RowsProcessed: result.Summary.RowsProcessed,
		TotalMatches:  result.Summary.TotalMatches,
		Matches:       result.Summary.Matches,
		Metrics:       result.Metrics,
	})
	if err != nil {
		log.Error("Failed to record run", zap.Error(err))
		return
	}
	log.Info("Run recorded")
}

// loadExpectedCounts reads the ground-truth counts file, mapping category
// names to expected totals.
func loadExpectedCounts(path string) (pii.ExpectedCounts, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read expected counts: %w", err)
	}

	var counts pii.ExpectedCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("failed to parse expected counts: %w", err)
	}
	for category := range counts {
		if !category.Valid() {
			return nil, fmt.Errorf("unknown category in expected counts: %s", category)
		}
	}
	return counts, nil
}

// defaultOutputPath derives the output filename from the input, e.g.
// customers.csv -> customers_deidentified.csv.
func defaultOutputPath(inputFile string, format reader.Format) string {
	ext := ".csv"
	if format == reader.FormatText {
		ext = ".txt"
	}

	base := inputFile
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			base = base[:i]
			break
		}
		if base[i] == '/' {
			break
		}
	}
	return base + "_deidentified" + ext
}

// writeOutput saves the de-identified records: text stays line-oriented,
// everything else becomes CSV.
func writeOutput(path string, format reader.Format, result *pii.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if format == reader.FormatText {
		return report.WriteText(out, result.Records)
	}
	return report.WriteCSV(out, result.Headers, result.Records)
}
