// Package report renders run results: the plain-text summary report and the
// de-identified output files.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/deidscan/deidscan/internal/pii"
)

// RenderSummary formats the detection summary report: row count, a
// per-category metrics table, and the scoring legend.
func RenderSummary(summary pii.Summary, metrics []pii.MetricEntry) string {
	var lines []string
	lines = append(lines,
		"--- Detection Summary Report ---\n",
		fmt.Sprintf("Rows Processed: %d\n", summary.RowsProcessed),
	)

	header := fmt.Sprintf("%-20s | %-7s | %-10s | %-5s | %-5s | %-10s | %-8s | %-10s | %s",
		"PII Category", "Found", "Expected", "TP", "FP", "Precision", "Recall", "F1-Score", "Risk Level")
	lines = append(lines, header, strings.Repeat("-", len(header)))

	for _, m := range metrics {
		expected := "N/A"
		if m.ExpectedSet {
			expected = fmt.Sprintf("%d", m.Expected)
		}
		lines = append(lines, fmt.Sprintf("%-20s | %-7d | %-10s | %-5d | %-5d | %-10.2f | %-8.2f | %-10.2f | %s",
			m.Category.Label(), m.Found, expected, m.TP, m.FP, m.Precision, m.Recall, m.F1, m.Risk))
	}

	lines = append(lines,
		"\n"+strings.Repeat("=", 40),
		"\n--- Accuracy Formulas ---\n",
		"Precision = TP / (TP + FP)  (Ability to avoid false positives)",
		"Recall    = TP / (TP + FN)     (Ability to find all positives)",
		"F1-Score  = 2 * (Precision * Recall) / (Precision + Recall)\n",
		"\n--- Risk Matrix ---\n",
		"Low:      All found items were expected (Precision = 1.0)",
		"Medium:   High precision (>= 0.8), few false positives.",
		"High:     Moderate precision (>= 0.5), some false positives.",
		"Critical: Low precision (< 0.5) or found items when none expected.",
	)

	return strings.Join(lines, "\n")
}

// WriteCSV writes the de-identified table as CSV, header row first when one
// exists.
func WriteCSV(w io.Writer, headers []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if len(headers) > 0 {
		if err := cw.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}
	for _, record := range records {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes single-field records as plain text, one per line.
func WriteText(w io.Writer, records [][]string) error {
	for _, record := range records {
		line := ""
		if len(record) > 0 {
			line = record[0]
		}
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("failed to write text line: %w", err)
		}
	}
	return nil
}
