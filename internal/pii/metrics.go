package pii

// RiskLevel grades per-category detection quality for the run report.
type RiskLevel string

const (
	RiskNA       RiskLevel = "N/A"
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// MetricEntry is the per-category evaluation row: raw counts, the derived
// confusion-matrix cells, and the quality scores. Counts are aggregated over
// the whole run, not per record.
type MetricEntry struct {
	Category    Category  `json:"category"`
	Found       int       `json:"found"`
	Expected    int       `json:"expected"`
	ExpectedSet bool      `json:"expected_set"`
	TP          int       `json:"true_positives"`
	FP          int       `json:"false_positives"`
	FN          int       `json:"false_negatives"`
	Precision   float64   `json:"precision"`
	Recall      float64   `json:"recall"`
	F1          float64   `json:"f1"`
	Risk        RiskLevel `json:"risk"`
}

// ComputeMetrics evaluates found counts against expected ground-truth counts
// and returns one entry per category in the fixed category order. Categories
// absent from expected treat every find as true (tp = found, no false cells)
// and carry a risk of N/A; a present zero is a real expectation ("none of
// these should exist").
//
// Counts are totals, so the confusion cells are approximations: tp is the
// overlap min(found, expected), fp the surplus, fn the shortfall. Without
// positional ground truth a run can over-find in one record and under-find
// in another and still score perfectly.
func ComputeMetrics(found Counts, expected ExpectedCounts) []MetricEntry {
	entries := make([]MetricEntry, 0, len(categoryOrder))

	for _, c := range categoryOrder {
		entry := MetricEntry{Category: c, Found: found[c]}

		exp, ok := expected[c]
		if ok {
			entry.Expected = exp
			entry.ExpectedSet = true
			entry.TP = min(entry.Found, exp)
			entry.FP = max(0, entry.Found-exp)
			entry.FN = max(0, exp-entry.Found)
		} else {
			entry.TP = entry.Found
		}

		if entry.TP+entry.FP > 0 {
			entry.Precision = float64(entry.TP) / float64(entry.TP+entry.FP)
		}
		if entry.TP+entry.FN > 0 {
			entry.Recall = float64(entry.TP) / float64(entry.TP+entry.FN)
		}
		if entry.Precision+entry.Recall > 0 {
			entry.F1 = 2 * entry.Precision * entry.Recall / (entry.Precision + entry.Recall)
		}

		if entry.ExpectedSet {
			entry.Risk = riskFor(entry)
		} else {
			entry.Risk = RiskNA
		}

		entries = append(entries, entry)
	}
	return entries
}

// riskFor grades one evaluated category. Finding only noise is worse than
// finding nothing: pure false positives rank Critical, a clean sweep ranks
// Low, and mixed results rank by precision.
func riskFor(e MetricEntry) RiskLevel {
	switch {
	case e.TP == 0 && e.FP > 0:
		return RiskCritical
	case e.TP > 0 && e.FP == 0:
		return RiskLow
	case e.Precision >= 0.8:
		return RiskMedium
	case e.Precision >= 0.5:
		return RiskHigh
	default:
		return RiskCritical
	}
}
