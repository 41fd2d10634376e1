package report

import (
	"strings"
	"testing"

	"github.com/deidscan/deidscan/internal/pii"
)

func TestRenderSummary(t *testing.T) {
	summary := pii.Summary{RowsProcessed: 12}
	metrics := pii.ComputeMetrics(
		pii.Counts{pii.CategoryEmail: 5, pii.CategoryPhone: 2},
		pii.ExpectedCounts{pii.CategoryEmail: 5},
	)

	out := RenderSummary(summary, metrics)

	for _, want := range []string{
		"--- Detection Summary Report ---",
		"Rows Processed: 12",
		"PII Category",
		"Risk Level",
		"--- Accuracy Formulas ---",
		"--- Risk Matrix ---",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary is missing %q", want)
		}
	}

	var emailLine, phoneLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, pii.CategoryEmail.Label()) {
			emailLine = line
		}
		if strings.HasPrefix(line, pii.CategoryPhone.Label()) {
			phoneLine = line
		}
	}

	if emailLine == "" || !strings.Contains(emailLine, "Low") {
		t.Errorf("email line = %q, want Low risk", emailLine)
	}
	if phoneLine == "" || !strings.Contains(phoneLine, "N/A") {
		t.Errorf("phone line = %q, want N/A expected", phoneLine)
	}
}

func TestWriteCSV(t *testing.T) {
	var b strings.Builder
	err := WriteCSV(&b, []string{"name", "email"}, [][]string{
		{"person1 person2", "user1@x.com"},
		{"value, with comma", "user2@y.com"},
	})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	got := b.String()
	want := "name,email\nperson1 person2,user1@x.com\n\"value, with comma\",user2@y.com\n"
	if got != want {
		t.Errorf("WriteCSV output = %q, want %q", got, want)
	}
}

func TestWriteCSVWithoutHeaders(t *testing.T) {
	var b strings.Builder
	if err := WriteCSV(&b, nil, [][]string{{"only", "data"}}); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if got := b.String(); got != "only,data\n" {
		t.Errorf("WriteCSV output = %q", got)
	}
}

func TestWriteText(t *testing.T) {
	var b strings.Builder
	err := WriteText(&b, [][]string{{"first"}, {"second"}, {}})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if got := b.String(); got != "first\nsecond\n\n" {
		t.Errorf("WriteText output = %q", got)
	}
}
