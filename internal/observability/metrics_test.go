package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deidscan/deidscan/internal/pii"
)

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(pii.Summary{
		RowsProcessed: 25,
		TotalMatches:  7,
		Matches:       pii.Counts{pii.CategoryEmail: 5, pii.CategoryPhone: 2},
	}, 0.42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"deidscan_scans_total 1",
		"deidscan_rows_processed_total 25",
		`deidscan_matches_total{category="email"} 5`,
		`deidscan_matches_total{category="phone"} 2`,
		"deidscan_scan_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output is missing %q", want)
		}
	}
}

func TestHTTPRequestCounter(t *testing.T) {
	m := New()
	m.HTTPRequests.WithLabelValues("POST", "/v1/scan", "200").Inc()
	m.HTTPRequests.WithLabelValues("POST", "/v1/scan", "200").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `deidscan_http_requests_total{method="POST",path="/v1/scan",status="200"} 2`) {
		t.Error("request counter missing from metrics output")
	}
}
