package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/deidscan/deidscan/internal/cache"
	"github.com/deidscan/deidscan/internal/logger"
	"github.com/deidscan/deidscan/internal/pii"
	"github.com/deidscan/deidscan/internal/report"
	"github.com/deidscan/deidscan/internal/store"
	"github.com/deidscan/deidscan/internal/websocket"
)

// ScanRequest is the POST /v1/scan body. Exactly one of Text or Records
// should carry the payload; when both are set, Records wins.
type ScanRequest struct {
	Text             string                          `json:"text,omitempty"`
	Headers          []string                        `json:"headers,omitempty"`
	Records          [][]string                      `json:"records,omitempty"`
	Preset           string                          `json:"preset,omitempty"`
	PatternOverrides map[pii.Category]string         `json:"pattern_overrides,omitempty"`
	Masking          map[pii.Category]pii.MaskConfig `json:"masking,omitempty"`
	Pseudonymize     *bool                           `json:"pseudonymize,omitempty"`
	ExpectedCounts   pii.ExpectedCounts              `json:"expected_counts,omitempty"`
}

// ScanResponse is the POST /v1/scan reply.
type ScanResponse struct {
	RunID    string      `json:"run_id"`
	Result   *pii.Result `json:"result"`
	Warnings []string    `json:"warnings,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":         "deidscan",
		"version":      "0.1.0",
		"preset":       s.config.Detection.Preset,
		"categories":   pii.Categories(),
		"pseudonymize": s.config.Detection.Pseudonymize,
		"cache":        s.runCache != nil,
		"store":        s.runStore != nil,
	})
}

// handleListPresets lists the available pattern presets.
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"presets": s.registry.ListPresets(),
		"default": pii.DefaultPresetName,
	})
}

// handleGetPreset returns the pattern texts of one preset.
func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     name,
		"patterns": s.registry.GetPreset(name),
	})
}

// handleScan runs detection and de-identification over the submitted text or
// records and returns the full result.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithRequestID(requestID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxRequestSize)
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Records) == 0 && req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "request must include text or records")
		return
	}

	engine, warnings, err := s.buildEngine(&req, log)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.New().String()
	log = log.WithRunID(runID)
	s.wsHub.ScanStarted(runID, "api")

	records := req.Records
	headers := req.Headers
	if len(records) == 0 {
		records = [][]string{{req.Text}}
		headers = []string{"text"}
	}

	start := time.Now()
	result, err := engine.Run(r.Context(), &memorySource{headers: headers, records: records}, req.ExpectedCounts)
	if err != nil {
		s.metrics.ScanFailures.Inc()
		s.writeError(w, http.StatusInternalServerError, "scan failed: "+err.Error())
		return
	}
	elapsed := time.Since(start)

	s.metrics.ObserveRun(result.Summary, elapsed.Seconds())
	s.wsHub.ScanCompleted(websocket.ScanCompletedEvent{
		RunID:         runID,
		RowsProcessed: result.Summary.RowsProcessed,
		TotalMatches:  result.Summary.TotalMatches,
		Matches:       result.Summary.Matches,
		DurationMs:    elapsed.Milliseconds(),
	})

	s.persistRun(r, runID, result, log)

	s.writeJSON(w, http.StatusOK, ScanResponse{
		RunID:    runID,
		Result:   result,
		Warnings: warnings,
	})
}

// buildEngine assembles a per-request engine from the request's preset,
// overrides, and masking policy, falling back to server config.
func (s *Server) buildEngine(req *ScanRequest, log *logger.Logger) (*pii.Engine, []string, error) {
	preset := req.Preset
	if preset == "" {
		preset = s.config.Detection.Preset
	}

	overrides := s.registry.GetPreset(preset)
	for category, pattern := range s.config.Detection.PatternOverrides {
		overrides[category] = pattern
	}
	for category, pattern := range req.PatternOverrides {
		if !category.Valid() {
			return nil, nil, fmt.Errorf("unknown category in pattern overrides: %s", category)
		}
		overrides[category] = pattern
	}
	// Default-preset texts resolve through the default path, not as
	// overrides, so they keep their "default" source.
	if preset == pii.DefaultPresetName && len(s.config.Detection.PatternOverrides) == 0 && len(req.PatternOverrides) == 0 {
		overrides = nil
	}

	patterns, warnErrs := s.registry.ResolveAll(overrides)
	warnings := make([]string, 0, len(warnErrs))
	for _, warn := range warnErrs {
		warnings = append(warnings, warn.Error())
		log.Warn("Pattern override rejected", zap.Error(warn))
	}

	masking := s.config.Detection.Masking
	if len(req.Masking) > 0 {
		merged := make(map[pii.Category]pii.MaskConfig, len(masking)+len(req.Masking))
		for category, cfg := range masking {
			merged[category] = cfg
		}
		for category, cfg := range req.Masking {
			merged[category] = cfg
		}
		masking = merged
	}

	opts := s.config.EngineOptions()
	if req.Pseudonymize != nil {
		opts.Pseudonymize = *req.Pseudonymize
	}

	engine, err := pii.New(patterns, masking, opts, s.baseLog)
	if err != nil {
		return nil, nil, err
	}
	return engine, warnings, nil
}

// persistRun stores the finished run in the cache and history store when
// those backends are configured. Failures are logged, not surfaced: the scan
// itself succeeded.
func (s *Server) persistRun(r *http.Request, runID string, result *pii.Result, log *logger.Logger) {
	if s.runCache != nil {
		err := s.runCache.Store(r.Context(), &cache.CachedRun{
			RunID:     runID,
			Result:    result,
			SourceFmt: "api",
		})
		if err != nil {
			log.Error("Failed to cache run", zap.Error(err))
		}
	}

	if s.runStore != nil {
		err := s.runStore.InsertRun(r.Context(), &store.RunRecord{
			RunID:         runID,
			SourceFormat:  "api",
			RowsProcessed: result.Summary.RowsProcessed,
			TotalMatches:  result.Summary.TotalMatches,
			Matches:       result.Summary.Matches,
			Metrics:       result.Metrics,
		})
		if err != nil {
			log.Error("Failed to record run", zap.Error(err))
		}
	}
}

// handleGetRun returns a cached run's full result.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runCache == nil {
		s.writeError(w, http.StatusNotImplemented, "run cache is not configured")
		return
	}

	runID := mux.Vars(r)["id"]
	run, err := s.runCache.Get(r.Context(), runID)
	if errors.Is(err, cache.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleRunReport renders a cached run's summary report as plain text.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if s.runCache == nil {
		s.writeError(w, http.StatusNotImplemented, "run cache is not configured")
		return
	}

	runID := mux.Vars(r)["id"]
	run, err := s.runCache.Get(r.Context(), runID)
	if errors.Is(err, cache.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	metrics := run.Result.Metrics
	if metrics == nil {
		metrics = pii.ComputeMetrics(run.Result.Summary.Matches, nil)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, report.RenderSummary(run.Result.Summary, metrics))
}

// handleListRuns returns recent run history from the store.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runStore == nil {
		s.writeError(w, http.StatusNotImplemented, "run store is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := s.runStore.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// memorySource adapts an in-request table to the engine's record source.
type memorySource struct {
	headers []string
	records [][]string
	pos     int
}

func (m *memorySource) Headers() []string { return m.headers }

func (m *memorySource) Next() ([]string, error) {
	if m.pos >= len(m.records) {
		return nil, io.EOF
	}
	record := m.records[m.pos]
	m.pos++
	return record, nil
}
