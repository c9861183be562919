package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/logging"
)

// defaultListLimit bounds GET /api/sections when no limit query is given.
const defaultListLimit = 50

// handleGenerateSection handles POST /api/sections. It resolves the named
// stock section, runs the full Retrieve → Compose → Persist pipeline, and
// returns the outcome. Generation is synchronous; WriteTimeout covers it.
func (s *Server) handleGenerateSection(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req sectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.sectionRequestsTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Section == "" {
		s.metrics.sectionRequestsTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, "section is required", http.StatusBadRequest)
		return
	}

	spec, ok := composer.FindStockSection(req.Section)
	if !ok {
		s.metrics.sectionRequestsTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, "unknown section: "+req.Section, http.StatusNotFound)
		return
	}

	start := time.Now()
	out, err := s.runner.GenerateSection(r.Context(), &spec)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.sectionRequestsTotal.WithLabelValues("error").Inc()
		s.metrics.sectionDurationSeconds.WithLabelValues("error").Observe(elapsed.Seconds())
		log.Error("section generation failed",
			slog.String("section", spec.Name),
			slog.Any("error", err),
		)
		http.Error(w, "section generation failed", http.StatusInternalServerError)
		return
	}

	outcome := "ok"
	status := "ok"
	if out.Flagged() {
		outcome = "flagged"
		status = "flagged"
	}
	s.metrics.sectionRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.sectionDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sectionResponse{
		Section:    out.Name,
		OutPath:    out.OutPath,
		Status:     status,
		Violations: len(out.Violations),
	}); err != nil {
		log.Error("section response encode error", slog.Any("error", err))
	}
}

// handleListSections handles GET /api/sections, returning the most recent
// run records newest-first. ?limit=N caps the result (default 50).
func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records := []runRecord{}
	if s.runs != nil {
		runs, err := s.runs.Recent(r.Context(), limit)
		if err != nil {
			log.Error("run record query failed", slog.Any("error", err))
			http.Error(w, "could not load run records", http.StatusInternalServerError)
			return
		}
		for _, run := range runs {
			records = append(records, runRecord{
				Section:   run.Section,
				OutPath:   run.OutPath,
				Status:    string(run.Status),
				Reason:    run.Reason,
				CreatedAt: run.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Error("run records encode error", slog.Any("error", err))
	}
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
