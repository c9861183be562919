package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/rag"
	"github.com/docweaver/docweaver-go/internal/store"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeRunner is a test double for the sectionRunner interface.
type fakeRunner struct {
	// out is returned on success; err takes precedence when set.
	out *composer.SectionOutput
	err error
	// lastSpec records the spec passed to GenerateSection.
	lastSpec *rag.SectionSpec
}

func (f *fakeRunner) GenerateSection(_ context.Context, spec *rag.SectionSpec) (*composer.SectionOutput, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

// fakeRunStore is an in-memory RunStore for handler tests.
type fakeRunStore struct {
	runs []store.SectionRun
	err  error
}

func (f *fakeRunStore) Record(_ context.Context, run store.SectionRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRunStore) Recent(_ context.Context, n int) ([]store.SectionRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n > len(f.runs) {
		n = len(f.runs)
	}
	return f.runs[:n], nil
}

func (f *fakeRunStore) Close() error { return nil }

// newTestServer builds a *Server with a fake runner, no run store, and a
// private metrics registry so parallel tests never collide.
func newTestServer(t *testing.T) (*Server, *fakeRunner) {
	t.Helper()
	runner := &fakeRunner{
		out: &composer.SectionOutput{
			Name:    "Objective & Scope",
			Body:    "body",
			OutPath: "docs/objective-scope.md",
		},
	}
	s, err := New(runner, nil, &Config{
		Logger:   slog.Default(),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s, runner
}

func postSection(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sections", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	s.handleGenerateSection(w, req)
	return w
}

// ---------------------------------------------------------------------------
// POST /api/sections
// ---------------------------------------------------------------------------

// TestHandleGenerateSection_OK verifies a successful generation round trip:
// the stock section resolves, the runner is invoked, and the JSON response
// carries the output path with status "ok".
func TestHandleGenerateSection_OK(t *testing.T) {
	t.Parallel()

	s, runner := newTestServer(t)
	w := postSection(t, s, `{"section":"Objective & Scope"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if runner.lastSpec == nil || runner.lastSpec.Name != "Objective & Scope" {
		t.Fatalf("runner received spec %+v", runner.lastSpec)
	}

	var resp sectionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status: expected %q, got %q", "ok", resp.Status)
	}
	if resp.OutPath != "docs/objective-scope.md" {
		t.Errorf("outPath: got %q", resp.OutPath)
	}
	if resp.Violations != 0 {
		t.Errorf("violations: expected 0, got %d", resp.Violations)
	}
}

// TestHandleGenerateSection_SlugResolves verifies the section field also
// accepts the slug form of a stock section name.
func TestHandleGenerateSection_SlugResolves(t *testing.T) {
	t.Parallel()

	s, runner := newTestServer(t)
	w := postSection(t, s, `{"section":"system-architecture"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if runner.lastSpec.Name != "System Architecture" {
		t.Errorf("resolved spec name: got %q", runner.lastSpec.Name)
	}
}

// TestHandleGenerateSection_Flagged verifies that a citation-flagged output
// still returns 200 but with status "flagged" and the violation count.
func TestHandleGenerateSection_Flagged(t *testing.T) {
	t.Parallel()

	s, runner := newTestServer(t)
	runner.out = &composer.SectionOutput{
		Name:       "API Reference",
		OutPath:    "docs/api-reference.md",
		Violations: []composer.Violation{{Line: 3, Text: "uncited"}},
	}

	w := postSection(t, s, `{"section":"API Reference"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	var resp sectionResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "flagged" {
		t.Errorf("status: expected %q, got %q", "flagged", resp.Status)
	}
	if resp.Violations != 1 {
		t.Errorf("violations: expected 1, got %d", resp.Violations)
	}
}

// TestHandleGenerateSection_UnknownSection verifies that a section name
// outside the stock set returns 404 without invoking the runner.
func TestHandleGenerateSection_UnknownSection(t *testing.T) {
	t.Parallel()

	s, runner := newTestServer(t)
	w := postSection(t, s, `{"section":"Release Notes"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d — body: %s", w.Code, w.Body.String())
	}
	if runner.lastSpec != nil {
		t.Error("runner must not be invoked for unknown sections")
	}
}

// TestHandleGenerateSection_BadBody verifies malformed and empty request
// bodies return 400.
func TestHandleGenerateSection_BadBody(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	for _, body := range []string{`{not json`, `{}`, `{"section":""}`} {
		w := postSection(t, s, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

// TestHandleGenerateSection_RunnerError verifies generation failures map to
// 500 without leaking internal error detail.
func TestHandleGenerateSection_RunnerError(t *testing.T) {
	t.Parallel()

	s, runner := newTestServer(t)
	runner.err = errors.New("model unavailable: connection refused to 10.0.0.5")

	w := postSection(t, s, `{"section":"Objective & Scope"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d — body: %s", w.Code, w.Body.String())
	}
	if bytes.Contains(w.Body.Bytes(), []byte("10.0.0.5")) {
		t.Error("internal error detail leaked into the response body")
	}
}

// ---------------------------------------------------------------------------
// GET /api/sections
// ---------------------------------------------------------------------------

// TestHandleListSections_NoStore verifies the endpoint returns an empty JSON
// array (not null) when no run store is configured.
func TestHandleListSections_NoStore(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
	w := httptest.NewRecorder()

	s.handleListSections(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}
	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

// TestHandleListSections_ReturnsRecords verifies stored runs are returned as
// JSON records with RFC 3339 timestamps.
func TestHandleListSections_ReturnsRecords(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.runs = &fakeRunStore{runs: []store.SectionRun{
		{Section: "API Reference", Status: store.StatusFailed, Reason: "model unavailable", CreatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)},
		{Section: "Objective & Scope", OutPath: "docs/objective-scope.md", Status: store.StatusOK, CreatedAt: time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
	w := httptest.NewRecorder()
	s.handleListSections(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d — body: %s", w.Code, w.Body.String())
	}

	var records []runRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Section != "API Reference" || records[0].Status != "failed" {
		t.Errorf("first record: %+v", records[0])
	}
	if records[0].Reason != "model unavailable" {
		t.Errorf("reason: got %q", records[0].Reason)
	}
	if records[0].CreatedAt != "2026-08-24T12:00:00Z" {
		t.Errorf("createdAt: got %q", records[0].CreatedAt)
	}
}

// TestHandleListSections_Limit verifies the ?limit query caps the result and
// rejects non-positive values.
func TestHandleListSections_Limit(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	fs := &fakeRunStore{}
	for i := 0; i < 5; i++ {
		fs.runs = append(fs.runs, store.SectionRun{Section: "x", Status: store.StatusOK, CreatedAt: time.Now()})
	}
	s.runs = fs

	req := httptest.NewRequest(http.MethodGet, "/api/sections?limit=2", nil)
	w := httptest.NewRecorder()
	s.handleListSections(w, req)

	var records []runRecord
	if err := json.NewDecoder(w.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	for _, bad := range []string{"0", "-1", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/sections?limit="+bad, nil)
		w := httptest.NewRecorder()
		s.handleListSections(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", bad, w.Code)
		}
	}
}

// TestHandleListSections_StoreError verifies a failing run store maps to 500.
func TestHandleListSections_StoreError(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.runs = &fakeRunStore{err: errors.New("database is locked")}

	req := httptest.NewRequest(http.MethodGet, "/api/sections", nil)
	w := httptest.NewRecorder()
	s.handleListSections(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d — body: %s", w.Code, w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

// TestRouting_MethodsEnforced verifies the mux rejects wrong methods on the
// section endpoints.
func TestRouting_MethodsEnforced(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	h := s.httpServer.Handler

	req := httptest.NewRequest(http.MethodDelete, "/api/sections", nil)
	req.RemoteAddr = "127.0.0.1:1111"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/sections: expected 405, got %d", w.Code)
	}
}
