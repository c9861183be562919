package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/rag"
	"github.com/docweaver/docweaver-go/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Section generation is slow; the default is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// Registry receives the server's Prometheus metrics. If nil, a private
	// registry is created and /metrics serves only this server's metrics.
	Registry *prometheus.Registry
}

// sectionRunner generates one documentation section.
// *pipeline.Pipeline satisfies it; tests inject a fake.
type sectionRunner interface {
	GenerateSection(ctx context.Context, spec *rag.SectionSpec) (*composer.SectionOutput, error)
}

// Server exposes section generation and run records over HTTP.
type Server struct {
	// runner executes section generation requests.
	runner sectionRunner
	// runs backs GET /api/sections. May be nil (endpoint returns empty).
	runs store.RunStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// sectionRequest is the JSON body for POST /api/sections.
type sectionRequest struct {
	// Section names a stock section ("Objective & Scope", "system-architecture", …).
	Section string `json:"section"`
}

// sectionResponse is the JSON response for POST /api/sections.
type sectionResponse struct {
	// Section is the resolved section name.
	Section string `json:"section"`
	// OutPath is the file the section was written to.
	OutPath string `json:"outPath"`
	// Status is "ok" or "flagged".
	Status string `json:"status"`
	// Violations is the number of citation violations found, if any.
	Violations int `json:"violations,omitempty"`
}

// runRecord is one entry in the GET /api/sections response.
type runRecord struct {
	// Section is the section name.
	Section string `json:"section"`
	// OutPath is the generated file, empty on failure.
	OutPath string `json:"outPath,omitempty"`
	// Status is "ok", "flagged", or "failed".
	Status string `json:"status"`
	// Reason holds the failure or violation summary, empty when ok.
	Reason string `json:"reason,omitempty"`
	// CreatedAt is the RFC 3339 record timestamp.
	CreatedAt string `json:"createdAt"`
}
