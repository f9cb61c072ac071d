package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// Readiness check names as they appear in responses.
const (
	checkReady    = "ready"
	checkShutdown = "shutdown"
	checkScratch  = "scratch"
)

// HealthChecker serves liveness and readiness probes for the HTTP transports.
// An instance is ready to take exports when it is marked ready, its server
// context is not shutting down and its scratch root accepts new files.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker. It starts ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

func (h *HealthChecker) scratch() Scratch {
	if h.serverContext == nil {
		return nil
	}
	return h.serverContext.Scratch()
}

// checkResult is the outcome of one named readiness check.
type checkResult struct {
	name   string
	status string
	err    error
}

// runChecks evaluates every readiness check in a fixed order.
func (h *HealthChecker) runChecks() []checkResult {
	results := make([]checkResult, 0, 3)

	ready := checkResult{name: checkReady, status: healthStatusOK}
	if !h.ready.Load() {
		ready.status = healthStatusNotReady
	}
	results = append(results, ready)

	shutdown := checkResult{name: checkShutdown, status: healthStatusOK}
	if h.isServerShuttingDown() {
		shutdown.status = healthStatusShuttingDown
	}
	results = append(results, shutdown)

	// Without a workspace (stdio, tests) there is nothing to check.
	if ws := h.scratch(); ws != nil {
		scratch := checkResult{name: checkScratch, status: healthStatusOK}
		if err := ws.CheckWritable(); err != nil {
			scratch.status = healthStatusNotReady
			scratch.err = err
		}
		results = append(results, scratch)
	}

	return results
}

// overallStatus folds check results into one status. Shutdown takes
// precedence over other failures.
func overallStatus(results []checkResult) string {
	status := healthStatusOK
	for _, r := range results {
		switch {
		case r.status == healthStatusShuttingDown:
			return healthStatusShuttingDown
		case r.status != healthStatusOK:
			status = healthStatusNotReady
		}
	}
	return status
}

func statusCode(status string) int {
	if status == healthStatusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ScratchHealth describes the artifact workspace.
type ScratchHealth struct {
	Root         string `json:"root"`
	InFlightRuns int    `json:"in_flight_runs"`
	Writable     bool   `json:"writable"`
	Error        string `json:"error,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	StartedAt       string            `json:"started_at"`
	Checks          map[string]string `json:"checks"`
	Scratch         *ScratchHealth    `json:"scratch,omitempty"`
	Instrumentation map[string]bool   `json:"instrumentation,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// It only reports that the process is serving requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		results := h.runChecks()

		checks := make(map[string]string, len(results))
		for _, r := range results {
			checks[r.name] = r.status
		}

		status := overallStatus(results)
		if status == healthStatusShuttingDown {
			// /readyz reports only ok or not ready; checks carry the reason.
			status = healthStatusNotReady
		}
		writeJSON(w, statusCode(status), HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint. Besides the readiness checks it reports the scratch root and the
// number of exports currently holding a run directory.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		results := h.runChecks()

		response := DetailedHealthResponse{
			Status:          overallStatus(results),
			Uptime:          time.Since(h.startTime).Truncate(time.Second).String(),
			StartedAt:       h.startTime.UTC().Format(time.RFC3339),
			Checks:          make(map[string]string, len(results)),
			Instrumentation: h.instrumentationStatus(),
		}
		for _, r := range results {
			response.Checks[r.name] = r.status
		}

		if ws := h.scratch(); ws != nil {
			scratch := &ScratchHealth{
				Root:         ws.Root(),
				InFlightRuns: ws.InFlight(),
				Writable:     true,
			}
			for _, r := range results {
				if r.name == checkScratch && r.err != nil {
					scratch.Writable = false
					scratch.Error = r.err.Error()
				}
			}
			response.Scratch = scratch
		}

		writeJSON(w, statusCode(response.Status), response)
	})
}

func (h *HealthChecker) instrumentationStatus() map[string]bool {
	if h.serverContext == nil {
		return nil
	}
	return map[string]bool{
		"metrics": h.serverContext.Metrics() != nil,
		"audit":   h.serverContext.AuditLogger() != nil,
	}
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
