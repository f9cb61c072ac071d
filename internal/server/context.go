package server

import (
	"context"
	"errors"
	"sync"

	"github.com/teemow/queryexport/internal/export"
	"github.com/teemow/queryexport/internal/instrumentation"
)

// Exporter runs one export and describes the outcome.
type Exporter interface {
	Execute(ctx context.Context, sql, subject string) export.Report
}

// Scratch is the artifact workspace as seen by health checks.
type Scratch interface {
	Root() string
	InFlight() int
	CheckWritable() error
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	exporter    Exporter
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	scratch     Scratch
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, exporter Exporter) (*ServerContext, error) {
	if exporter == nil {
		return nil, errors.New("exporter is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		exporter: exporter,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Exporter returns the export pipeline
func (sc *ServerContext) Exporter() Exporter {
	return sc.exporter
}

// Metrics returns the metrics recorder, or nil if instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil if audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = al
}

// Scratch returns the artifact workspace, or nil if none was set.
func (sc *ServerContext) Scratch() Scratch {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.scratch
}

// SetScratch sets the artifact workspace reported by health checks.
func (sc *ServerContext) SetScratch(s Scratch) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.scratch = s
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
