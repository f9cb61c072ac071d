package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/queryexport/internal/instrumentation"
)

// Transport names accepted by NewHTTPServer.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const (
	// DefaultHTTPAddr is the default listen address for HTTP transports.
	DefaultHTTPAddr = ":8001"

	// DefaultHTTPWriteTimeout bounds a single streamable-http response.
	// Export runs include a database query and an SMTP round trip.
	DefaultHTTPWriteTimeout = 5 * time.Minute
)

// HTTPServer serves an MCP server over an HTTP-based transport.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	httpServer *http.Server
	serverType string
	logger     *slog.Logger
}

// NewHTTPServer creates an HTTP server for mcpServer using serverType
// ("sse" or "streamable-http"). metrics may be nil.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, serverType string, sc *ServerContext, metrics *instrumentation.Metrics, logger *slog.Logger) (*HTTPServer, error) {
	if serverType != TransportSSE && serverType != TransportStreamableHTTP {
		return nil, fmt.Errorf("unsupported server type: %s", serverType)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPServer{
		mcpServer:  mcpServer,
		health:     NewHealthChecker(sc),
		metrics:    metrics,
		serverType: serverType,
		logger:     logger,
	}, nil
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler builds the request multiplexer with MCP and health endpoints.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	switch s.serverType {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", sseServer)
		mux.Handle("/message", sseServer)

	case TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", httpServer)
	}

	return MetricsMiddleware(s.metrics)(mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start(addr string) error {
	if addr == "" {
		addr = DefaultHTTPAddr
	}

	writeTimeout := DefaultHTTPWriteTimeout
	if s.serverType == TransportSSE {
		// SSE streams stay open for the whole session.
		writeTimeout = 0
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting MCP HTTP server", slog.String("addr", addr), slog.String("transport", s.serverType))
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and gracefully stops it.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// MetricsMiddleware records method, path, status and duration of every request.
// A nil recorder returns the handler unchanged.
func MetricsMiddleware(m *instrumentation.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
