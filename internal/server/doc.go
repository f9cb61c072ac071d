// Package server provides the MCP server context and the HTTP servers that
// expose the export tool and operational endpoints.
//
// # Key Components
//
// ServerContext carries the export pipeline and the optional instrumentation
// (metrics recorder, audit logger) that tool handlers use. It is created
// once per process and shut down with it.
//
// HTTPServer serves the MCP server over the streamable-http or sse
// transports, together with the /healthz, /readyz and /healthz/detailed
// probe endpoints. Every request is measured by the HTTP metrics middleware.
//
// MetricsServer exposes Prometheus metrics on a dedicated port, separate
// from MCP traffic.
package server
