// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the queryexport MCP server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Export Pipeline Metrics:
//   - export_runs_total: Counter of pipeline runs by outcome
//     (success, rejected, query_error, empty_result, artifact_error)
//   - export_stage_duration_seconds: Histogram of stage durations by stage and status
//   - export_rows_total: Counter of rows written to artifacts
//   - email_deliveries_total: Counter of delivery attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and for each
// pipeline stage (export.<stage>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: queryexport)
package instrumentation
