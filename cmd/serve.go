package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/queryexport/internal/instrumentation"
	"github.com/teemow/queryexport/internal/logging"
	"github.com/teemow/queryexport/internal/resources"
	"github.com/teemow/queryexport/internal/server"
	"github.com/teemow/queryexport/internal/tools/export_tools"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// serveOptions collects the serve command flags.
type serveOptions struct {
	transport  string
	httpAddr   string
	debugMode  bool
	configPath string
	metrics    MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the
export_query_result_to_excel_and_email tool.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp
  - sse: Server-Sent Events transport on /sse and /message

Configuration is read from the environment:
  Database: RDS_HOST, RDS_PORT, RDS_USER, RDS_PASSWORD, RDS_DATABASE,
            RDS_SSLMODE, RDS_CONNECT_TIMEOUT
  Mail:     MAIL_SENDER, MAIL_RECIPIENTS, MAIL_USERNAME, MAIL_PASSWORD,
            MAIL_SMTP_HOST, MAIL_SMTP_PORT, MAIL_TIMEOUT
  Scratch:  SCRATCH_DIR, SCRATCH_RETAIN_ARTIFACTS

Use --config to layer the environment over a YAML, JSON or TOML file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-enabled") {
				if v := os.Getenv("METRICS_ENABLED"); v != "" {
					opts.metrics.Enabled = v == "true"
				}
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metrics.Addr = addr
				}
			}
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio, streamable-http or sse")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http and sse transports)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Optional config file; environment variables take precedence")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(opts serveOptions) error {
	switch opts.transport {
	case "stdio", server.TransportStreamableHTTP, server.TransportSSE:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http, sse)", opts.transport)
	}

	// stdout carries the stdio protocol, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, opts.debugMode)
	slog.SetDefault(logger)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.transport != "stdio" && opts.metrics.Enabled && provider.PrometheusEnabled() {
		metricsServer, err = startMetricsServer(opts.metrics, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	application, err := newApp(opts.configPath, provider.Metrics(), logger)
	if err != nil {
		return err
	}
	// Runs after the server context shutdown below, so in-flight exports finish first.
	defer application.Close()

	serverContext, err := server.NewServerContext(shutdownCtx, application.pipeline)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	serverContext.SetScratch(application.workspace)

	// Set metrics and audit logger on server context for tool instrumentation
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		if instrConfig.AuditLogging.Enabled {
			serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging))
		}
	}

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}
	if err := resources.RegisterExportResources(mcpSrv, application.resourceSettings()); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	default:
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, opts, provider.Metrics(), logger)
	}
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("queryexport", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
	)
}

func startMetricsServer(cfg MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    cfg.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Export",
			register: func() error {
				return export_tools.RegisterExportTools(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, opts serveOptions, metrics *instrumentation.Metrics, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, opts.transport, sc, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	endpoints := []string{"/mcp"}
	if opts.transport == server.TransportSSE {
		endpoints = []string{"/sse", "/message"}
	}
	logger.Info("MCP server starting",
		slog.String("transport", opts.transport),
		slog.String("addr", opts.httpAddr),
		slog.String("endpoints", strings.Join(endpoints, ", ")),
		slog.String("health", "/healthz, /readyz, /healthz/detailed"),
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
