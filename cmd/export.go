package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/queryexport/internal/logging"
)

// errExportFailed is returned after a failed report has been printed.
var errExportFailed = errors.New("export failed")

type exportOptions struct {
	sql           string
	subject       string
	configPath    string
	debugMode     bool
	keepArtifacts bool
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a single export from the command line",
		Long: `Run one query, write the rows to an .xlsx file and email it.

The JSON report is printed to stdout. The command exits non-zero when the
report status is "failed". Configuration is read from the same environment
variables as the serve command.`,
		Example: `  queryexport export --sql "SELECT id, email FROM users" --subject "Weekly users"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sql, "sql", "", "SELECT statement to export (required)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Email subject (default: \"Query results — <timestamp>\")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Optional config file; environment variables take precedence")
	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.keepArtifacts, "keep", false, "Keep the scratch directory after the run so file_path stays readable")
	_ = cmd.MarkFlagRequired("sql")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, opts exportOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewLogger(os.Stderr, opts.debugMode)
	slog.SetDefault(logger)

	application, err := newApp(opts.configPath, nil, logger)
	if err != nil {
		return err
	}
	if opts.keepArtifacts {
		logger.Info("keeping scratch directory", slog.String("scratch_dir", application.workspace.Root()))
	} else {
		defer application.Close()
	}

	report := application.pipeline.Execute(ctx, opts.sql, opts.subject)
	out, err := report.JSON()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if !report.Succeeded() {
		return errExportFailed
	}
	return nil
}
