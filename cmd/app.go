package cmd

import (
	"fmt"
	"log/slog"

	"github.com/teemow/queryexport/internal/artifact"
	"github.com/teemow/queryexport/internal/config"
	"github.com/teemow/queryexport/internal/database"
	"github.com/teemow/queryexport/internal/export"
	"github.com/teemow/queryexport/internal/instrumentation"
	"github.com/teemow/queryexport/internal/mailer"
	"github.com/teemow/queryexport/internal/resources"
)

// app holds the components shared by the serve and export commands.
type app struct {
	cfg       *config.Config
	workspace *artifact.Workspace
	pipeline  *export.Pipeline
}

// newApp loads and validates the configuration and wires the export
// pipeline. The caller must Close the returned app.
func newApp(configPath string, metrics *instrumentation.Metrics, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}

	executor, err := database.NewExecutor(cfg.Database.ConnString(), logger)
	if err != nil {
		return nil, err
	}

	workspace, err := artifact.NewWorkspace(cfg.Scratch.Dir, cfg.Scratch.RetainArtifacts, logger)
	if err != nil {
		return nil, err
	}

	pipeline := export.NewPipeline(
		executor,
		artifact.NewBuilder(logger),
		mailer.NewAgent(cfg.Mail, logger),
		workspace,
		export.WithLogger(logger),
		export.WithMetrics(metrics),
	)

	logger.Info("export pipeline ready",
		slog.String("db_host", executor.Host()),
		slog.String("smtp_host", cfg.Mail.Host),
		slog.Int("recipients", len(cfg.Mail.Recipients)),
		slog.String("scratch_dir", workspace.Root()),
	)

	return &app{cfg: cfg, workspace: workspace, pipeline: pipeline}, nil
}

// resourceSettings is the non-secret configuration exposed as MCP resources.
func (a *app) resourceSettings() resources.Settings {
	return resources.Settings{
		DatabaseHost:    a.cfg.Database.Host,
		SMTPHost:        a.cfg.Mail.Host,
		SMTPPort:        a.cfg.Mail.Port,
		Recipients:      a.cfg.Mail.Recipients,
		ScratchDir:      a.workspace.Root(),
		RetainArtifacts: a.cfg.Scratch.RetainArtifacts,
	}
}

// Close waits for in-flight exports and removes the scratch directory.
func (a *app) Close() {
	// Workspace.Close logs its own failures.
	_ = a.workspace.Close()
}
