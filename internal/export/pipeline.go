package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/queryexport/internal/artifact"
	"github.com/teemow/queryexport/internal/database"
	"github.com/teemow/queryexport/internal/guard"
	"github.com/teemow/queryexport/internal/instrumentation"
	"github.com/teemow/queryexport/internal/logging"
	"github.com/teemow/queryexport/internal/mailer"
)

// Builder writes a result to a file in dir.
type Builder interface {
	Build(result *database.Result, dir string, ts time.Time) (*artifact.Artifact, error)
}

// Scratch hands out per-run directories.
type Scratch interface {
	Acquire() (*artifact.RunDir, error)
}

// Pipeline wires the guard, executor, artifact builder and delivery agent.
type Pipeline struct {
	runner    database.Runner
	builder   Builder
	deliverer mailer.Deliverer
	scratch   Scratch

	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for run logs.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. A nil recorder disables metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline returns a Pipeline over the given stages.
func NewPipeline(runner database.Runner, builder Builder, deliverer mailer.Deliverer, scratch Scratch, opts ...Option) *Pipeline {
	p := &Pipeline{
		runner:    runner,
		builder:   builder,
		deliverer: deliverer,
		scratch:   scratch,
		logger:    slog.Default(),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.WithService(p.logger, "export")
	return p
}

// stageResult is the outcome of one failed stage.
type stageResult struct {
	stage   string
	outcome string
	err     error
}

func (r *stageResult) message() string {
	var policy *guard.PolicyError
	if errors.As(r.err, &policy) {
		return policy.Reason
	}
	return logging.Mask(r.err.Error())
}

// Execute runs sql through every stage and returns the run's Report.
// It never returns an error; failures are described by the Report.
func (p *Pipeline) Execute(ctx context.Context, sql, subject string) Report {
	runID := p.newRunID()
	logger := logging.WithRunID(p.logger, runID)
	logger.Info("export started", slog.String("sql_verb", instrumentation.SQLVerb(sql)))

	if err := p.stage(ctx, runID, instrumentation.StageGuard, func(context.Context) error {
		return guard.Validate(sql, guard.ActionSelect)
	}); err != nil {
		return p.fail(ctx, logger, runID, &stageResult{stage: instrumentation.StageGuard, outcome: instrumentation.OutcomeRejected, err: err})
	}

	dir, err := p.scratch.Acquire()
	if err != nil {
		return p.fail(ctx, logger, runID, &stageResult{
			stage:   instrumentation.StageArtifact,
			outcome: instrumentation.OutcomeArtifactError,
			err:     fmt.Errorf("scratch storage unavailable: %w", err),
		})
	}
	defer dir.Release()

	var result *database.Result
	if err := p.stage(ctx, runID, instrumentation.StageQuery, func(ctx context.Context) error {
		var err error
		result, err = p.runner.Run(ctx, sql)
		return err
	}); err != nil {
		return p.fail(ctx, logger, runID, &stageResult{stage: instrumentation.StageQuery, outcome: instrumentation.OutcomeQueryError, err: err})
	}

	if result.Empty() {
		p.metrics.RecordExportRun(ctx, instrumentation.OutcomeEmptyResult)
		logger.Info("export finished without artifact", slog.String("reason", artifact.ErrEmptyResult.Error()))
		return Report{
			Status:  StatusFailed,
			Message: artifact.ErrEmptyResult.Error(),
			RunID:   runID,
		}
	}

	var art *artifact.Artifact
	if err := p.stage(ctx, runID, instrumentation.StageArtifact, func(context.Context) error {
		var err error
		art, err = p.builder.Build(result, dir.Path, p.now())
		return err
	}); err != nil {
		if errors.Is(err, artifact.ErrEmptyResult) {
			p.metrics.RecordExportRun(ctx, instrumentation.OutcomeEmptyResult)
			return Report{Status: StatusFailed, Message: err.Error(), RunID: runID}
		}
		return p.fail(ctx, logger, runID, &stageResult{stage: instrumentation.StageArtifact, outcome: instrumentation.OutcomeArtifactError, err: err})
	}
	p.metrics.RecordRowsExported(ctx, art.RowCount)

	sent := p.deliver(ctx, runID, art, subject)

	p.metrics.RecordExportRun(ctx, instrumentation.OutcomeSuccess)
	logger.Info("export finished",
		logging.Status(StatusSuccess),
		slog.String("file", art.Path),
		slog.Int("rows", art.RowCount),
		slog.Bool("email_sent", sent),
	)

	path := art.Path
	return Report{
		Status:    StatusSuccess,
		Message:   successMessage(p.deliverer.Recipients(), sent),
		FilePath:  &path,
		EmailSent: sent,
		RowCount:  art.RowCount,
		Timestamp: art.Timestamp,
		RunID:     runID,
	}
}

// deliver runs the delivery stage. Its result never fails the run.
func (p *Pipeline) deliver(ctx context.Context, runID string, art *artifact.Artifact, subject string) bool {
	ctx, span := instrumentation.StartStageSpan(ctx, instrumentation.StageDelivery, runID)
	defer span.End()

	start := time.Now()
	sent := p.deliverer.Send(ctx, art, subject)

	status := instrumentation.StatusSuccess
	if sent {
		instrumentation.SetSpanSuccess(span)
	} else {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, errors.New("email delivery failed"))
	}
	span.SetAttributes(attribute.Bool(instrumentation.SpanAttrEmailSent, sent))

	p.metrics.RecordStage(ctx, instrumentation.StageDelivery, status, time.Since(start))
	recipients := p.deliverer.Recipients()
	for _, r := range recipients {
		p.metrics.RecordEmailDelivery(ctx, sent, r)
	}
	return sent
}

// stage runs fn inside a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, runID, name string, fn func(context.Context) error) error {
	ctx, span := instrumentation.StartStageSpan(ctx, name, runID)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	p.metrics.RecordStage(ctx, name, status, time.Since(start))
	return err
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, runID string, res *stageResult) Report {
	p.metrics.RecordExportRun(ctx, res.outcome)

	msg := res.message()
	logger.Warn("export failed",
		logging.Stage(res.stage),
		slog.String("outcome", res.outcome),
		logging.Err(res.err),
	)

	return Report{
		Status:  StatusFailed,
		Message: msg,
		Error:   msg,
		RunID:   runID,
	}
}

func successMessage(recipients []string, sent bool) string {
	to := strings.Join(recipients, ", ")
	if sent {
		return fmt.Sprintf("Query succeeded; spreadsheet generated and sent to %s.", to)
	}
	return fmt.Sprintf("Query succeeded; spreadsheet generated but email delivery to %s failed.", to)
}
