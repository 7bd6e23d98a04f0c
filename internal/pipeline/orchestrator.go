package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/reposmith/internal/pipeline"

// RequiredCredentials are the environment variables a run cannot start without.
var RequiredCredentials = []string{config.EnvAnthropicAPIKey, config.EnvGitHubToken}

// CommitMessage is the commit subject for n applied improvements.
func CommitMessage(n int) string {
	return fmt.Sprintf("reposmith: apply %d improvement(s)", n)
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	progress ProgressFunc
	metrics  *Metrics
	tracer   trace.Tracer
	lookup   config.LookupFunc
	now      func() time.Time
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress sets the stage progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithMetrics sets the metric set. Defaults to NewMetrics().
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer. Defaults to the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithCredentialLookup replaces os.LookupEnv for the credential check.
func WithCredentialLookup(fn config.LookupFunc) Option {
	return func(o *options) { o.lookup = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Orchestrator sequences one run over its collaborators.
type Orchestrator struct {
	req      Request
	collab   Collaborators
	logger   *logging.Logger
	progress ProgressFunc
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// New validates the request and credentials, then instantiates collaborators
// through build. Every failure is a *ConfigError and happens before any
// collaborator is created.
func New(req Request, build CollaboratorsFunc, opts ...Option) (*Orchestrator, error) {
	o := options{
		lookup: os.LookupEnv,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if req.target == "" {
		return nil, &ConfigError{Field: "target", Err: ErrEmptyTarget}
	}
	if err := config.RequireCredentials(o.lookup, RequiredCredentials...); err != nil {
		return nil, &ConfigError{Field: "credentials", Err: err}
	}
	if build == nil {
		return nil, &ConfigError{Field: "collaborators", Err: errors.New("no collaborator constructor")}
	}

	collab, err := build()
	if err != nil {
		return nil, &ConfigError{Field: "collaborators", Err: err}
	}
	if err := collab.validate(); err != nil {
		return nil, &ConfigError{Field: "collaborators", Err: err}
	}

	if o.logger == nil {
		o.logger = logging.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	return &Orchestrator{
		req:      req,
		collab:   collab,
		logger:   o.logger.Named("pipeline"),
		progress: o.progress,
		metrics:  o.metrics,
		tracer:   o.tracer,
		now:      o.now,
	}, nil
}

// Run executes the pipeline once and always returns a Result.
// Every path obtained from cloning is handed to Cleanup exactly once before
// Run returns, whichever stage ended the run.
func (o *Orchestrator) Run(ctx context.Context) (res Result) {
	rec := &runRecord{
		id:      uuid.NewString(),
		total:   o.req.Repositories(),
		files:   o.req.FilesTargeted(),
		started: o.now(),
		now:     o.now,
	}

	ctx = logging.WithRunID(ctx, rec.id)
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", rec.id),
		attribute.Int("repositories", rec.total),
		attribute.String("files_targeted", rec.files.String()),
		attribute.String("branch", o.req.Branch()),
	))
	defer span.End()

	o.logger.Info(ctx, "run started",
		zap.String("target", o.req.Target()),
		zap.Int("sources", len(o.req.Sources())),
		zap.Stringer("files_targeted", rec.files),
		zap.Int("max_iterations", o.req.MaxIterations()),
		zap.Bool("safety_checks", o.req.SafetyChecks()),
	)

	var paths []string
	defer func() {
		o.cleanup(ctx, rec.id, paths)

		o.metrics.observeRun(res)
		span.SetAttributes(
			attribute.String("outcome", string(res.Outcome)),
			attribute.Int("improvements.generated", res.ImprovementsGenerated),
			attribute.Int("improvements.applied", res.ImprovementsApplied),
		)
		if !res.Success() {
			span.SetStatus(codes.Error, res.Error)
			o.logger.Error(ctx, "run failed",
				zap.String("outcome", string(res.Outcome)),
				zap.String("error", res.Error),
				zap.Duration("duration", res.Duration),
			)
			return
		}
		o.logger.Info(ctx, "run finished",
			zap.String("outcome", string(res.Outcome)),
			zap.Int("improvements_generated", res.ImprovementsGenerated),
			zap.Int("improvements_applied", res.ImprovementsApplied),
			zap.Duration("duration", res.Duration),
		)
	}()

	return o.execute(ctx, rec, &paths)
}

// execute runs the stages in order. paths is updated as soon as the clone
// stage returns so the deferred cleanup sees it on every exit.
func (o *Orchestrator) execute(ctx context.Context, rec *runRecord, paths *[]string) Result {
	cloneReq := CloneRequest{Sources: o.req.Sources(), Target: o.req.Target()}

	var (
		set  CloneSet
		ierr *IntegrityError
	)
	err := o.stage(ctx, rec.id, StageClone, func(ctx context.Context) error {
		var err error
		set, err = o.collab.Repositories.Clone(ctx, cloneReq)
		if err != nil {
			return err
		}
		if len(set.Sources) != len(cloneReq.Sources) || set.Target == "" {
			ierr = &IntegrityError{Requested: rec.total, Returned: len(set.Paths())}
			return ierr
		}
		return nil
	})
	*paths = set.Paths()
	if ierr != nil {
		return rec.integrityFailure(ierr)
	}
	if err != nil {
		return rec.operationalFailure(&OperationalError{Stage: StageClone, Err: err}, 0)
	}
	rec.targetPath = set.Target

	var knowledge *domain.Knowledge
	if len(set.Sources) > 0 {
		err = o.stage(ctx, rec.id, StageSynthesize, func(ctx context.Context) error {
			var err error
			knowledge, err = o.collab.Knowledge.Synthesize(ctx, set.Sources)
			return err
		})
		if err != nil {
			return rec.operationalFailure(&OperationalError{Stage: StageSynthesize, Err: err}, 0)
		}
	} else {
		o.report(rec.id, StageSynthesize, StatusSkipped, "no source repositories")
	}

	var improvements []domain.Improvement
	err = o.stage(ctx, rec.id, StageGenerate, func(ctx context.Context) error {
		var err error
		improvements, err = o.collab.Improvements.Generate(ctx, GenerateRequest{
			Knowledge:     knowledge,
			TargetPath:    set.Target,
			Files:         o.req.Files(),
			MaxIterations: o.req.MaxIterations(),
			SafetyChecks:  o.req.SafetyChecks(),
		})
		return err
	})
	if err != nil {
		return rec.operationalFailure(&OperationalError{Stage: StageGenerate, Err: err}, 0)
	}
	if len(improvements) == 0 {
		o.report(rec.id, StageApply, StatusSkipped, "no improvements generated")
		return rec.noChanges()
	}

	var applied []domain.Improvement
	err = o.stage(ctx, rec.id, StageApply, func(ctx context.Context) error {
		var err error
		applied, err = o.collab.Repositories.Apply(ctx, ApplyRequest{
			TargetPath:   set.Target,
			Improvements: improvements,
			Branch:       o.req.Branch(),
		})
		return err
	})
	if err != nil {
		return rec.operationalFailure(&OperationalError{Stage: StageApply, Err: err}, len(improvements))
	}

	return rec.applied(len(improvements), len(applied), o.req.Branch())
}

// cleanup removes the clone paths. It runs detached from ctx cancellation,
// and its failure never changes the run's result.
func (o *Orchestrator) cleanup(ctx context.Context, runID string, paths []string) {
	ctx = context.WithoutCancel(ctx)
	err := o.stage(ctx, runID, StageCleanup, func(ctx context.Context) error {
		return o.collab.Repositories.Cleanup(ctx, paths)
	})
	if err != nil {
		o.metrics.cleanupFailed()
		o.logger.Warn(ctx, "cleanup failed",
			zap.Error(err),
			zap.Strings("paths", paths),
		)
	}
}

// stage invokes fn once inside a span, reporting progress and recovering
// a panic into an error.
func (o *Orchestrator) stage(ctx context.Context, runID string, stage Stage, fn func(context.Context) error) (err error) {
	ctx = logging.WithStage(ctx, string(stage))
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(stage))
	start := o.now()
	o.report(runID, stage, StatusStarted, "")
	o.logger.Debug(ctx, "stage started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
		o.metrics.observeStage(stage, o.now().Sub(start), err != nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			o.report(runID, stage, StatusFailed, err.Error())
			if stage != StageCleanup {
				o.logger.Error(ctx, "stage failed", zap.Error(err))
			}
		} else {
			o.report(runID, stage, StatusCompleted, "")
			o.logger.Debug(ctx, "stage completed", zap.Duration("elapsed", o.now().Sub(start)))
		}
		span.End()
	}()

	return fn(ctx)
}

func (o *Orchestrator) report(runID string, stage Stage, status StageStatus, msg string) {
	if o.progress == nil {
		return
	}
	o.progress(StageProgress{RunID: runID, Stage: stage, Status: status, Message: msg})
}
