package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/fyrsmithlabs/reposmith/internal/gitrepo"
	"github.com/fyrsmithlabs/reposmith/internal/improve"
	"github.com/fyrsmithlabs/reposmith/internal/knowledge"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/fyrsmithlabs/reposmith/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type runFlags struct {
	target         string
	sources        []string
	files          []string
	branch         string
	maxIterations  int
	noSafetyChecks bool
	configPath     string
	json           bool
	metricsFile    string
}

func (f runFlags) requestOptions() []pipeline.RequestOption {
	opts := []pipeline.RequestOption{
		pipeline.WithBranch(f.branch),
		pipeline.WithMaxIterations(f.maxIterations),
	}
	if len(f.files) > 0 {
		opts = append(opts, pipeline.WithFiles(f.files...))
	}
	if f.noSafetyChecks {
		opts = append(opts, pipeline.WithoutSafetyChecks())
	}
	return opts
}

// collaboratorFactory returns the constructor New calls once the request
// and credentials are valid.
type collaboratorFactory func(ctx context.Context, cfg *config.Config, logger *logging.Logger) pipeline.CollaboratorsFunc

type app struct {
	stdout        io.Writer
	stderr        io.Writer
	lookup        config.LookupFunc
	collaborators collaboratorFactory
	exitCode      int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:        stdout,
		stderr:        stderr,
		lookup:        os.LookupEnv,
		collaborators: productionCollaborators,
	}
}

// run executes one pipeline run and records the exit code. Failures are
// reported through the Result, so run only returns nil.
func (a *app) run(ctx context.Context, f runFlags) error {
	metricsFile := f.metricsFile

	cfg, err := config.LoadWithFile(f.configPath)
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(&pipeline.ConfigError{Field: "config", Err: err}, nil), f.json)
		return nil
	}
	if metricsFile == "" {
		metricsFile = cfg.Metrics.Textfile
	}

	lcfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(&pipeline.ConfigError{Field: "logging", Err: err}, nil), f.json)
		return nil
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(&pipeline.ConfigError{Field: "telemetry", Err: err}, nil), f.json)
		return nil
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(a.stderr, "Warning: telemetry shutdown: %v\n", err)
		}
	}()

	logger, err := logging.Init(lcfg, tel.LoggerProvider())
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(&pipeline.ConfigError{Field: "logging", Err: err}, nil), f.json)
		return nil
	}
	defer func() { _ = logger.Sync() }()
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "tracing disabled", zap.Error(h.Err))
	}
	logger.Debug(ctx, "configuration loaded",
		zap.String("model", cfg.Generation.Model),
		logging.Secret("anthropic_api_key", cfg.Credentials.AnthropicAPIKey),
		logging.Secret("github_token", cfg.Credentials.GitHubToken),
	)

	req, err := pipeline.NewRequest(f.target, f.sources, f.requestOptions()...)
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(err, nil), f.json)
		return nil
	}

	reg := prometheus.NewRegistry()
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithTracer(tel.Tracer("github.com/fyrsmithlabs/reposmith")),
		pipeline.WithMetrics(pipeline.NewMetricsWithRegistry(reg)),
		pipeline.WithCredentialLookup(a.lookup),
	}
	if !f.json {
		opts = append(opts, pipeline.WithProgress(progressPrinter(a.stderr)))
	}

	orch, err := pipeline.New(req, a.collaborators(ctx, cfg, logger), opts...)
	if err != nil {
		a.finish(pipeline.ConfigurationFailure(err, &req), f.json)
		return nil
	}

	res := orch.Run(ctx)
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			logger.Warn(ctx, "writing metrics textfile failed", zap.String("path", metricsFile), zap.Error(err))
		}
	}
	a.finish(res, f.json)
	return nil
}

// finish prints res and sets the exit code.
func (a *app) finish(res pipeline.Result, asJSON bool) {
	if res.Success() {
		a.exitCode = 0
	} else {
		a.exitCode = 1
	}

	if asJSON {
		if err := writeJSON(a.stdout, res); err != nil {
			fmt.Fprintf(a.stderr, "Error: encoding result: %v\n", err)
			a.exitCode = 1
		}
		return
	}
	if res.Success() {
		renderSummary(a.stdout, res)
		return
	}
	renderFailure(a.stderr, res)
}

func productionCollaborators(ctx context.Context, cfg *config.Config, logger *logging.Logger) pipeline.CollaboratorsFunc {
	return func() (pipeline.Collaborators, error) {
		repos, err := gitrepo.New(ctx,
			gitrepo.ConfigFrom(cfg.Git, cfg.GitHub),
			cfg.Credentials.GitHubToken,
			gitrepo.WithLogger(logger.Named("gitrepo")),
		)
		if err != nil {
			return pipeline.Collaborators{}, fmt.Errorf("repository access: %w", err)
		}

		synth, err := knowledge.NewSynthesizer(
			knowledge.FromAppConfig(cfg.Knowledge),
			knowledge.WithLogger(logger.Named("knowledge")),
		)
		if err != nil {
			return pipeline.Collaborators{}, fmt.Errorf("knowledge synthesizer: %w", err)
		}

		model, err := improve.NewAnthropicModel(cfg.Credentials.AnthropicAPIKey, cfg.Generation.Model)
		if err != nil {
			return pipeline.Collaborators{}, fmt.Errorf("language model: %w", err)
		}
		gen, err := improve.NewGenerator(model,
			improve.FromAppConfig(cfg.Generation),
			improve.WithLogger(logger.Named("improve")),
		)
		if err != nil {
			return pipeline.Collaborators{}, fmt.Errorf("improvement generator: %w", err)
		}

		return pipeline.Collaborators{
			Repositories: repos,
			Knowledge:    synth,
			Improvements: gen,
		}, nil
	}
}
