// Package improve proposes file-level improvements to a target repository
// by prompting a language model with the file and related knowledge.
package improve

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/fyrsmithlabs/reposmith/internal/secrets"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/reposmith/internal/improve")

// ErrInvalidBudget is returned for a non-positive iteration budget.
var ErrInvalidBudget = errors.New("iteration budget must be positive")

// Generator asks a model for one improvement per candidate file.
// The iteration budget caps the number of model calls.
type Generator struct {
	model   llms.Model
	cfg     Config
	limiter *rate.Limiter
	gates   []Gate
	logger  *logging.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithGates replaces the default safety gates.
func WithGates(gates ...Gate) Option {
	return func(g *Generator) { g.gates = gates }
}

// WithLimiter replaces the model call limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Generator) { g.limiter = l }
}

// NewGenerator returns a Generator calling model.
func NewGenerator(model llms.Model, cfg Config, opts ...Option) (*Generator, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation config: %w", err)
	}
	g := &Generator{
		model:   model,
		cfg:     cfg,
		limiter: newLimiter(cfg.RequestsPerMinute, cfg.Burst),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns improvements in candidate order. Candidates whose
// response cannot be parsed, proposes no change, or fails a safety gate are
// skipped. A model call error ends generation.
func (g *Generator) Generate(ctx context.Context, req pipeline.GenerateRequest) ([]domain.Improvement, error) {
	if req.MaxIterations <= 0 {
		return nil, ErrInvalidBudget
	}

	cands, skipped, err := selectCandidates(ctx, req.TargetPath, req.Files, g.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}
	for _, s := range skipped {
		g.logger.Trace(ctx, "skipping file", zap.String("path", s.Path), zap.String("reason", s.Reason))
	}

	var gates []Gate
	if req.SafetyChecks {
		gates, err = g.gatesFor(req.TargetPath)
		if err != nil {
			return nil, err
		}
	}

	if len(cands) > req.MaxIterations {
		g.logger.Info(ctx, "iteration budget limits candidates",
			zap.Int("candidates", len(cands)),
			zap.Int("budget", req.MaxIterations),
		)
		cands = cands[:req.MaxIterations]
	}

	tags := req.Knowledge.Tags()
	improvements := make([]domain.Improvement, 0, len(cands))
	for _, c := range cands {
		imp, ok, err := g.improve(ctx, c, req.Knowledge, tags, gates)
		if err != nil {
			return nil, err
		}
		if ok {
			improvements = append(improvements, imp)
		}
	}

	g.logger.Info(ctx, "generation finished",
		zap.Int("candidates", len(cands)),
		zap.Int("improvements", len(improvements)),
		zap.Bool("safety_checks", req.SafetyChecks),
	)
	return improvements, nil
}

func (g *Generator) gatesFor(targetPath string) ([]Gate, error) {
	if g.gates != nil {
		return g.gates, nil
	}
	allowlist, err := secrets.LoadAllowlists(targetPath)
	if err != nil {
		return nil, fmt.Errorf("loading allowlist: %w", err)
	}
	scanner, err := secrets.NewScanner(allowlist)
	if err != nil {
		return nil, err
	}
	return DefaultGates(scanner, g.cfg.MaxShrinkRatio), nil
}

// improve makes one model call for c.
func (g *Generator) improve(ctx context.Context, c candidate, k *domain.Knowledge, tags []string, gates []Gate) (domain.Improvement, bool, error) {
	ctx, span := tracer.Start(ctx, "improve.file")
	defer span.End()
	span.SetAttributes(attribute.String("path", c.Path))

	var snippets []domain.Snippet
	if k != nil && g.cfg.SnippetsPerFile > 0 {
		var err error
		snippets, err = k.Retrieve(ctx, retrievalQuery(c), g.cfg.SnippetsPerFile)
		if err != nil {
			g.logger.Warn(ctx, "knowledge retrieval failed", zap.String("path", c.Path), zap.Error(err))
			snippets = nil
		}
	}
	span.SetAttributes(attribute.Int("snippets", len(snippets)))

	prompt, err := buildPrompt(c, snippets, tags)
	if err != nil {
		return domain.Improvement{}, false, fmt.Errorf("building prompt for %s: %w", c.Path, err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Improvement{}, false, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt,
		llms.WithMaxTokens(g.cfg.MaxTokens),
		llms.WithTemperature(g.cfg.Temperature),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Improvement{}, false, fmt.Errorf("generating improvement for %s: %w", c.Path, err)
	}

	p, err := parseProposal(resp)
	if err != nil {
		g.logger.Warn(ctx, "discarding unparseable response", zap.String("path", c.Path), zap.Error(err))
		return domain.Improvement{}, false, nil
	}
	if !p.Changed || p.Content == c.Content {
		g.logger.Debug(ctx, "no change proposed", zap.String("path", c.Path))
		return domain.Improvement{}, false, nil
	}

	var violations []Violation
	for _, gate := range gates {
		violations = append(violations, gate.Check(ctx, c.Path, c.Content, p.Content)...)
	}
	if blocking(violations) {
		g.logger.Warn(ctx, "proposal rejected by safety gates",
			zap.String("path", c.Path),
			zap.Any("violations", violations),
		)
		span.SetAttributes(attribute.Bool("rejected", true))
		return domain.Improvement{}, false, nil
	}
	for _, v := range violations {
		g.logger.Info(ctx, "safety gate warning",
			zap.String("path", c.Path),
			zap.String("gate", v.Gate),
			zap.String("description", v.Description),
		)
	}

	summary := p.Summary
	if summary == "" {
		summary = "Improve " + c.Path
	}
	return domain.Improvement{
		ID:        uuid.NewString(),
		Path:      c.Path,
		Original:  c.Content,
		Updated:   p.Content,
		Summary:   summary,
		Rationale: p.Rationale,
	}, true, nil
}
