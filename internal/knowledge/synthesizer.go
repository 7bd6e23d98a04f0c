// Package knowledge turns cloned source repositories into a searchable
// in-memory index.
//
// Files are read with the repository's own .gitignore rules applied,
// scrubbed of credentials, split into line-aligned chunks and embedded with
// a deterministic hashing embedding, so synthesis needs no model service.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
	"github.com/fyrsmithlabs/reposmith/internal/reranker"
	"github.com/fyrsmithlabs/reposmith/internal/secrets"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoSources is returned when Synthesize is called without paths.
var ErrNoSources = errors.New("no source paths")

// Synthesizer builds domain.Knowledge from source working copies.
type Synthesizer struct {
	cfg    Config
	logger *logging.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

// NewSynthesizer validates cfg and returns a Synthesizer.
func NewSynthesizer(cfg Config, opts ...Option) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid knowledge config: %w", err)
	}
	s := &Synthesizer{cfg: cfg, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// sourceResult is what one source contributes to the index.
type sourceResult struct {
	summary domain.SourceSummary
	docs    []document
}

// Synthesize reads every source concurrently and indexes the result.
// Summaries keep the order of sourcePaths.
func (s *Synthesizer) Synthesize(ctx context.Context, sourcePaths []string) (*domain.Knowledge, error) {
	if len(sourcePaths) == 0 {
		return nil, ErrNoSources
	}

	results := make([]sourceResult, len(sourcePaths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, root := range sourcePaths {
		g.Go(func() error {
			res, err := s.readSource(gctx, i, root)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	embedder := NewHashEmbedder(s.cfg.Dimensions)
	var opts []IndexOption
	if s.cfg.Overfetch > 0 {
		opts = append(opts, WithReranker(reranker.NewTermOverlap(reranker.DefaultOverlapWeight), s.cfg.Overfetch))
	}
	index, err := NewIndex(embedder, s.cfg.CacheSize, opts...)
	if err != nil {
		return nil, err
	}

	k := &domain.Knowledge{
		Sources:   make([]domain.SourceSummary, 0, len(results)),
		Retriever: index,
	}
	for _, res := range results {
		if err := index.add(ctx, res.docs, s.cfg.Concurrency); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", res.summary.Path, err)
		}
		k.Sources = append(k.Sources, res.summary)
	}

	s.logger.Info(ctx, "knowledge synthesized",
		zap.Int("sources", len(k.Sources)),
		zap.Int("chunks", index.Count()),
		zap.Strings("tags", k.Tags()),
	)
	return k, nil
}

// readSource walks one source, redacts secrets and chunks its files.
func (s *Synthesizer) readSource(ctx context.Context, n int, root string) (sourceResult, error) {
	allowlist, err := secrets.LoadAllowlists(root)
	if err != nil {
		return sourceResult{}, fmt.Errorf("loading allowlist for %s: %w", root, err)
	}
	scanner, err := secrets.NewScanner(allowlist)
	if err != nil {
		return sourceResult{}, err
	}

	files, err := walkSource(ctx, root, s.cfg)
	if err != nil {
		return sourceResult{}, err
	}

	summary := domain.SourceSummary{
		Path:      root,
		Files:     len(files),
		Languages: languages(files),
		Tags:      tagsFor(files),
	}

	var docs []document
	for i := range files {
		if err := ctx.Err(); err != nil {
			return sourceResult{}, err
		}
		f := &files[i]
		red := scanner.Redact(f.Path, f.Content)
		if red.Audit.HasRedactions() {
			summary.Redacted += red.Audit.Count()
			s.logger.Warn(ctx, "redacted secrets from source file",
				zap.String("source", root),
				zap.String("path", f.Path),
				zap.Int("count", red.Audit.Count()),
				zap.Strings("rules", red.Audit.Rules()),
			)
			f.Content = red.Content
		}
		chunks := chunkLines(f.Content, s.cfg.ChunkSize)
		for c, ch := range chunks {
			docs = append(docs, document{
				ID:     strconv.Itoa(n) + ":" + f.Path + ":" + strconv.Itoa(c),
				Source: root,
				Path:   f.Path,
				Chunk:  ch,
			})
		}
		s.logger.Trace(ctx, "indexed file", zap.String("path", f.Path), zap.Int("chunks", len(chunks)))
	}
	summary.Chunks = len(docs)

	s.logger.Debug(ctx, "read source",
		zap.String("source", root),
		zap.Int("files", summary.Files),
		zap.Int("chunks", summary.Chunks),
		zap.Int("redacted", summary.Redacted),
	)
	return sourceResult{summary: summary, docs: docs}, nil
}
