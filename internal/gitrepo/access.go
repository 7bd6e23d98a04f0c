// Package gitrepo clones repositories into a work directory, removes the
// clones again, and commits improvements to a new branch of the target.
//
// Cloning and committing use go-git, so no git binary is needed for remote
// HTTPS repositories. When configured, the branch is pushed and a GitHub
// pull request is opened for it.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/fyrsmithlabs/reposmith/internal/logging"
)

// Config controls cloning and committing.
type Config struct {
	WorkDir      string
	CloneDepth   int
	CloneTimeout time.Duration
	AuthorName   string
	AuthorEmail  string
	Push         bool
	Remote       string
	PullRequest  bool
	BaseBranch   string
}

// ConfigFrom maps the application's git and github sections onto a Config.
func ConfigFrom(g config.GitConfig, gh config.GitHubConfig) Config {
	return Config{
		WorkDir:      g.WorkDir,
		CloneDepth:   g.CloneDepth,
		CloneTimeout: g.CloneTimeout,
		AuthorName:   g.AuthorName,
		AuthorEmail:  g.AuthorEmail,
		Push:         g.Push,
		Remote:       g.Remote,
		PullRequest:  gh.PullRequest,
		BaseBranch:   gh.BaseBranch,
	}
}

// Access implements repository access for the pipeline.
type Access struct {
	cfg     Config
	workDir string
	token   config.Secret
	logger  *logging.Logger
	prs     PullRequestOpener
	now     func() time.Time
}

// Option configures an Access.
type Option func(*Access)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Access) { a.logger = l }
}

// WithPullRequestOpener replaces the GitHub client used to open pull requests.
func WithPullRequestOpener(p PullRequestOpener) Option {
	return func(a *Access) { a.prs = p }
}

// WithClock replaces time.Now for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Access) { a.now = now }
}

// New creates the work directory and returns an Access rooted in it.
// token authenticates HTTPS clones and pushes; it may be unset for public
// or local repositories unless pull requests are enabled.
func New(ctx context.Context, cfg Config, token config.Secret, opts ...Option) (*Access, error) {
	if cfg.PullRequest && !cfg.Push {
		return nil, errors.New("pull requests require push")
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "reposmith"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "reposmith@users.noreply.github.com"
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "reposmith")
	}
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving work dir: %w", err)
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return nil, fmt.Errorf("resolving work dir: %w", err)
	}

	a := &Access{
		cfg:     cfg,
		workDir: resolved,
		token:   token,
		logger:  logging.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.PullRequest && a.prs == nil {
		prs, err := NewGitHubPullRequests(ctx, token)
		if err != nil {
			return nil, err
		}
		a.prs = prs
	}
	return a, nil
}

// WorkDir returns the resolved directory clones are created in.
func (a *Access) WorkDir() string {
	return a.workDir
}
