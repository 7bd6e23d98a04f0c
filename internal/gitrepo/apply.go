package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// ErrUnsafePath is returned for improvement paths that leave the repository
// or touch its .git directory.
var ErrUnsafePath = errors.New("path escapes repository")

// Apply writes the applicable improvements to a new branch of the target
// and commits them. An improvement is applicable when its path stays inside
// the repository and the file still holds Original. Nothing is committed,
// and no branch is created, when no improvement is applicable.
//
// With push enabled the branch is pushed to the configured remote, and with
// pull requests enabled a pull request is opened against the base branch.
func (a *Access) Apply(ctx context.Context, req pipeline.ApplyRequest) ([]domain.Improvement, error) {
	if err := ValidateBranch(req.Branch); err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(req.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("opening target: %w", err)
	}
	if branchExists(repo, req.Branch) {
		return nil, fmt.Errorf("branch %q already exists", req.Branch)
	}

	applicable := a.applicable(ctx, req.TargetPath, req.Improvements)
	if len(applicable) == 0 {
		a.logger.Info(ctx, "no applicable improvements",
			zap.Int("proposed", len(req.Improvements)),
		)
		return []domain.Improvement{}, nil
	}

	base, err := CurrentBranch(repo)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(req.Branch),
		Create: true,
		Keep:   true,
	}); err != nil {
		return nil, fmt.Errorf("creating branch %q: %w", req.Branch, err)
	}

	for _, imp := range applicable {
		if err := writeImprovement(req.TargetPath, imp); err != nil {
			return nil, err
		}
		if _, err := wt.Add(path.Clean(imp.Path)); err != nil {
			return nil, fmt.Errorf("staging %s: %w", imp.Path, err)
		}
	}

	subject := pipeline.CommitMessage(len(applicable))
	hash, err := wt.Commit(commitMessage(subject, applicable), &git.CommitOptions{
		Author: &object.Signature{
			Name:  a.cfg.AuthorName,
			Email: a.cfg.AuthorEmail,
			When:  a.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	a.logger.Info(ctx, "committed improvements",
		zap.String("branch", req.Branch),
		zap.String("commit", hash.String()),
		zap.Int("applied", len(applicable)),
	)

	if a.cfg.Push {
		if err := a.publish(ctx, repo, req.Branch, base, subject, applicable); err != nil {
			return nil, err
		}
	}
	return applicable, nil
}

// applicable filters improvements down to those that can be written.
func (a *Access) applicable(ctx context.Context, root string, imps []domain.Improvement) []domain.Improvement {
	out := make([]domain.Improvement, 0, len(imps))
	seen := make(map[string]bool, len(imps))
	for _, imp := range imps {
		full, err := resolveInRepo(root, imp.Path)
		if err != nil {
			a.logger.Warn(ctx, "skipping improvement", zap.String("path", imp.Path), zap.Error(err))
			continue
		}
		if seen[full] {
			a.logger.Warn(ctx, "skipping duplicate improvement", zap.String("path", imp.Path))
			continue
		}
		if imp.Updated == imp.Original {
			continue
		}
		if info, err := os.Lstat(full); err == nil && info.Mode()&fs.ModeSymlink != 0 {
			a.logger.Warn(ctx, "skipping improvement for symlink", zap.String("path", imp.Path))
			continue
		}
		current, err := os.ReadFile(full)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if imp.Original != "" {
				a.logger.Warn(ctx, "skipping improvement for missing file", zap.String("path", imp.Path))
				continue
			}
		case err != nil:
			a.logger.Warn(ctx, "skipping unreadable file", zap.String("path", imp.Path), zap.Error(err))
			continue
		case string(current) != imp.Original:
			a.logger.Warn(ctx, "skipping stale improvement", zap.String("path", imp.Path))
			continue
		}
		seen[full] = true
		out = append(out, imp)
	}
	return out
}

// resolveInRepo maps a slash-separated repository path to a filesystem path
// under root.
func resolveInRepo(root, rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	clean := path.Clean(rel)
	first := strings.SplitN(clean, "/", 2)[0]
	if clean == "." || first == ".." || first == ".git" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func writeImprovement(root string, imp domain.Improvement) error {
	full, err := resolveInRepo(root, imp.Path)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0644)
	if info, err := os.Stat(full); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", imp.Path, err)
	}
	if err := os.WriteFile(full, []byte(imp.Updated), mode); err != nil {
		return fmt.Errorf("writing %s: %w", imp.Path, err)
	}
	return nil
}

func commitMessage(subject string, applied []domain.Improvement) string {
	var b strings.Builder
	b.WriteString(subject)
	b.WriteString("\n\n")
	for _, imp := range applied {
		b.WriteString("- ")
		b.WriteString(imp.Path)
		if imp.Summary != "" {
			b.WriteString(": ")
			b.WriteString(imp.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// publish pushes the branch and, when enabled, opens a pull request.
func (a *Access) publish(ctx context.Context, repo *git.Repository, branch, base, title string, applied []domain.Improvement) error {
	url, err := remoteURL(repo, a.cfg.Remote)
	if err != nil {
		return err
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: a.cfg.Remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)},
		Auth:       a.authFor(url),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing %s: %w", branch, err)
	}
	a.logger.Info(ctx, "pushed branch", zap.String("branch", branch), zap.String("remote", a.cfg.Remote))

	if !a.cfg.PullRequest {
		return nil
	}
	gh, ok := ParseGitHubURL(url)
	if !ok {
		a.logger.Warn(ctx, "remote is not on GitHub, skipping pull request", zap.String("remote", redactAddress(url)))
		return nil
	}
	if a.cfg.BaseBranch != "" {
		base = a.cfg.BaseBranch
	}
	prURL, err := a.prs.Open(ctx, PullRequest{
		Repo:  gh,
		Head:  branch,
		Base:  base,
		Title: title,
		Body:  pullRequestBody(applied),
	})
	if err != nil {
		return err
	}
	a.logger.Info(ctx, "opened pull request", zap.String("url", prURL))
	return nil
}

func pullRequestBody(applied []domain.Improvement) string {
	var b strings.Builder
	b.WriteString("Improvements proposed by reposmith:\n\n")
	for _, imp := range applied {
		fmt.Fprintf(&b, "- `%s`", imp.Path)
		if imp.Summary != "" {
			b.WriteString(": ")
			b.WriteString(imp.Summary)
		}
		if imp.Rationale != "" {
			b.WriteString("\n  ")
			b.WriteString(imp.Rationale)
		}
		b.WriteString("\n")
	}
	return b.String()
}
