package gitrepo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cloneTarget clones origin through a and returns the working copy path.
func cloneTarget(t *testing.T, a *Access, origin string) string {
	t.Helper()
	set, err := a.Clone(context.Background(), pipeline.CloneRequest{Target: origin})
	require.NoError(t, err)
	return set.Target
}

func TestApply_CommitsApplicableImprovements(t *testing.T) {
	requireGit(t)
	origin := newOrigin(t, map[string]string{
		"main.go":   "package main\n",
		"util/x.go": "package util\n",
		"README.md": "# app\n",
	})
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := newAccess(t, Config{AuthorName: "bot", AuthorEmail: "bot@example.com"},
		WithClock(func() time.Time { return when }))
	target := cloneTarget(t, a, origin)

	imps := []domain.Improvement{
		{ID: "1", Path: "main.go", Original: "package main\n", Updated: "package main\n\nfunc main() {}\n", Summary: "add main"},
		{ID: "2", Path: "util/x.go", Original: "package stale\n", Updated: "package util\n// x\n"},
		{ID: "3", Path: "../escape.go", Original: "", Updated: "package evil\n"},
		{ID: "4", Path: "docs/new.md", Original: "", Updated: "# docs\n", Summary: "add docs"},
		{ID: "5", Path: "README.md", Original: "# app\n", Updated: "# app\n"},
	}

	applied, err := a.Apply(context.Background(), pipeline.ApplyRequest{
		TargetPath:   target,
		Improvements: imps,
		Branch:       "reposmith/improvements",
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(applied))
	for _, imp := range applied {
		ids = append(ids, imp.ID)
	}
	assert.Equal(t, []string{"1", "4"}, ids)

	assert.Equal(t, "package main\n\nfunc main() {}\n", readFile(t, filepath.Join(target, "main.go")))
	assert.Equal(t, "package util\n", readFile(t, filepath.Join(target, "util", "x.go")))
	assert.Equal(t, "# docs\n", readFile(t, filepath.Join(target, "docs", "new.md")))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(target), "escape.go"))

	repo, err := git.PlainOpen(target)
	require.NoError(t, err)
	branch, err := CurrentBranch(repo)
	require.NoError(t, err)
	assert.Equal(t, "reposmith/improvements", branch)

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(commit.Message, pipeline.CommitMessage(2)+"\n\n"), commit.Message)
	assert.NotContains(t, commit.Message, "README.md")
	assert.Contains(t, commit.Message, "- main.go: add main")
	assert.Equal(t, "bot", commit.Author.Name)
	assert.Equal(t, "bot@example.com", commit.Author.Email)
	assert.True(t, when.Equal(commit.Author.When))

	status, err := mustWorktree(t, repo).Status()
	require.NoError(t, err)
	assert.True(t, status.IsClean())
}

func TestApply_NothingApplicable(t *testing.T) {
	requireGit(t)
	origin := newOrigin(t, map[string]string{"main.go": "package main\n"})
	a := newAccess(t, Config{})
	target := cloneTarget(t, a, origin)

	applied, err := a.Apply(context.Background(), pipeline.ApplyRequest{
		TargetPath: target,
		Improvements: []domain.Improvement{
			{ID: "1", Path: "main.go", Original: "package other\n", Updated: "package main\n// x\n"},
		},
		Branch: "reposmith/improvements",
	})
	require.NoError(t, err)
	assert.Empty(t, applied)

	repo, err := git.PlainOpen(target)
	require.NoError(t, err)
	assert.False(t, branchExists(repo, "reposmith/improvements"))
}

func TestApply_InvalidBranch(t *testing.T) {
	a := newAccess(t, Config{})
	_, err := a.Apply(context.Background(), pipeline.ApplyRequest{
		TargetPath: t.TempDir(),
		Branch:     "bad..branch",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid branch name")
}

func TestApply_ExistingBranch(t *testing.T) {
	requireGit(t)
	origin := newOrigin(t, map[string]string{"main.go": "package main\n"})
	a := newAccess(t, Config{})
	target := cloneTarget(t, a, origin)

	repo, err := git.PlainOpen(target)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("taken"), head.Hash())))

	_, err = a.Apply(context.Background(), pipeline.ApplyRequest{
		TargetPath: target,
		Branch:     "taken",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestApply_PushesBranch(t *testing.T) {
	requireGit(t)
	origin := newOrigin(t, map[string]string{"main.go": "package main\n"})
	a := newAccess(t, Config{Push: true})
	target := cloneTarget(t, a, origin)

	_, err := a.Apply(context.Background(), pipeline.ApplyRequest{
		TargetPath: target,
		Improvements: []domain.Improvement{
			{ID: "1", Path: "main.go", Original: "package main\n", Updated: "package main\n\nfunc main() {}\n"},
		},
		Branch: "reposmith/pushed",
	})
	require.NoError(t, err)

	originRepo, err := git.PlainOpen(origin)
	require.NoError(t, err)
	assert.True(t, branchExists(originRepo, "reposmith/pushed"))
}

func TestNew_PullRequestRequiresPush(t *testing.T) {
	_, err := New(context.Background(), Config{WorkDir: t.TempDir(), PullRequest: true}, "token")
	require.Error(t, err)
}

func TestNew_PullRequestRequiresToken(t *testing.T) {
	_, err := New(context.Background(), Config{WorkDir: t.TempDir(), Push: true, PullRequest: true}, "")
	require.Error(t, err)
}

func TestResolveInRepo(t *testing.T) {
	root := filepath.Join("srv", "repo")
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "main.go", want: filepath.Join(root, "main.go")},
		{path: "a/./b/../c.go", want: filepath.Join(root, "a", "c.go")},
		{path: "", wantErr: true},
		{path: "/etc/passwd", wantErr: true},
		{path: "../x.go", wantErr: true},
		{path: "a/../../x.go", wantErr: true},
		{path: ".git/config", wantErr: true},
		{path: ".", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := resolveInRepo(root, tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBranch(t *testing.T) {
	assert.NoError(t, ValidateBranch("reposmith/improvements"))
	assert.NoError(t, ValidateBranch("feature-1"))
	assert.Error(t, ValidateBranch(""))
	assert.Error(t, ValidateBranch("bad..name"))
	assert.Error(t, ValidateBranch("has space"))
	assert.Error(t, ValidateBranch("ends.lock"))
}

func mustWorktree(t *testing.T, repo *git.Repository) *git.Worktree {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return wt
}
