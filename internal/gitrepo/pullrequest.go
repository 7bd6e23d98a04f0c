package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/reposmith/internal/config"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// PullRequest describes a pull request to open.
type PullRequest struct {
	Repo  GitHubRepo
	Head  string
	Base  string
	Title string
	Body  string
}

// PullRequestOpener opens pull requests and returns their URL.
type PullRequestOpener interface {
	Open(ctx context.Context, pr PullRequest) (string, error)
}

// GitHubPullRequests opens pull requests through the GitHub REST API.
type GitHubPullRequests struct {
	client *github.Client
}

// NewGitHubClient creates a GitHub client authenticated with token.
func NewGitHubClient(ctx context.Context, token config.Secret) (*github.Client, error) {
	if !token.IsSet() {
		return nil, errors.New("github token is required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc), nil
}

// NewGitHubPullRequests creates an opener authenticated with token.
func NewGitHubPullRequests(ctx context.Context, token config.Secret) (*GitHubPullRequests, error) {
	client, err := NewGitHubClient(ctx, token)
	if err != nil {
		return nil, err
	}
	return &GitHubPullRequests{client: client}, nil
}

// NewGitHubPullRequestsWithClient wraps an existing client.
func NewGitHubPullRequestsWithClient(client *github.Client) *GitHubPullRequests {
	return &GitHubPullRequests{client: client}
}

// Open creates the pull request.
func (g *GitHubPullRequests) Open(ctx context.Context, pr PullRequest) (string, error) {
	created, _, err := g.client.PullRequests.Create(ctx, pr.Repo.Owner, pr.Repo.Name, &github.NewPullRequest{
		Title: github.String(pr.Title),
		Head:  github.String(pr.Head),
		Base:  github.String(pr.Base),
		Body:  github.String(pr.Body),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request on %s: %w", pr.Repo, err)
	}
	return created.GetHTMLURL(), nil
}
