package gitrepo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
)

// GitHub remote URL patterns, HTTPS and SSH.
var (
	githubSSHPattern   = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?/?$`)
	githubHTTPSPattern = regexp.MustCompile(`^(?:https?|ssh)://(?:[^@/]+@)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// GitHubRepo identifies a repository on GitHub.
type GitHubRepo struct {
	Owner string
	Name  string
}

func (r GitHubRepo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseGitHubURL extracts owner and name from a GitHub remote URL.
// ok is false for non-GitHub URLs.
func ParseGitHubURL(url string) (GitHubRepo, bool) {
	url = strings.TrimSpace(url)
	for _, re := range []*regexp.Regexp{githubSSHPattern, githubHTTPSPattern} {
		if m := re.FindStringSubmatch(url); m != nil {
			return GitHubRepo{Owner: m[1], Name: m[2]}, true
		}
	}
	return GitHubRepo{}, false
}

// remoteURL returns the first URL configured for the named remote.
func remoteURL(repo *git.Repository, name string) (string, error) {
	remote, err := repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %q: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %q has no URL", name)
	}
	return urls[0], nil
}
