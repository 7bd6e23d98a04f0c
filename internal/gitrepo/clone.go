package gitrepo

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fyrsmithlabs/reposmith/internal/pipeline"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

// Clone clones every source, then the target, each into its own directory
// under the work dir. Sources honour the configured depth; the target is
// cloned in full so a branch can be created and pushed from it.
//
// On failure the directories cloned so far are returned with the error.
func (a *Access) Clone(ctx context.Context, req pipeline.CloneRequest) (pipeline.CloneSet, error) {
	var set pipeline.CloneSet
	for _, addr := range req.Sources {
		path, err := a.cloneOne(ctx, addr, a.cfg.CloneDepth)
		if err != nil {
			return set, err
		}
		set.Sources = append(set.Sources, path)
	}

	path, err := a.cloneOne(ctx, req.Target, 0)
	if err != nil {
		return set, err
	}
	set.Target = path
	return set, nil
}

func (a *Access) cloneOne(ctx context.Context, addr string, depth int) (string, error) {
	dir, err := os.MkdirTemp(a.workDir, "clone-*")
	if err != nil {
		return "", fmt.Errorf("creating clone dir: %w", err)
	}

	if a.cfg.CloneTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.CloneTimeout)
		defer cancel()
	}

	a.logger.Debug(ctx, "cloning repository",
		zap.String("address", redactAddress(addr)),
		zap.String("dir", dir),
		zap.Int("depth", depth),
	)

	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   addr,
		Depth: depth,
		Auth:  a.authFor(addr),
		Tags:  git.NoTags,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("cloning %s: %w", redactAddress(addr), err)
	}
	return dir, nil
}

// authFor returns token auth for HTTP(S) addresses, nil otherwise.
func (a *Access) authFor(addr string) transport.AuthMethod {
	if !a.token.IsSet() || !isHTTPAddress(addr) {
		return nil
	}
	return &githttp.BasicAuth{
		Username: "x-access-token",
		Password: a.token.Value(),
	}
}

func isHTTPAddress(addr string) bool {
	return strings.HasPrefix(addr, "https://") || strings.HasPrefix(addr, "http://")
}

// redactAddress strips userinfo from URL-style addresses.
func redactAddress(addr string) string {
	ep, err := transport.NewEndpoint(addr)
	if err != nil || (ep.User == "" && ep.Password == "") {
		return addr
	}
	if ep.Protocol == "ssh" {
		return addr
	}
	ep.User = ""
	ep.Password = ""
	return ep.String()
}
