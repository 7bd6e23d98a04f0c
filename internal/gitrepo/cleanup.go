package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Cleanup removes each path. Paths outside the work dir are refused.
// Every path is attempted; errors are joined.
func (a *Access) Cleanup(ctx context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		if err := a.removeClone(p); err != nil {
			errs = append(errs, err)
			continue
		}
		a.logger.Debug(ctx, "removed clone", zap.String("dir", p))
	}
	return errors.Join(errs...)
}

func (a *Access) removeClone(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(a.workDir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to remove %s: outside work dir %s", path, a.workDir)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
