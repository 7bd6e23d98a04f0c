package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// errFileLimit stops a walk once the per-source file budget is used up.
var errFileLimit = errors.New("file limit reached")

// skipDirs are never indexed: VCS metadata, dependencies and build output.
var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"target":       true,
}

// sourceFile is one readable text file of a source repository.
type sourceFile struct {
	Path    string // slash-separated, relative to the source root
	Content string
}

// walkSource returns the indexable files under root in lexical order.
// It stops silently after cfg.MaxFilesPerSource files.
func walkSource(ctx context.Context, root string, cfg Config) ([]sourceFile, error) {
	matcher, err := newIgnoreMatcher(root, cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	var files []sourceFile
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		parts := strings.Split(rel, "/")

		if d.IsDir() {
			if skipDirs[d.Name()] || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(parts, false) {
			return nil
		}
		if !included(rel, cfg.IncludePatterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 || info.Size() > cfg.MaxFileSize {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if !utf8.Valid(content) {
			return nil
		}

		files = append(files, sourceFile{Path: rel, Content: string(content)})
		if len(files) >= cfg.MaxFilesPerSource {
			return errFileLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFileLimit) {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// newIgnoreMatcher combines the repository's .gitignore files with extra
// patterns. Extra patterns are applied last and win.
func newIgnoreMatcher(root string, extra []string) (gitignore.Matcher, error) {
	patterns, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("reading ignore files: %w", err)
	}
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}

// included reports whether rel matches any include pattern, by base name or
// by full path. No patterns means everything is included.
func included(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	base := path.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, "test"); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}
