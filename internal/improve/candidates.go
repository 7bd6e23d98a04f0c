package improve

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
)

// ErrFileNotFound is returned when a requested file does not exist in the
// target.
var ErrFileNotFound = errors.New("file not found in target")

// candidate is a target file offered to the model.
type candidate struct {
	Path    string // slash-separated, relative to the target root
	Content string
}

// sourceExts are the file types considered when generation is unrestricted.
var sourceExts = map[string]bool{
	".go": true, ".py": true, ".ts": true, ".tsx": true, ".js": true,
	".jsx": true, ".rs": true, ".java": true, ".kt": true, ".rb": true,
	".c": true, ".h": true, ".cpp": true, ".cc": true, ".cs": true,
	".swift": true, ".php": true, ".sh": true, ".md": true,
}

var skipDirs = map[string]bool{
	".git": true, "vendor": true, "node_modules": true, "dist": true,
	"build": true, "target": true, ".venv": true, "venv": true,
	"__pycache__": true, "testdata": true,
}

// skipReason explains why a file was not offered to the model.
type skipReason struct {
	Path   string
	Reason string
}

// selectCandidates returns the files to improve. With files given, each
// must exist inside root; otherwise root is walked for source files in
// lexical order.
func selectCandidates(ctx context.Context, root string, files []string, maxSize int64) ([]candidate, []skipReason, error) {
	if len(files) > 0 {
		return requestedCandidates(root, files, maxSize)
	}
	return walkCandidates(ctx, root, maxSize)
}

func requestedCandidates(root string, files []string, maxSize int64) ([]candidate, []skipReason, error) {
	var (
		out     []candidate
		skipped []skipReason
	)
	for _, f := range files {
		rel := path.Clean(filepath.ToSlash(f))
		if rel == "." || strings.HasPrefix(rel, "../") || rel == ".." || path.IsAbs(rel) {
			return nil, nil, fmt.Errorf("file %q is outside the target", f)
		}
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Lstat(full)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, rel)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", rel, err)
		}
		if !info.Mode().IsRegular() {
			return nil, nil, fmt.Errorf("file %q is not a regular file", rel)
		}
		c, reason, err := readCandidate(full, rel, info.Size(), maxSize)
		if err != nil {
			return nil, nil, err
		}
		if reason != "" {
			skipped = append(skipped, skipReason{Path: rel, Reason: reason})
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

func walkCandidates(ctx context.Context, root string, maxSize int64) ([]candidate, []skipReason, error) {
	var (
		out     []candidate
		skipped []skipReason
	)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !sourceExts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		c, reason, err := readCandidate(p, rel, info.Size(), maxSize)
		if err != nil {
			return err
		}
		if reason != "" {
			skipped = append(skipped, skipReason{Path: rel, Reason: reason})
			return nil
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking target: %w", err)
	}
	return out, skipped, nil
}

// readCandidate loads a file, or returns a skip reason for files the model
// should not see.
func readCandidate(full, rel string, size, maxSize int64) (candidate, string, error) {
	if size == 0 {
		return candidate{}, "empty", nil
	}
	if size > maxSize {
		return candidate{}, "too large", nil
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return candidate{}, "", fmt.Errorf("reading %s: %w", rel, err)
	}
	if !utf8.Valid(content) {
		return candidate{}, "not text", nil
	}
	return candidate{Path: rel, Content: string(content)}, "", nil
}
