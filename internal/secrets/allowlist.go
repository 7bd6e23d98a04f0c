// Package secrets finds credentials with the Gitleaks default rules.
//
// Source files are scrubbed before they are indexed, and a generated
// improvement is rejected when it adds a secret its original lacked.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
)

// AllowlistFile is read from the root of every cloned repository.
const AllowlistFile = ".gitleaks.toml"

var (
	// ErrInvalidRegex wraps an allowlist pattern that does not compile.
	ErrInvalidRegex = errors.New("invalid allowlist pattern")

	// ErrInvalidTOML wraps an allowlist file that does not parse.
	ErrInvalidTOML = errors.New("invalid allowlist file")
)

// Allowlist holds patterns Gitleaks should ignore. Paths match file paths,
// Regexes match secret content.
type Allowlist struct {
	Paths   []string
	Regexes []string
}

// Empty reports whether a has no patterns. A nil Allowlist is empty.
func (a *Allowlist) Empty() bool {
	return a == nil || len(a.Paths)+len(a.Regexes) == 0
}

func (a *Allowlist) merge(other Allowlist) {
	a.Paths = append(a.Paths, other.Paths...)
	a.Regexes = append(a.Regexes, other.Regexes...)
}

// LoadAllowlists unions the AllowlistFile of every root. Roots without one
// are skipped.
func LoadAllowlists(roots ...string) (*Allowlist, error) {
	var merged Allowlist
	for _, root := range roots {
		if root == "" {
			continue
		}
		list, err := readAllowlist(filepath.Join(root, AllowlistFile))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		merged.merge(list)
	}
	return &merged, nil
}

func readAllowlist(path string) (Allowlist, error) {
	var doc struct {
		Allowlist Allowlist `toml:"allowlist"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Allowlist{}, err
		}
		return Allowlist{}, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}
	if _, err := compileAll(doc.Allowlist.Paths); err != nil {
		return Allowlist{}, fmt.Errorf("%s: paths: %w", path, err)
	}
	if _, err := compileAll(doc.Allowlist.Regexes); err != nil {
		return Allowlist{}, fmt.Errorf("%s: regexes: %w", path, err)
	}
	return doc.Allowlist, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidRegex, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
