package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultBranch is the branch created on the target when none is given.
	DefaultBranch = "reposmith/improvements"

	// DefaultMaxIterations bounds generation when no budget is given.
	DefaultMaxIterations = 10
)

var (
	// ErrEmptyTarget is returned when the target address is blank.
	ErrEmptyTarget = errors.New("target repository address is required")

	// ErrEmptyAddress is returned when a source address is blank.
	ErrEmptyAddress = errors.New("repository address must not be empty")
)

// Request describes one run. It is validated by NewRequest and never
// changes afterwards; accessors return copies.
type Request struct {
	target        string
	sources       []string
	files         []string
	branch        string
	maxIterations int
	safetyChecks  bool
}

// RequestOption customises a Request.
type RequestOption func(*Request)

// WithFiles restricts generation to the given paths, relative to the target root.
func WithFiles(files ...string) RequestOption {
	return func(r *Request) {
		r.files = append(r.files, files...)
	}
}

// WithBranch overrides DefaultBranch.
func WithBranch(branch string) RequestOption {
	return func(r *Request) {
		r.branch = branch
	}
}

// WithMaxIterations overrides DefaultMaxIterations.
func WithMaxIterations(n int) RequestOption {
	return func(r *Request) {
		r.maxIterations = n
	}
}

// WithoutSafetyChecks disables the generator's validation gates.
func WithoutSafetyChecks() RequestOption {
	return func(r *Request) {
		r.safetyChecks = false
	}
}

// NewRequest validates and builds a Request. No I/O is performed.
func NewRequest(target string, sources []string, opts ...RequestOption) (Request, error) {
	r := Request{
		target:        strings.TrimSpace(target),
		branch:        DefaultBranch,
		maxIterations: DefaultMaxIterations,
		safetyChecks:  true,
	}
	for _, opt := range opts {
		opt(&r)
	}

	if r.target == "" {
		return Request{}, &ConfigError{Field: "target", Err: ErrEmptyTarget}
	}

	r.sources = make([]string, 0, len(sources))
	for i, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			return Request{}, &ConfigError{Field: fmt.Sprintf("sources[%d]", i), Err: ErrEmptyAddress}
		}
		r.sources = append(r.sources, s)
	}

	files, err := normalizeFiles(r.files)
	if err != nil {
		return Request{}, &ConfigError{Field: "files", Err: err}
	}
	r.files = files

	r.branch = strings.TrimSpace(r.branch)
	if r.branch == "" {
		return Request{}, &ConfigError{Field: "branch", Err: errors.New("branch name must not be empty")}
	}
	if r.maxIterations <= 0 {
		return Request{}, &ConfigError{
			Field: "max_iterations",
			Err:   fmt.Errorf("must be positive, got %d", r.maxIterations),
		}
	}

	return r, nil
}

// normalizeFiles trims entries and drops duplicates, keeping first-seen order.
func normalizeFiles(files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			return nil, errors.New("file path must not be empty")
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out, nil
}

// Target returns the target repository address.
func (r Request) Target() string { return r.target }

// Sources returns the source repository addresses in request order.
func (r Request) Sources() []string { return cloneStrings(r.sources) }

// Files returns the file filter; empty means unrestricted.
func (r Request) Files() []string { return cloneStrings(r.files) }

// Branch returns the branch to create on the target.
func (r Request) Branch() string { return r.branch }

// MaxIterations returns the generation budget.
func (r Request) MaxIterations() int { return r.maxIterations }

// SafetyChecks reports whether generation runs its validation gates.
func (r Request) SafetyChecks() bool { return r.safetyChecks }

// Repositories returns the number of repositories a run analyses.
func (r Request) Repositories() int { return len(r.sources) + 1 }

// FilesTargeted describes the file filter.
func (r Request) FilesTargeted() FilesTargeted {
	return FilesTargeted{Count: len(r.files), Unrestricted: len(r.files) == 0}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
