package pipeline

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/reposmith/internal/domain"
)

// CloneRequest names the repositories to clone.
type CloneRequest struct {
	Sources []string
	Target  string
}

// Addresses returns the sources followed by the target.
func (r CloneRequest) Addresses() []string {
	out := make([]string, 0, len(r.Sources)+1)
	out = append(out, r.Sources...)
	return append(out, r.Target)
}

// CloneSet holds local working copies, one per requested address.
// Sources keeps request order.
type CloneSet struct {
	Sources []string
	Target  string
}

// Paths returns every local path in the set, sources first.
func (s CloneSet) Paths() []string {
	out := make([]string, 0, len(s.Sources)+1)
	out = append(out, s.Sources...)
	if s.Target != "" {
		out = append(out, s.Target)
	}
	return out
}

// ApplyRequest asks for improvements to be committed to a new branch. The
// commit subject is CommitMessage of the number actually applied.
type ApplyRequest struct {
	TargetPath   string
	Improvements []domain.Improvement
	Branch       string
}

// GenerateRequest carries everything the generator may use.
// Knowledge is nil when the run has no sources.
type GenerateRequest struct {
	Knowledge     *domain.Knowledge
	TargetPath    string
	Files         []string
	MaxIterations int
	SafetyChecks  bool
}

// RepositoryAccess clones, cleans up and commits to working copies.
//
// Clone returns whatever it managed to clone alongside any error so the
// caller can remove it.
type RepositoryAccess interface {
	Clone(ctx context.Context, req CloneRequest) (CloneSet, error)
	Cleanup(ctx context.Context, paths []string) error
	Apply(ctx context.Context, req ApplyRequest) ([]domain.Improvement, error)
}

// KnowledgeSynthesizer builds knowledge from source working copies.
type KnowledgeSynthesizer interface {
	Synthesize(ctx context.Context, sourcePaths []string) (*domain.Knowledge, error)
}

// ImprovementGenerator proposes improvements for the target working copy.
type ImprovementGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]domain.Improvement, error)
}

// Collaborators bundles the implementations a run uses.
type Collaborators struct {
	Repositories RepositoryAccess
	Knowledge    KnowledgeSynthesizer
	Improvements ImprovementGenerator
}

// CollaboratorsFunc instantiates collaborators. New calls it only after
// the request and credentials are validated.
type CollaboratorsFunc func() (Collaborators, error)

func (c Collaborators) validate() error {
	var errs []error
	if c.Repositories == nil {
		errs = append(errs, errors.New("repository access is nil"))
	}
	if c.Knowledge == nil {
		errs = append(errs, errors.New("knowledge synthesizer is nil"))
	}
	if c.Improvements == nil {
		errs = append(errs, errors.New("improvement generator is nil"))
	}
	return errors.Join(errs...)
}
