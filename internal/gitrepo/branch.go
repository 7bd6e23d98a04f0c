package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrDetachedHead is returned when HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// ValidateBranch checks that name is usable as a new branch name.
func ValidateBranch(name string) error {
	if name == "" {
		return errors.New("branch name is empty")
	}
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil {
		return fmt.Errorf("invalid branch name %q: %w", name, err)
	}
	return nil
}

// CurrentBranch returns the short name of the branch HEAD points at.
func CurrentBranch(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

// branchExists reports whether refs/heads/name exists locally.
func branchExists(repo *git.Repository, name string) bool {
	_, err := repo.Reference(plumbing.NewBranchReferenceName(name), false)
	return err == nil
}
