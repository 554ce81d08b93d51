// Package diff resolves the two history endpoints of a validation run and
// lists the files changed between them.
//
// Endpoints come from one of four strategies: explicit revisions, a pull
// request branch compared against the main line, the two parents of a merge
// commit, or a commit-range expression of the form "A..B" or "A...B".
package diff

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShayCichocki/contribgate/internal/git"
)

var (
	// ErrMalformedRange is returned for an empty or unparseable commit range.
	ErrMalformedRange = errors.New("malformed commit range")
	// ErrAmbiguousMergeBase is returned when "A...B" does not have exactly
	// one merge-base.
	ErrAmbiguousMergeBase = errors.New("ambiguous merge base")
	// ErrEnvironmentMismatch is returned when the checkout does not match
	// the requested strategy, e.g. HEAD is not a pull request branch.
	ErrEnvironmentMismatch = errors.New("environment does not match diff strategy")
	// ErrNotAMergeCommit is returned when HEAD does not have two parents.
	ErrNotAMergeCommit = errors.New("HEAD is not a merge commit")
)

// Endpoints is the resolved (base, head) pair of a diff.
type Endpoints struct {
	Base string
	Head string
}

func (e Endpoints) String() string {
	return e.Base + ".." + e.Head
}

// Differ computes the endpoints for a run.
type Differ interface {
	Endpoints(ctx context.Context) (Endpoints, error)
}

// ChangeKind classifies a FileDiff.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindModified ChangeKind = "modified"
	KindRemoved  ChangeKind = "removed"
	KindRenamed  ChangeKind = "renamed"
	KindCopied   ChangeKind = "copied"
	KindType     ChangeKind = "type-changed"
	KindUnknown  ChangeKind = "unknown"
)

// FileDiff is one changed path between two endpoints.
type FileDiff struct {
	Kind ChangeKind
	// Path is the path at head (for removals, the removed path).
	Path string
	// OldPath is set for renames and copies.
	OldPath string
}

func (d FileDiff) String() string {
	if d.OldPath != "" {
		return fmt.Sprintf("%s %s -> %s", d.Kind, d.OldPath, d.Path)
	}
	return fmt.Sprintf("%s %s", d.Kind, d.Path)
}

func kindOf(status byte) ChangeKind {
	switch status {
	case 'A':
		return KindAdded
	case 'M':
		return KindModified
	case 'D':
		return KindRemoved
	case 'R':
		return KindRenamed
	case 'C':
		return KindCopied
	case 'T':
		return KindType
	default:
		return KindUnknown
	}
}

// Diff lists the files changed between the endpoints, in git's order.
func Diff(ctx context.Context, store git.DiffOperations, ep Endpoints) ([]FileDiff, error) {
	changes, err := store.DiffNameStatus(ctx, ep.Base, ep.Head)
	if err != nil {
		return nil, fmt.Errorf("list changes %s: %w", ep, err)
	}

	diffs := make([]FileDiff, 0, len(changes))
	for _, c := range changes {
		diffs = append(diffs, FileDiff{
			Kind:    kindOf(c.Status),
			Path:    c.Path,
			OldPath: c.OldPath,
		})
	}
	return diffs, nil
}

// Resolve runs the differ and lists the resulting changes.
func Resolve(ctx context.Context, d Differ, store git.DiffOperations) (Endpoints, []FileDiff, error) {
	ep, err := d.Endpoints(ctx)
	if err != nil {
		return Endpoints{}, nil, err
	}
	diffs, err := Diff(ctx, store, ep)
	if err != nil {
		return ep, nil, err
	}
	return ep, diffs, nil
}
