// Package git provides an interface for git operations.
package git

import "context"

// Change is one entry of `git diff --name-status` output.
type Change struct {
	// Status is the single-letter git status (A, M, D, R, C, T, U, X).
	Status byte
	// Score is the similarity score for renames and copies, 0 otherwise.
	Score int
	// Path is the path after the change.
	Path string
	// OldPath is the source path for renames and copies.
	OldPath string
}

// RevisionOperations resolves revision tokens to commits.
type RevisionOperations interface {
	// RevParse resolves a revision token (branch, tag, sha, HEAD^, ...)
	// to a full commit sha. Fails if the revision does not exist.
	RevParse(ctx context.Context, rev string) (string, error)
}

// DiffOperations lists changes between two commits.
type DiffOperations interface {
	// DiffNameStatus returns the changed paths between two commits in
	// git's diff order, with renames detected.
	DiffNameStatus(ctx context.Context, base, head string) ([]Change, error)
}

// MergeOperations covers merge-base computation and merging.
type MergeOperations interface {
	// MergeBases returns all best common ancestors of two commits.
	// Zero, one or many results are all valid.
	MergeBases(ctx context.Context, a, b string) ([]string, error)
	// MergeNoFF merges the branch into the current branch creating a merge commit.
	MergeNoFF(ctx context.Context, branch, message string) error
}

// HeadOperations inspects the current tip.
type HeadOperations interface {
	// SymbolicRef returns the full ref HEAD points to (refs/heads/...),
	// or "" when HEAD is detached.
	SymbolicRef(ctx context.Context) (string, error)
	// Parents returns the parent shas of the given revision in order.
	Parents(ctx context.Context, rev string) ([]string, error)
}

// BranchOperations defines the interface for git branch operations.
type BranchOperations interface {
	// CurrentBranch returns the short name of the current branch.
	CurrentBranch(ctx context.Context) (string, error)
	// CheckoutNewBranch creates and switches to a new branch (git checkout -b).
	CheckoutNewBranch(ctx context.Context, name string) error
	// Checkout switches to the specified branch or revision.
	Checkout(ctx context.Context, name string) error
}

// CommitOperations defines the interface for git commit operations.
type CommitOperations interface {
	// Init creates a repository whose initial branch is named branch.
	Init(ctx context.Context, branch string) error
	// Add stages the specified files for commit.
	Add(ctx context.Context, paths ...string) error
	// Commit creates a new commit with the given message and returns its sha.
	Commit(ctx context.Context, message string) (string, error)
}

// Store is the read-only history surface the validation engine needs.
type Store interface {
	RevisionOperations
	DiffOperations
	HeadOperations
	// MergeBases is the read-only part of MergeOperations.
	MergeBases(ctx context.Context, a, b string) ([]string, error)
}

// Runner defines the complete interface for git operations.
// Consumers should prefer the focused interfaces, usually Store.
type Runner interface {
	RevisionOperations
	DiffOperations
	MergeOperations
	HeadOperations
	BranchOperations
	CommitOperations
	// Root returns the repository path the runner operates on.
	Root() string
}
