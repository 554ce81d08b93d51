package diff

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ShayCichocki/contribgate/internal/git"
)

const revPattern = `[a-zA-Z0-9_/^@{}-]+`

var (
	commitRangeRegex = regexp.MustCompile(`(?P<a>` + revPattern + `)\.\.(?P<thirddot>\.?)(?P<b>` + revPattern + `)`)
	prRefRegex       = regexp.MustCompile(`^refs/heads/pull/(\d+)$`)
)

// CommitRange is a parsed "A..B" or "A...B" expression.
type CommitRange struct {
	A string
	B string
	// MergeBase is true for the three-dot form.
	MergeBase bool
}

func (r CommitRange) String() string {
	if r.MergeBase {
		return r.A + "..." + r.B
	}
	return r.A + ".." + r.B
}

// ParseCommitRange parses a commit range expression.
func ParseCommitRange(s string) (CommitRange, error) {
	if s == "" {
		return CommitRange{}, fmt.Errorf("%w: commit range cannot be empty", ErrMalformedRange)
	}
	m := commitRangeRegex.FindStringSubmatch(s)
	if m == nil {
		return CommitRange{}, fmt.Errorf("%w: expected a..b or a...b, got %q", ErrMalformedRange, s)
	}
	return CommitRange{
		A:         m[commitRangeRegex.SubexpIndex("a")],
		B:         m[commitRangeRegex.SubexpIndex("b")],
		MergeBase: m[commitRangeRegex.SubexpIndex("thirddot")] != "",
	}, nil
}

// MakeCommitRange formats the three-dot range used to list file changes.
func MakeCommitRange(a, b string) string {
	return a + "..." + b
}

// RangeDiffer resolves endpoints from a commit range expression.
type RangeDiffer struct {
	Store git.Store
	Range string
}

// Endpoints implements Differ.
func (d *RangeDiffer) Endpoints(ctx context.Context) (Endpoints, error) {
	return EndpointsFromRange(ctx, d.Store, d.Range)
}

// EndpointsFromRange resolves "A..B" to (A, B) and "A...B" to
// (merge-base(A, B), B).
func EndpointsFromRange(ctx context.Context, store git.Store, expr string) (Endpoints, error) {
	cr, err := ParseCommitRange(expr)
	if err != nil {
		return Endpoints{}, err
	}

	a, err := store.RevParse(ctx, cr.A)
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve %q: %w", cr.A, err)
	}
	b, err := store.RevParse(ctx, cr.B)
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve %q: %w", cr.B, err)
	}

	if cr.MergeBase {
		bases, err := store.MergeBases(ctx, a, b)
		if err != nil {
			return Endpoints{}, fmt.Errorf("merge-base %s: %w", cr, err)
		}
		if len(bases) != 1 {
			return Endpoints{}, fmt.Errorf("%w: %s has %d merge bases", ErrAmbiguousMergeBase, cr, len(bases))
		}
		a = bases[0]
	}
	return Endpoints{Base: a, Head: b}, nil
}

// CustomDiffer uses endpoints supplied directly.
type CustomDiffer struct {
	Store git.RevisionOperations
	Base  string
	Head  string
}

// Endpoints implements Differ.
func (d *CustomDiffer) Endpoints(ctx context.Context) (Endpoints, error) {
	base, err := d.Store.RevParse(ctx, d.Base)
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve base %q: %w", d.Base, err)
	}
	head, err := d.Store.RevParse(ctx, d.Head)
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve head %q: %w", d.Head, err)
	}
	return Endpoints{Base: base, Head: head}, nil
}

// PullRequestDiffer diffs a local pull request branch
// (refs/heads/pull/<n>) against the main line.
type PullRequestDiffer struct {
	Store git.Store
	// BaseRef is the comparison ref, "master" when empty.
	BaseRef string
}

// PullRequestNumber returns the pull request number HEAD belongs to.
func PullRequestNumber(ctx context.Context, store git.HeadOperations) (int, error) {
	ref, err := store.SymbolicRef(ctx)
	if err != nil {
		return 0, fmt.Errorf("read HEAD ref: %w", err)
	}
	m := prRefRegex.FindStringSubmatch(ref)
	if m == nil {
		return 0, fmt.Errorf("%w: HEAD ref %q is not a pull request ref", ErrEnvironmentMismatch, ref)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEnvironmentMismatch, err)
	}
	return n, nil
}

// Endpoints implements Differ.
func (d *PullRequestDiffer) Endpoints(ctx context.Context) (Endpoints, error) {
	n, err := PullRequestNumber(ctx, d.Store)
	if err != nil {
		return Endpoints{}, err
	}

	baseRef := d.BaseRef
	if baseRef == "" {
		baseRef = "master"
	}
	base, err := d.Store.RevParse(ctx, baseRef)
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve %q: %w", baseRef, err)
	}
	head, err := d.Store.RevParse(ctx, fmt.Sprintf("refs/heads/pull/%d", n))
	if err != nil {
		return Endpoints{}, fmt.Errorf("resolve pull/%d: %w", n, err)
	}
	return Endpoints{Base: base, Head: head}, nil
}

// MergeDiffer diffs the two parents of the merge commit at HEAD.
// Parent one is the target line, parent two is the merged topic.
type MergeDiffer struct {
	Store git.HeadOperations
}

// Endpoints implements Differ.
func (d *MergeDiffer) Endpoints(ctx context.Context) (Endpoints, error) {
	parents, err := d.Store.Parents(ctx, "HEAD")
	if err != nil {
		return Endpoints{}, fmt.Errorf("read HEAD parents: %w", err)
	}
	if len(parents) != 2 {
		return Endpoints{}, fmt.Errorf("%w: HEAD has %d parents", ErrNotAMergeCommit, len(parents))
	}
	return Endpoints{Base: parents[0], Head: parents[1]}, nil
}

// Verify the differs implement Differ at compile time.
var (
	_ Differ = (*RangeDiffer)(nil)
	_ Differ = (*CustomDiffer)(nil)
	_ Differ = (*PullRequestDiffer)(nil)
	_ Differ = (*MergeDiffer)(nil)
)
