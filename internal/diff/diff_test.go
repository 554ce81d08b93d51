package diff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/contribgate/internal/diff"
	"github.com/ShayCichocki/contribgate/internal/git"
	"github.com/ShayCichocki/contribgate/internal/git/gittest"
)

func TestParseCommitRange(t *testing.T) {
	tests := []struct {
		in        string
		a, b      string
		mergeBase bool
	}{
		{"master..feature", "master", "feature", false},
		{"master...feature", "master", "feature", true},
		{"abc123..def456", "abc123", "def456", false},
		{"origin/master...HEAD^", "origin/master", "HEAD^", true},
		{"HEAD@{1}..pull/12", "HEAD@{1}", "pull/12", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := diff.ParseCommitRange(tt.in)
			if err != nil {
				t.Fatalf("ParseCommitRange(%q) error = %v", tt.in, err)
			}
			if got.A != tt.a || got.B != tt.b || got.MergeBase != tt.mergeBase {
				t.Errorf("ParseCommitRange(%q) = %+v, want a=%q b=%q mergeBase=%v",
					tt.in, got, tt.a, tt.b, tt.mergeBase)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestParseCommitRange_Malformed(t *testing.T) {
	for _, in := range []string{"", "master", "..", "a.b", "  "} {
		_, err := diff.ParseCommitRange(in)
		if !errors.Is(err, diff.ErrMalformedRange) {
			t.Errorf("ParseCommitRange(%q) error = %v, want ErrMalformedRange", in, err)
		}
	}
}

func TestMakeCommitRange(t *testing.T) {
	if got := diff.MakeCommitRange("master", "pull/3"); got != "master...pull/3" {
		t.Errorf("MakeCommitRange() = %q, want master...pull/3", got)
	}
}

// forkedRepo builds master: base -> m1, topic: base -> t1.
func forkedRepo(t *testing.T) (repo *gittest.Repo, base, m1, t1 string) {
	t.Helper()
	ctx := context.Background()
	repo = gittest.New(t)
	base = repo.CommitFile("README.md", "readme")
	repo.Must(repo.CheckoutNewBranch(ctx, "topic"))
	t1 = repo.CommitFile("features/contrib/bob/a.yaml", "kind: Feature\n")
	repo.Must(repo.Checkout(ctx, "master"))
	m1 = repo.CommitFile("main.txt", "m")
	return repo, base, m1, t1
}

func TestEndpointsFromRange_TwoDotKeepsBase(t *testing.T) {
	repo, _, m1, t1 := forkedRepo(t)

	ep, err := diff.EndpointsFromRange(context.Background(), repo, "master..topic")
	if err != nil {
		t.Fatalf("EndpointsFromRange() error = %v", err)
	}
	if ep.Base != m1 {
		t.Errorf("Base = %s, want master tip %s", ep.Base, m1)
	}
	if ep.Head != t1 {
		t.Errorf("Head = %s, want %s", ep.Head, t1)
	}
}

func TestEndpointsFromRange_ThreeDotUsesMergeBase(t *testing.T) {
	repo, base, m1, t1 := forkedRepo(t)
	ctx := context.Background()

	ep, err := diff.EndpointsFromRange(ctx, repo, "master...topic")
	if err != nil {
		t.Fatalf("EndpointsFromRange() error = %v", err)
	}
	if ep.Base != base {
		t.Errorf("Base = %s, want merge base %s", ep.Base, base)
	}
	if ep.Base == m1 {
		t.Error("three-dot range must not keep the left endpoint")
	}
	if ep.Head != t1 {
		t.Errorf("Head = %s, want %s", ep.Head, t1)
	}

	// Only the topic's change is new relative to the merge base.
	diffs, err := diff.Diff(ctx, repo, ep)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(diffs) != 1 || diffs[0].Path != "features/contrib/bob/a.yaml" || diffs[0].Kind != diff.KindAdded {
		t.Errorf("Diff() = %v, want one added manifest", diffs)
	}
}

func TestEndpointsFromRange_UnrelatedHistories(t *testing.T) {
	repo := gittest.New(t)
	repo.CommitFile("a.txt", "a")
	repo.Orphan("other")
	repo.CommitFile("b.txt", "b")

	_, err := diff.EndpointsFromRange(context.Background(), repo, "master...other")
	if !errors.Is(err, diff.ErrAmbiguousMergeBase) {
		t.Errorf("error = %v, want ErrAmbiguousMergeBase", err)
	}

	// The two-dot form needs no merge base.
	if _, err := diff.EndpointsFromRange(context.Background(), repo, "master..other"); err != nil {
		t.Errorf("two-dot range error = %v", err)
	}
}

func TestEndpointsFromRange_IdenticalEndpoints(t *testing.T) {
	repo := gittest.New(t)
	tip := repo.CommitFile("a.txt", "a")

	ep, err := diff.EndpointsFromRange(context.Background(), repo, "master...master")
	if err != nil {
		t.Fatalf("master...master error = %v", err)
	}
	if ep.Base != tip || ep.Head != tip {
		t.Errorf("Endpoints = %v, want %s..%s", ep, tip, tip)
	}
}

func TestEndpointsFromRange_UnknownRevision(t *testing.T) {
	repo := gittest.New(t)
	repo.CommitFile("a.txt", "a")

	_, err := diff.EndpointsFromRange(context.Background(), repo, "master..nope")
	if err == nil {
		t.Fatal("expected error for unknown revision")
	}
	if errors.Is(err, diff.ErrMalformedRange) {
		t.Error("unknown revision is not a malformed range")
	}
}

// fakeHead is a hand-written HeadOperations/RevisionOperations stub.
type fakeHead struct {
	ref     string
	parents []string
	revs    map[string]string
}

func (f *fakeHead) SymbolicRef(context.Context) (string, error) { return f.ref, nil }

func (f *fakeHead) Parents(context.Context, string) ([]string, error) { return f.parents, nil }

func (f *fakeHead) RevParse(_ context.Context, rev string) (string, error) {
	if sha, ok := f.revs[rev]; ok {
		return sha, nil
	}
	return "", errors.New("unknown revision " + rev)
}

func (f *fakeHead) DiffNameStatus(context.Context, string, string) ([]git.Change, error) {
	return []git.Change{
		{Status: 'A', Path: "features/contrib/bob/a.yaml"},
		{Status: 'R', Score: 100, OldPath: "x.yaml", Path: "y.yaml"},
		{Status: 'D', Path: "gone.txt"},
	}, nil
}

func (f *fakeHead) MergeBases(context.Context, string, string) ([]string, error) { return nil, nil }

func TestMergeDiffer(t *testing.T) {
	tests := []struct {
		name    string
		parents []string
		wantErr error
	}{
		{"merge", []string{"p1", "p2"}, nil},
		{"regular commit", []string{"p1"}, diff.ErrNotAMergeCommit},
		{"root commit", nil, diff.ErrNotAMergeCommit},
		{"octopus", []string{"p1", "p2", "p3"}, diff.ErrNotAMergeCommit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &diff.MergeDiffer{Store: &fakeHead{parents: tt.parents}}
			ep, err := d.Endpoints(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Endpoints() error = %v", err)
			}
			if ep.Base != "p1" || ep.Head != "p2" {
				t.Errorf("Endpoints() = %v, want p1..p2", ep)
			}
		})
	}
}

func TestPullRequestDiffer(t *testing.T) {
	revs := map[string]string{
		"master":             "m",
		"main":               "n",
		"refs/heads/pull/42": "p",
	}

	t.Run("pull request branch", func(t *testing.T) {
		d := &diff.PullRequestDiffer{Store: &fakeHead{ref: "refs/heads/pull/42", revs: revs}}
		ep, err := d.Endpoints(context.Background())
		if err != nil {
			t.Fatalf("Endpoints() error = %v", err)
		}
		if ep.Base != "m" || ep.Head != "p" {
			t.Errorf("Endpoints() = %v, want m..p", ep)
		}
	})

	t.Run("custom base ref", func(t *testing.T) {
		d := &diff.PullRequestDiffer{Store: &fakeHead{ref: "refs/heads/pull/42", revs: revs}, BaseRef: "main"}
		ep, err := d.Endpoints(context.Background())
		if err != nil {
			t.Fatalf("Endpoints() error = %v", err)
		}
		if ep.Base != "n" {
			t.Errorf("Base = %q, want n", ep.Base)
		}
	})

	for _, ref := range []string{"refs/heads/master", "", "refs/heads/pull/abc", "refs/pull/42/head"} {
		t.Run("mismatch "+ref, func(t *testing.T) {
			d := &diff.PullRequestDiffer{Store: &fakeHead{ref: ref, revs: revs}}
			if _, err := d.Endpoints(context.Background()); !errors.Is(err, diff.ErrEnvironmentMismatch) {
				t.Errorf("error = %v, want ErrEnvironmentMismatch", err)
			}
		})
	}
}

func TestCustomDiffer(t *testing.T) {
	store := &fakeHead{revs: map[string]string{"a": "sha-a", "b": "sha-b"}}

	ep, err := (&diff.CustomDiffer{Store: store, Base: "a", Head: "b"}).Endpoints(context.Background())
	if err != nil {
		t.Fatalf("Endpoints() error = %v", err)
	}
	if ep.Base != "sha-a" || ep.Head != "sha-b" {
		t.Errorf("Endpoints() = %v", ep)
	}

	if _, err := (&diff.CustomDiffer{Store: store, Base: "a", Head: "zzz"}).Endpoints(context.Background()); err == nil {
		t.Error("expected error for unknown head")
	}
}

func TestResolve_MapsKinds(t *testing.T) {
	store := &fakeHead{revs: map[string]string{"a": "1", "b": "2"}}
	ep, diffs, err := diff.Resolve(context.Background(), &diff.CustomDiffer{Store: store, Base: "a", Head: "b"}, store)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ep.String() != "1..2" {
		t.Errorf("Endpoints = %s, want 1..2", ep)
	}

	want := []diff.FileDiff{
		{Kind: diff.KindAdded, Path: "features/contrib/bob/a.yaml"},
		{Kind: diff.KindRenamed, OldPath: "x.yaml", Path: "y.yaml"},
		{Kind: diff.KindRemoved, Path: "gone.txt"},
	}
	if len(diffs) != len(want) {
		t.Fatalf("got %d diffs, want %d", len(diffs), len(want))
	}
	for i := range want {
		if diffs[i] != want[i] {
			t.Errorf("diffs[%d] = %v, want %v", i, diffs[i], want[i])
		}
	}
}
