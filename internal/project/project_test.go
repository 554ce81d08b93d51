package project

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ShayCichocki/contribgate/internal/ci"
	"github.com/ShayCichocki/contribgate/internal/config"
	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/diff"
	"github.com/ShayCichocki/contribgate/internal/project/projecttest"
)

func TestReadDataset(t *testing.T) {
	ds, err := ReadDataset(strings.NewReader(projecttest.Data), "target")
	if err != nil {
		t.Fatalf("ReadDataset() error = %v", err)
	}
	if got := ds.X.Names(); strings.Join(got, ",") != "size,age,rooms" {
		t.Errorf("X names = %v, want size,age,rooms", got)
	}
	if ds.X.Rows() != 4 || len(ds.Y) != 4 {
		t.Fatalf("rows = %d/%d, want 4", ds.X.Rows(), len(ds.Y))
	}
	if ds.Y[3] != 16 {
		t.Errorf("Y[3] = %v, want 16", ds.Y[3])
	}
	age, _ := ds.X.Column("age")
	if !math.IsNaN(age[1]) {
		t.Errorf("age[1] = %v, want NaN", age[1])
	}
}

func TestReadDataset_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"no target", "a,b\n1,2\n", ErrNoTarget},
		{"empty", "", nil},
		{"not a number", "a,target\nx,1\n", nil},
		{"ragged", "a,target\n1\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(tt.data), "target")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadDataset_NoRows(t *testing.T) {
	ds, err := ReadDataset(strings.NewReader("a,target\n"), "target")
	if err != nil {
		t.Fatalf("ReadDataset() error = %v", err)
	}
	if ds.X.Rows() != 0 || ds.X.Width() != 1 || len(ds.Y) != 0 {
		t.Errorf("dataset = %d rows %d cols %d targets", ds.X.Rows(), ds.X.Width(), len(ds.Y))
	}
}

func TestProject_Build(t *testing.T) {
	repo := projecttest.New(t)
	p := New(repo.Dir, config.Default(), repo, &ci.Static{Name: "test"}, Options{})

	out, err := p.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(out.Candidates) != 1 || out.Candidates[0].Module != "contrib.alice.size" {
		t.Errorf("candidates = %v, want [contrib.alice.size]", out.Candidates)
	}
	if len(out.Pipeline.Features()) != 1 {
		t.Errorf("pipeline has %d features, want 1", len(out.Pipeline.Features()))
	}
	if out.Dataset.X.Width() != 3 {
		t.Errorf("X width = %d, want 3", out.Dataset.X.Width())
	}
}

func TestProject_Build_MissingData(t *testing.T) {
	repo := projecttest.New(t)
	cfg := config.Default()
	cfg.Data.Path = "data/absent.csv"
	p := New(repo.Dir, cfg, repo, nil, Options{})

	if _, err := p.Build(context.Background()); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestProject_ChangeSet_PullRequest(t *testing.T) {
	repo := projecttest.New(t)
	ctx := context.Background()
	repo.Must(repo.CheckoutNewBranch(ctx, "pull/1"))
	repo.Write("features/contrib/bob/age.yaml", projecttest.AgeFeature)
	repo.Write("README.md", "docs\n")
	repo.CommitAll("Add age feature")

	p := New(repo.Dir, config.Default(), repo, &ci.Static{Name: "test", PR: 1}, Options{})
	if !p.OnPullRequest() || p.OnMainAfterMerge() {
		t.Fatal("project should be on a pull request")
	}
	if _, ok := p.Differ().(*diff.PullRequestDiffer); !ok {
		t.Errorf("Differ() = %T, want *diff.PullRequestDiffer", p.Differ())
	}

	cs, err := p.ChangeSet(ctx)
	if err != nil {
		t.Fatalf("ChangeSet() error = %v", err)
	}
	if len(cs.Diffs) != 2 {
		t.Errorf("diffs = %v, want 2", cs.Diffs)
	}
	if got := cs.Partition.AdmissiblePaths(); len(got) != 1 || got[0] != "features/contrib/bob/age.yaml" {
		t.Errorf("admissible = %v", got)
	}
	if len(cs.Partition.Inadmissible) != 1 || cs.Partition.Inadmissible[0].Diff.Path != "README.md" {
		t.Errorf("inadmissible = %v", cs.Partition.Inadmissible)
	}

	again, err := p.ChangeSet(ctx)
	if err != nil || again != cs {
		t.Error("ChangeSet() should be computed once")
	}

	proposed, err := p.ProposedCandidate(ctx)
	if err != nil {
		t.Fatalf("ProposedCandidate() error = %v", err)
	}
	if proposed.Module != "contrib.bob.age" {
		t.Errorf("proposed = %s, want contrib.bob.age", proposed.Module)
	}

	out, err := p.Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	accepted := AcceptedCandidates(out.Candidates, proposed)
	if len(accepted) != 1 || accepted[0].Module != "contrib.alice.size" {
		t.Errorf("accepted = %v, want [contrib.alice.size]", accepted)
	}
	for _, c := range out.Candidates {
		if c.Module == proposed.Module && c.Feature != proposed.Feature {
			t.Error("modules should be loaded once per run")
		}
	}
}

func TestProject_ProposedCandidate_Counts(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  error
	}{
		{"none", map[string]string{"notes.txt": "x"}, ErrNoProposedFeature},
		{"two", map[string]string{
			"features/contrib/bob/age.yaml":   projecttest.AgeFeature,
			"features/contrib/bob/rooms.yaml": projecttest.RoomsFeature,
		}, ErrTooManyProposedFeatures},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := projecttest.New(t)
			ctx := context.Background()
			repo.Must(repo.CheckoutNewBranch(ctx, "pull/2"))
			for path, content := range tt.files {
				repo.Write(path, content)
			}
			repo.CommitAll("Change")

			p := New(repo.Dir, config.Default(), repo, &ci.Static{PR: 2}, Options{})
			if _, err := p.ProposedCandidate(ctx); !errors.Is(err, tt.want) {
				t.Errorf("ProposedCandidate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProject_ChangeSet_AfterMerge(t *testing.T) {
	repo := projecttest.New(t)
	ctx := context.Background()
	repo.Must(repo.CheckoutNewBranch(ctx, "pull/4"))
	repo.CommitFile("features/contrib/bob/rooms.yaml", projecttest.RoomsFeature)
	repo.Must(repo.Checkout(ctx, "master"))
	repo.Must(repo.MergeNoFF(ctx, "pull/4", "Merge pull request #4"))

	p := New(repo.Dir, config.Default(), repo, &ci.Static{MainAfterMerge: true}, Options{})
	proposed, err := p.ProposedCandidate(ctx)
	if err != nil {
		t.Fatalf("ProposedCandidate() error = %v", err)
	}
	if proposed.Module != "contrib.bob.rooms" {
		t.Errorf("proposed = %s, want contrib.bob.rooms", proposed.Module)
	}
}

func TestAcceptedCandidates(t *testing.T) {
	all := []contrib.Candidate{{Module: "a"}, {Module: "b"}, {Module: "c"}}
	got := AcceptedCandidates(all, contrib.Candidate{Module: "b"})
	if len(got) != 2 || got[0].Module != "a" || got[1].Module != "c" {
		t.Errorf("AcceptedCandidates() = %v", got)
	}
	if got := AcceptedCandidates(all, contrib.Candidate{Module: "z"}); len(got) != 3 {
		t.Errorf("AcceptedCandidates() = %v, want all", got)
	}
}
