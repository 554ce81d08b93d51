// Package project ties a checkout, its configuration and its build context
// together: it loads the development dataset, collects accepted features
// and resolves the change set of the current run.
package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/contribgate/internal/ci"
	"github.com/ShayCichocki/contribgate/internal/config"
	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/diff"
	"github.com/ShayCichocki/contribgate/internal/evaluate"
	"github.com/ShayCichocki/contribgate/internal/feature"
	"github.com/ShayCichocki/contribgate/internal/git"
	"github.com/ShayCichocki/contribgate/internal/logging"
	"github.com/ShayCichocki/contribgate/internal/structure"
)

var (
	// ErrNoProposedFeature is returned when the changes add no feature.
	ErrNoProposedFeature = errors.New("no proposed feature in changes")
	// ErrTooManyProposedFeatures is returned when the changes add more
	// than one feature.
	ErrTooManyProposedFeatures = errors.New("more than one proposed feature in changes")
)

// Options holds optional project dependencies.
type Options struct {
	Logger       logging.Logger
	Transformers *feature.Registry
}

// Project is one checkout being validated. A Project serves a single
// validation run: modules are loaded at most once and the change set is
// resolved once.
type Project struct {
	Root   string
	Config *config.Config
	Store  git.Store
	CI     ci.Context

	log       logging.Logger
	collector *contrib.Collector

	mu        sync.Mutex
	changeSet *structure.ChangeSet
}

// BuildOutput is the result of building the project.
type BuildOutput struct {
	Dataset    evaluate.Dataset
	Candidates []contrib.Candidate
	Pipeline   *feature.Pipeline
}

// New creates a project rooted at root.
func New(root string, cfg *config.Config, store git.Store, buildCtx ci.Context, opts Options) *Project {
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	p := &Project{
		Root:   root,
		Config: cfg,
		Store:  store,
		CI:     buildCtx,
		log:    log,
	}
	p.collector = contrib.NewCollector(contrib.Options{
		RepoRoot:     root,
		ContribRoot:  cfg.Project.ContribRoot,
		Package:      cfg.Project.Package,
		Extension:    cfg.Project.Extension,
		Transformers: opts.Transformers,
		Logger:       log,
	})
	return p
}

// RunID identifies the validation run this project serves.
func (p *Project) RunID() uuid.UUID { return p.collector.RunID() }

// Collector returns the run's feature collector.
func (p *Project) Collector() *contrib.Collector { return p.collector }

// OnPullRequest reports whether the run checks a pull request.
func (p *Project) OnPullRequest() bool { return p.CI != nil && p.CI.OnPullRequest() }

// OnMainAfterMerge reports whether the run checks the main line after a merge.
func (p *Project) OnMainAfterMerge() bool { return p.CI != nil && p.CI.OnMainAfterMerge() }

// Rules returns the admissibility rules from the project config.
func (p *Project) Rules() structure.Rules {
	return structure.Rules{
		ContribRoot: p.Config.Project.ContribRoot,
		Extension:   p.Config.Project.Extension,
		Depth:       p.Config.Project.Depth,
		Exclude:     p.Config.Project.Exclude,
	}
}

// LoadData reads the development dataset named by the config.
func (p *Project) LoadData() (evaluate.Dataset, error) {
	path := p.Config.Data.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	return LoadDataset(path, p.Config.Data.Target)
}

// Build loads the dataset and every feature in the contribution subtree.
func (p *Project) Build(ctx context.Context) (*BuildOutput, error) {
	ds, err := p.LoadData()
	if err != nil {
		return nil, err
	}
	cands, err := p.collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect features: %w", err)
	}

	features := make([]*feature.Feature, len(cands))
	for i, c := range cands {
		features[i] = c.Feature
	}
	p.log.Debug("built project", "features", len(cands), "rows", ds.X.Rows())
	return &BuildOutput{Dataset: ds, Candidates: cands, Pipeline: feature.NewPipeline(features)}, nil
}

// Differ chooses the diff resolver for the build context.
func (p *Project) Differ() diff.Differ {
	c := p.CI
	if c == nil {
		c = &ci.Static{Name: "local"}
	}
	return ci.Differ(c, p.Store, p.Config.Project.MainBranch)
}

// ChangeSet resolves and classifies the run's changes and loads the
// candidates from the admissible paths. The result is computed once.
func (p *Project) ChangeSet(ctx context.Context) (*structure.ChangeSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.changeSet != nil {
		return p.changeSet, nil
	}

	ep, diffs, err := diff.Resolve(ctx, p.Differ(), p.Store)
	if err != nil {
		return nil, err
	}
	part := structure.Classify(diffs, p.Rules())
	for _, e := range part.Inadmissible {
		p.log.Debug("inadmissible change", "path", e.Diff.Path, "reason", string(e.Reason))
	}

	cands, err := p.collector.CollectPaths(ctx, part.AdmissiblePaths())
	if err != nil {
		return nil, fmt.Errorf("collect changed features: %w", err)
	}

	p.changeSet = &structure.ChangeSet{
		Endpoints:  ep,
		Diffs:      diffs,
		Partition:  part,
		Candidates: cands,
	}
	p.log.Debug("resolved changes", "range", ep.String(), "diffs", len(diffs), "candidates", len(cands))
	return p.changeSet, nil
}

// ProposedCandidate returns the one feature added by the run's changes.
func (p *Project) ProposedCandidate(ctx context.Context) (contrib.Candidate, error) {
	cs, err := p.ChangeSet(ctx)
	if err != nil {
		return contrib.Candidate{}, err
	}
	switch len(cs.Candidates) {
	case 0:
		return contrib.Candidate{}, ErrNoProposedFeature
	case 1:
		return cs.Candidates[0], nil
	default:
		return contrib.Candidate{}, fmt.Errorf("%w: %d", ErrTooManyProposedFeatures, len(cs.Candidates))
	}
}

// AcceptedCandidates returns all candidates except the proposed one.
func AcceptedCandidates(all []contrib.Candidate, proposed contrib.Candidate) []contrib.Candidate {
	out := make([]contrib.Candidate, 0, len(all))
	for _, c := range all {
		if c.Module != proposed.Module {
			out = append(out, c)
		}
	}
	return out
}
