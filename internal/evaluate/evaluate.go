// Package evaluate defines the acceptance and pruning evaluators used by
// the validation stages, plus deterministic duplicate-detection evaluators.
package evaluate

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/feature"
)

// Dataset is the development data features are evaluated against.
type Dataset struct {
	X *feature.Frame
	Y []float64
}

// Accepter decides whether a proposed feature should be accepted.
type Accepter interface {
	Judge(ctx context.Context, proposed contrib.Candidate) (bool, error)
}

// Pruner returns the accepted features made redundant by a newly
// accepted one.
type Pruner interface {
	Prune(ctx context.Context) ([]contrib.Candidate, error)
}

// Factory builds evaluators for one run.
type Factory interface {
	NewAccepter(ds Dataset, accepted []contrib.Candidate) Accepter
	NewPruner(ds Dataset, accepted []contrib.Candidate, proposed contrib.Candidate) Pruner
}

// DefaultFactory builds the duplicate-detection evaluators.
type DefaultFactory struct{}

func (DefaultFactory) NewAccepter(ds Dataset, accepted []contrib.Candidate) Accepter {
	return &DuplicateAccepter{Data: ds, Accepted: accepted}
}

func (DefaultFactory) NewPruner(ds Dataset, accepted []contrib.Candidate, proposed contrib.Candidate) Pruner {
	return &DuplicatePruner{Data: ds, Accepted: accepted, Proposed: proposed}
}

// DuplicateAccepter rejects a feature that produces no columns or whose
// output exactly duplicates an accepted feature's output.
type DuplicateAccepter struct {
	Data     Dataset
	Accepted []contrib.Candidate
}

// Judge implements Accepter.
func (a *DuplicateAccepter) Judge(ctx context.Context, proposed contrib.Candidate) (bool, error) {
	out, err := output(a.Data, proposed)
	if err != nil {
		return false, err
	}
	if out.Width() == 0 {
		return false, nil
	}
	for _, c := range a.Accepted {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		other, err := output(a.Data, c)
		if err != nil {
			// A broken accepted feature cannot be duplicated.
			continue
		}
		if out.SameValues(other) {
			return false, nil
		}
	}
	return true, nil
}

// DuplicatePruner prunes accepted features whose output exactly
// duplicates the proposed feature's output.
type DuplicatePruner struct {
	Data     Dataset
	Accepted []contrib.Candidate
	Proposed contrib.Candidate
}

// Prune implements Pruner.
func (p *DuplicatePruner) Prune(ctx context.Context) ([]contrib.Candidate, error) {
	out, err := output(p.Data, p.Proposed)
	if err != nil {
		return nil, err
	}
	var redundant []contrib.Candidate
	for _, c := range p.Accepted {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Module == p.Proposed.Module {
			continue
		}
		other, err := output(p.Data, c)
		if err != nil {
			continue
		}
		if out.SameValues(other) {
			redundant = append(redundant, c)
		}
	}
	return redundant, nil
}

// output fits a clone of the candidate's feature and transforms the data.
func output(ds Dataset, c contrib.Candidate) (*feature.Frame, error) {
	if c.Feature == nil {
		return nil, fmt.Errorf("candidate %s has no feature", c.Module)
	}
	f, err := c.Feature.Clone()
	if err != nil {
		return nil, err
	}
	out, err := f.Apply(ds.X, ds.Y)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", c.Module, err)
	}
	return out, nil
}

// Verify the evaluators implement their interfaces at compile time.
var (
	_ Accepter = (*DuplicateAccepter)(nil)
	_ Pruner   = (*DuplicatePruner)(nil)
	_ Factory  = DefaultFactory{}
)
