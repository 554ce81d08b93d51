package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/contribgate/internal/checks"
	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/evaluate"
	"github.com/ShayCichocki/contribgate/internal/logging"
	"github.com/ShayCichocki/contribgate/internal/project"
	"github.com/ShayCichocki/contribgate/internal/structure"
)

// PrunerMessage prefixes the log line of every pruned feature.
const PrunerMessage = "Found Redundant Feature: "

// Stage names.
const (
	StageProjectStructure  = "project_structure"
	StageFeatureAPI        = "feature_api"
	StageFeatureAcceptance = "feature_acceptance"
	StageFeaturePruning    = "feature_pruning"
)

var (
	ErrInvalidProjectStructure = errors.New("invalid project structure")
	ErrInvalidFeatureAPI       = errors.New("invalid feature API")
	ErrFeatureRejected         = errors.New("feature rejected")
)

// Outcome is the terminal state of a stage.
type Outcome string

const (
	OutcomeRan     Outcome = "ran"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// StageResult records how one stage ended.
type StageResult struct {
	Name    string
	Outcome Outcome
	// Reason explains a skip or a failure.
	Reason string
	Err    error
	// Failures names the checks that failed, when the stage runs checks.
	Failures []string
	Duration time.Duration
}

// StageError is returned when a stage fails. Err is the stage's failure
// sentinel and is nil when the stage failed with an unexpected error.
type StageError struct {
	Stage    string
	Err      error
	Cause    error
	Failures []string
}

func (e *StageError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Stage)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Failures) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(e.Failures, ", "))
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *StageError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Project is the view of a checkout the stages need.
type Project interface {
	OnPullRequest() bool
	OnMainAfterMerge() bool
	LoadData() (evaluate.Dataset, error)
	Build(ctx context.Context) (*project.BuildOutput, error)
	ChangeSet(ctx context.Context) (*structure.ChangeSet, error)
	ProposedCandidate(ctx context.Context) (contrib.Candidate, error)
}

// Env is what a running stage works with.
type Env struct {
	Project Project
	Factory evaluate.Factory
	Log     logging.Logger

	// Failures is set by stages that run checks.
	Failures []string
	// Pruned is set by the pruning stage.
	Pruned []contrib.Candidate
}

// Stage is one step of a validation run.
type Stage struct {
	Name    string
	Message string
	// Skip returns a non-empty reason when the stage should not run.
	Skip func(p Project, force bool) string
	// Run returns false when the stage's verdict is negative.
	Run func(ctx context.Context, env *Env) (bool, error)
	// FailErr is wrapped by the StageError of a negative verdict.
	FailErr error
}

func skipUnlessPullRequest(p Project, force bool) string {
	if force || p.OnPullRequest() {
		return ""
	}
	return "not on a pull request"
}

func skipUnlessMainAfterMerge(p Project, force bool) string {
	if force || p.OnMainAfterMerge() {
		return ""
	}
	return "not on the main branch after a merge"
}

// Stages returns the built-in stages in run order.
func Stages() []Stage {
	return []Stage{
		{
			Name:    StageProjectStructure,
			Message: "checking project structure",
			Skip:    skipUnlessPullRequest,
			Run:     checkProjectStructure,
			FailErr: ErrInvalidProjectStructure,
		},
		{
			Name:    StageFeatureAPI,
			Message: "validating feature API",
			Skip:    skipUnlessPullRequest,
			Run:     validateFeatureAPI,
			FailErr: ErrInvalidFeatureAPI,
		},
		{
			Name:    StageFeatureAcceptance,
			Message: "evaluating feature performance",
			Skip:    skipUnlessPullRequest,
			Run:     evaluateFeatureAcceptance,
			FailErr: ErrFeatureRejected,
		},
		{
			Name:    StageFeaturePruning,
			Message: "pruning existing features",
			Skip:    skipUnlessMainAfterMerge,
			Run:     pruneExistingFeatures,
		},
	}
}

func checkProjectStructure(ctx context.Context, env *Env) (bool, error) {
	cs, err := env.Project.ChangeSet(ctx)
	if err != nil {
		return false, err
	}
	report := checks.ProjectStructure().Run(cs)
	env.Failures = report.Failures()
	for _, o := range report.Outcomes() {
		env.Log.Debug("structure check", "check", o.Name, "passed", o.Passed, "error", o.Err)
	}
	return report.Passed(), nil
}

func validateFeatureAPI(ctx context.Context, env *Env) (bool, error) {
	cs, err := env.Project.ChangeSet(ctx)
	if err != nil {
		return false, err
	}
	if len(cs.Candidates) == 0 {
		env.Log.Info("no new features to validate")
		return false, nil
	}
	ds, err := env.Project.LoadData()
	if err != nil {
		return false, err
	}

	passed := true
	for _, c := range cs.Candidates {
		report, failures := checks.ValidateFeature(c.Feature, ds.X, ds.Y)
		for _, name := range failures {
			env.Failures = append(env.Failures, c.Module+": "+name)
		}
		if !report.Passed() {
			passed = false
			env.Log.Info("feature failed API checks", "module", c.Module, "failures", strings.Join(failures, ","), "error", report.Err())
		}
	}
	return passed, nil
}

func evaluateFeatureAcceptance(ctx context.Context, env *Env) (bool, error) {
	ds, proposed, accepted, err := evaluationInputs(ctx, env.Project)
	if err != nil {
		return false, err
	}
	ok, err := env.Factory.NewAccepter(ds, accepted).Judge(ctx, proposed)
	if err != nil {
		return false, fmt.Errorf("judge %s: %w", proposed.Module, err)
	}
	env.Log.Info("judged feature", "module", proposed.Module, "accepted", ok)
	return ok, nil
}

func pruneExistingFeatures(ctx context.Context, env *Env) (bool, error) {
	ds, proposed, accepted, err := evaluationInputs(ctx, env.Project)
	if errors.Is(err, project.ErrNoProposedFeature) {
		env.Log.Info("merge added no feature, nothing to prune")
		env.Pruned = []contrib.Candidate{}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	redundant, err := env.Factory.NewPruner(ds, accepted, proposed).Prune(ctx)
	if err != nil {
		return false, fmt.Errorf("prune: %w", err)
	}
	for _, c := range redundant {
		env.Log.Info(PrunerMessage + c.Module)
	}
	env.Pruned = redundant
	return true, nil
}

func evaluationInputs(ctx context.Context, p Project) (evaluate.Dataset, contrib.Candidate, []contrib.Candidate, error) {
	out, err := p.Build(ctx)
	if err != nil {
		return evaluate.Dataset{}, contrib.Candidate{}, nil, err
	}
	proposed, err := p.ProposedCandidate(ctx)
	if err != nil {
		return evaluate.Dataset{}, contrib.Candidate{}, nil, err
	}
	return out.Dataset, proposed, project.AcceptedCandidates(out.Candidates, proposed), nil
}
