// Package validation runs contributed features through the staged
// validation process: project structure, feature API, acceptance and
// pruning.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/evaluate"
	"github.com/ShayCichocki/contribgate/internal/logging"
)

// Selection enables stages individually.
type Selection struct {
	ProjectStructure  bool
	FeatureAPI        bool
	FeatureAcceptance bool
	FeaturePruning    bool
}

// All enables every stage.
func All() Selection {
	return Selection{ProjectStructure: true, FeatureAPI: true, FeatureAcceptance: true, FeaturePruning: true}
}

// Enabled reports whether the named stage is selected. Unknown names are
// never enabled.
func (s Selection) Enabled(name string) bool {
	switch name {
	case StageProjectStructure:
		return s.ProjectStructure
	case StageFeatureAPI:
		return s.FeatureAPI
	case StageFeatureAcceptance:
		return s.FeatureAcceptance
	case StageFeaturePruning:
		return s.FeaturePruning
	}
	return false
}

// Any reports whether at least one stage is selected.
func (s Selection) Any() bool {
	return s.ProjectStructure || s.FeatureAPI || s.FeatureAcceptance || s.FeaturePruning
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, r *Result) error
}

// Options configures a Validator.
type Options struct {
	Stages Selection
	// Force runs stages regardless of the build context.
	Force bool
	// Factory builds the acceptance and pruning evaluators.
	// Defaults to evaluate.DefaultFactory.
	Factory  evaluate.Factory
	Logger   logging.Logger
	Recorder Recorder
	// CommitRange is recorded with the run.
	CommitRange string
}

// Result is the outcome of one validation run.
type Result struct {
	RunID       uuid.UUID
	CommitRange string
	StartedAt   time.Time
	FinishedAt  time.Time
	Stages      []StageResult
	// Pruned lists the accepted features made redundant.
	Pruned []contrib.Candidate
	// Err is the first stage failure, or nil.
	Err error
}

// Passed reports whether no stage failed.
func (r *Result) Passed() bool { return r.Err == nil }

// Stage returns the result of the named stage.
func (r *Result) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Summary returns a plain text summary of the run.
func (r *Result) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Validation run %s:\n", r.RunID)
	for _, s := range r.Stages {
		fmt.Fprintf(&sb, "  %-20s %-8s %v", s.Name, s.Outcome, s.Duration.Round(time.Millisecond))
		if s.Reason != "" {
			fmt.Fprintf(&sb, "  %s", s.Reason)
		}
		sb.WriteString("\n")
	}
	for _, c := range r.Pruned {
		fmt.Fprintf(&sb, "  %s%s\n", PrunerMessage, c.Module)
	}
	if r.Err != nil {
		fmt.Fprintf(&sb, "FAILED: %v\n", r.Err)
	} else {
		sb.WriteString("OK\n")
	}
	return sb.String()
}

// Validator runs the selected stages against a project.
type Validator struct {
	stages []Stage
	opts   Options
	log    logging.Logger
}

// New creates a validator over the built-in stages.
func New(opts Options) *Validator {
	return NewWithStages(Stages(), opts)
}

// NewWithStages creates a validator over custom stages. Stage selection
// still applies to the built-in names; custom names always run.
func NewWithStages(stages []Stage, opts Options) *Validator {
	if opts.Factory == nil {
		opts.Factory = evaluate.DefaultFactory{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Validator{stages: stages, opts: opts, log: log}
}

func (v *Validator) selected(name string) bool {
	switch name {
	case StageProjectStructure, StageFeatureAPI, StageFeatureAcceptance, StageFeaturePruning:
		return v.opts.Stages.Enabled(name)
	}
	return true
}

// Validate runs the selected stages in order, stopping at the first
// failure. Skipped stages do not fail the run.
func (v *Validator) Validate(ctx context.Context, p Project) *Result {
	res := &Result{
		RunID:       runID(p),
		CommitRange: v.opts.CommitRange,
		StartedAt:   time.Now(),
	}
	log := logging.With(v.log, "run", res.RunID.String())

	for _, st := range v.stages {
		if !v.selected(st.Name) {
			continue
		}
		sr, env := v.runStage(ctx, st, p, log)
		res.Stages = append(res.Stages, sr)
		if env != nil && env.Pruned != nil {
			res.Pruned = env.Pruned
		}
		if sr.Outcome == OutcomeFailed {
			res.Err = sr.Err
			break
		}
	}
	res.FinishedAt = time.Now()

	if v.opts.Recorder != nil {
		if err := v.opts.Recorder.RecordRun(ctx, res); err != nil {
			log.Warn("failed to record run", "error", err)
		}
	}
	return res
}

func (v *Validator) runStage(ctx context.Context, st Stage, p Project, log logging.Logger) (StageResult, *Env) {
	start := time.Now()
	sr := StageResult{Name: st.Name}
	done := logging.Stage(log, st.Message, "stage", st.Name)

	if st.Skip != nil {
		if reason := st.Skip(p, v.opts.Force); reason != "" {
			sr.Outcome = OutcomeSkipped
			sr.Reason = reason
			sr.Duration = time.Since(start)
			done("SKIPPED", "reason", reason)
			return sr, nil
		}
	}

	env := &Env{Project: p, Factory: v.opts.Factory, Log: log}
	ok, err := safeRun(ctx, st, env)
	sr.Duration = time.Since(start)
	sr.Failures = env.Failures

	switch {
	case err != nil:
		sr.Outcome = OutcomeFailed
		sr.Reason = err.Error()
		sr.Err = &StageError{Stage: st.Name, Cause: err}
		done("FAILED", "error", err)
	case !ok:
		sr.Outcome = OutcomeFailed
		sr.Reason = failReason(st, env.Failures)
		sr.Err = &StageError{Stage: st.Name, Err: failErr(st), Failures: env.Failures}
		done("FAILED", "failures", strings.Join(env.Failures, ","))
	default:
		sr.Outcome = OutcomeRan
		done("ok", "duration", sr.Duration)
	}
	return sr, env
}

func safeRun(ctx context.Context, st Stage, env *Env) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic in stage %s: %v", st.Name, r)
		}
	}()
	return st.Run(ctx, env)
}

func failErr(st Stage) error {
	if st.FailErr != nil {
		return st.FailErr
	}
	return errors.New("stage verdict negative")
}

func failReason(st Stage, failures []string) string {
	if len(failures) > 0 {
		return strings.Join(failures, ", ")
	}
	return failErr(st).Error()
}

func runID(p Project) uuid.UUID {
	if r, ok := p.(interface{ RunID() uuid.UUID }); ok {
		return r.RunID()
	}
	return uuid.New()
}
