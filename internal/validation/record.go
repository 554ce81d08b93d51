package validation

import (
	"context"

	"github.com/ShayCichocki/contribgate/internal/state"
)

// LedgerRecorder records runs in the state ledger.
type LedgerRecorder struct {
	Store state.RunStore
}

// RecordRun implements Recorder.
func (l LedgerRecorder) RecordRun(ctx context.Context, r *Result) error {
	return l.Store.RecordRun(ctx, ToRun(r))
}

// ToRun converts a result into its ledger form.
func ToRun(r *Result) *state.Run {
	finished := r.FinishedAt
	run := &state.Run{
		ID:          r.RunID.String(),
		StartedAt:   r.StartedAt,
		FinishedAt:  &finished,
		CommitRange: r.CommitRange,
		Outcome:     state.OutcomePassed,
	}
	if r.Err != nil {
		run.Outcome = state.OutcomeFailed
		run.Error = r.Err.Error()
	}
	for _, s := range r.Stages {
		run.Stages = append(run.Stages, state.StageRecord{
			Stage:    s.Name,
			Outcome:  string(s.Outcome),
			Reason:   s.Reason,
			Duration: s.Duration,
		})
	}
	for _, c := range r.Pruned {
		run.Pruned = append(run.Pruned, c.Module)
	}
	return run
}

var _ Recorder = LedgerRecorder{}
