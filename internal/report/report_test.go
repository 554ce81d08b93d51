package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ShayCichocki/contribgate/internal/checks"
	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/state"
	"github.com/ShayCichocki/contribgate/internal/validation"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{MaxReason: 20})

	res := &validation.Result{
		RunID: uuid.MustParse("12345678-1234-1234-1234-123456789abc"),
		Stages: []validation.StageResult{
			{Name: validation.StageProjectStructure, Outcome: validation.OutcomeRan, Duration: 12 * time.Millisecond},
			{Name: validation.StageFeatureAPI, Outcome: validation.OutcomeFailed, Reason: "contrib.bob.a: can_transform and more"},
		},
		Pruned: []contrib.Candidate{{Module: "contrib.alice.size"}},
		Err:    errors.New("feature_api: invalid feature API"),
	}
	out := r.Render(res)

	for _, want := range []string{
		"Validation 12345678",
		"project_structure",
		"ok",
		"FAILED",
		"contrib.bob.a: ca...",
		validation.PrunerMessage + "contrib.alice.size",
		"Result: FAILED",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "and more") {
		t.Errorf("reason was not truncated:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		max  int
		in   string
		want string
	}{
		{20, "short", "short"},
		{8, "line one\ntwo", "line ..."},
		{6, "héllo wörld", "hél..."},
		{4, "日本語のテキスト", "日..."},
		{3, "abcdef", "abc"},
		{2, "ñañaña", "ña"},
		{1, "ééé", "é"},
		{3, "abc", "abc"},
	}
	for _, tt := range tests {
		r := New(&bytes.Buffer{}, Options{MaxReason: tt.max})
		if got := r.truncate(tt.in); got != tt.want {
			t.Errorf("truncate(%q) with max %d = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if n := utf8.RuneCountInString(r.truncate(tt.in)); n > tt.max {
			t.Errorf("truncate(%q) has %d runes, want at most %d", tt.in, n, tt.max)
		}
	}
}

func TestRender_Skipped(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf, Options{}).Render(&validation.Result{
		Stages: []validation.StageResult{{Name: validation.StageFeaturePruning, Outcome: validation.OutcomeSkipped, Reason: "not on the main branch after a merge"}},
	})
	if !strings.Contains(out, "SKIPPED") || !strings.Contains(out, "Result: PASSED") {
		t.Errorf("Render() = %s", out)
	}

	out = New(&buf, Options{}).Render(&validation.Result{})
	if !strings.Contains(out, "no stages selected") {
		t.Errorf("Render() = %s", out)
	}
}

func TestRenderChecks(t *testing.T) {
	var buf bytes.Buffer
	rep := checks.Run([]checks.Check[int]{
		checks.New("positive", func(n int) (bool, error) { return n > 0, nil }),
		checks.New("even", func(n int) (bool, error) { return false, errors.New("odd number") }),
	}, 3)

	out := New(&buf, Options{}).RenderChecks("contrib.bob.a", rep)
	for _, want := range []string{"contrib.bob.a", "positive", "PASS", "even", "FAIL", "odd number"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderChecks() missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRuns(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, Options{})

	if out := r.RenderRuns(nil); !strings.Contains(out, "No recorded runs.") {
		t.Errorf("RenderRuns(nil) = %q", out)
	}

	out := r.RenderRuns([]state.Run{
		{ID: "abcdef0123456789", StartedAt: time.Now(), Outcome: state.OutcomePassed, CommitRange: "master...HEAD"},
		{ID: "short", StartedAt: time.Now(), Outcome: state.OutcomeFailed, Error: "feature rejected"},
	})
	for _, want := range []string{"abcdef01", "passed", "master...HEAD", "short", "failed", "feature rejected"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderRuns() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "abcdef0123") {
		t.Errorf("run id was not shortened:\n%s", out)
	}
}

func TestRenderRun(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf, Options{}).RenderRun(&state.Run{
		ID:          "abcdef0123456789",
		StartedAt:   time.Now(),
		CommitRange: "master...HEAD",
		Outcome:     state.OutcomeFailed,
		Error:       "feature_acceptance: feature rejected",
		Stages: []state.StageRecord{
			{Stage: validation.StageProjectStructure, Outcome: "ran", Duration: time.Second},
			{Stage: validation.StageFeatureAcceptance, Outcome: "failed", Reason: "feature rejected"},
		},
		Pruned: []string{"contrib.alice.size"},
	})
	for _, want := range []string{
		"Run abcdef0123456789",
		"master...HEAD",
		"project_structure",
		"feature_acceptance",
		"1s",
		validation.PrunerMessage + "contrib.alice.size",
		"Result: ",
		"failed",
		"feature_acceptance: feature rejected",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderRun() missing %q:\n%s", want, out)
		}
	}
}
