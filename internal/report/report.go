// Package report renders validation results for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/contribgate/internal/checks"
	"github.com/ShayCichocki/contribgate/internal/state"
	"github.com/ShayCichocki/contribgate/internal/validation"
)

// Options tune rendering.
type Options struct {
	// MaxReason truncates stage reasons. Zero means 72.
	MaxReason int
}

// Renderer renders reports with styles matched to its output.
type Renderer struct {
	opts Options

	headerStyle  lipgloss.Style
	nameStyle    lipgloss.Style
	okStyle      lipgloss.Style
	skipStyle    lipgloss.Style
	failStyle    lipgloss.Style
	dimStyle     lipgloss.Style
	prunedStyle  lipgloss.Style
	summaryStyle lipgloss.Style
}

// New creates a renderer whose color profile is detected from w.
func New(w io.Writer, opts Options) *Renderer {
	if opts.MaxReason <= 0 {
		opts.MaxReason = 72
	}
	r := lipgloss.NewRenderer(w)
	return &Renderer{
		opts: opts,

		headerStyle: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")),

		nameStyle: r.NewStyle().
			Foreground(lipgloss.Color("252")).
			Width(22),

		okStyle: r.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true).
			Width(9),

		skipStyle: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Width(9),

		failStyle: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Width(9),

		dimStyle: r.NewStyle().
			Foreground(lipgloss.Color("244")),

		prunedStyle: r.NewStyle().
			Foreground(lipgloss.Color("63")),

		summaryStyle: r.NewStyle().
			Bold(true).
			MarginTop(1),
	}
}

func (r *Renderer) outcome(label string, passed, skipped bool) string {
	switch {
	case skipped:
		return r.skipStyle.Render(label)
	case passed:
		return r.okStyle.Render(label)
	default:
		return r.failStyle.Render(label)
	}
}

// truncate shortens s to MaxReason runes, ending in "..." when there is
// room for it.
func (r *Renderer) truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	limit := r.opts.MaxReason
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// Render lists the stage outcomes, pruned features and the overall verdict
// of a validation run.
func (r *Renderer) Render(res *validation.Result) string {
	var rows []string
	rows = append(rows, r.headerStyle.Render(fmt.Sprintf("Validation %s", shortID(res.RunID.String()))))

	if len(res.Stages) == 0 {
		rows = append(rows, r.dimStyle.Render("no stages selected"))
	}
	for _, s := range res.Stages {
		var label string
		switch s.Outcome {
		case validation.OutcomeRan:
			label = "ok"
		case validation.OutcomeSkipped:
			label = "SKIPPED"
		default:
			label = "FAILED"
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top,
			r.nameStyle.Render(s.Name),
			r.outcome(label, s.Outcome == validation.OutcomeRan, s.Outcome == validation.OutcomeSkipped),
			r.dimStyle.Render(fmt.Sprintf("%8s", s.Duration.Round(time.Millisecond))),
		)
		if s.Reason != "" {
			line += "  " + r.dimStyle.Render(r.truncate(s.Reason))
		}
		rows = append(rows, line)
	}

	for _, c := range res.Pruned {
		rows = append(rows, r.prunedStyle.Render(validation.PrunerMessage+c.Module))
	}

	verdict := r.okStyle.UnsetWidth().Render("PASSED")
	if !res.Passed() {
		verdict = r.failStyle.UnsetWidth().Render("FAILED")
	}
	rows = append(rows, r.summaryStyle.Render("Result: ")+verdict)
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

// RenderChecks lists the outcome of each check in a report.
func (r *Renderer) RenderChecks(title string, rep checks.Report) string {
	rows := []string{r.headerStyle.Render(title)}
	for _, o := range rep.Outcomes() {
		label := "PASS"
		if !o.Passed {
			label = "FAIL"
		}
		line := r.nameStyle.Width(32).Render(o.Name) + r.outcome(label, o.Passed, false)
		if o.Err != nil {
			line += "  " + r.dimStyle.Render(r.truncate(o.Err.Error()))
		}
		rows = append(rows, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

// RenderRuns lists recorded runs, most recent first.
func (r *Renderer) RenderRuns(runs []state.Run) string {
	if len(runs) == 0 {
		return r.dimStyle.Render("No recorded runs.") + "\n"
	}
	rows := []string{r.headerStyle.Render("Recent validation runs")}
	for _, run := range runs {
		line := r.nameStyle.Width(10).Render(shortID(run.ID)) +
			r.dimStyle.Render(run.StartedAt.Local().Format("2006-01-02 15:04:05")) + "  " +
			r.outcome(run.Outcome, run.Outcome == state.OutcomePassed, false)
		if run.CommitRange != "" {
			line += r.dimStyle.Render(run.CommitRange)
		}
		if run.Error != "" {
			line += "  " + r.dimStyle.Render(r.truncate(run.Error))
		}
		rows = append(rows, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

// RenderRun shows one recorded run with its stage results.
func (r *Renderer) RenderRun(run *state.Run) string {
	rows := []string{r.headerStyle.Render(fmt.Sprintf("Run %s", run.ID))}
	rows = append(rows, r.dimStyle.Render("started  "+run.StartedAt.Local().Format("2006-01-02 15:04:05")))
	if run.CommitRange != "" {
		rows = append(rows, r.dimStyle.Render("range    "+run.CommitRange))
	}
	for _, s := range run.Stages {
		line := r.nameStyle.Render(s.Stage) +
			r.outcome(s.Outcome, s.Outcome == string(validation.OutcomeRan), s.Outcome == string(validation.OutcomeSkipped)) +
			r.dimStyle.Render(fmt.Sprintf("%8s", s.Duration))
		if s.Reason != "" {
			line += "  " + r.dimStyle.Render(r.truncate(s.Reason))
		}
		rows = append(rows, line)
	}
	for _, m := range run.Pruned {
		rows = append(rows, r.prunedStyle.Render(validation.PrunerMessage+m))
	}
	verdict := r.outcome(run.Outcome, run.Outcome == state.OutcomePassed, false)
	rows = append(rows, r.summaryStyle.Render("Result: ")+verdict)
	if run.Error != "" {
		rows = append(rows, r.dimStyle.Render(run.Error))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
