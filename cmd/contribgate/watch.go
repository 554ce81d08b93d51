package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/checks"
	"github.com/ShayCichocki/contribgate/internal/evaluate"
	"github.com/ShayCichocki/contribgate/internal/project"
	"github.com/ShayCichocki/contribgate/internal/report"
	"github.com/ShayCichocki/contribgate/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check feature manifests as they change",
	Long: `Watch the contribution tree and run the feature API checks against
each manifest when it is created or modified.

The development dataset is loaded once at startup. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.openRepo(ctx); err != nil {
		return err
	}

	ds, err := project.New(s.root, s.cfg, s.store, nil, project.Options{Logger: s.log}).LoadData()
	if err != nil {
		return runtimeErr(err)
	}

	out := cmd.OutOrStdout()
	checker := &manifestChecker{s: s, data: ds, out: out, r: report.New(out, report.Options{})}

	dir := resolvePath(s.root, s.cfg.Project.ContribRoot)
	w, err := watch.New(watch.Options{
		Root:      dir,
		Extension: s.cfg.Project.Extension,
		Debounce:  s.cfg.Watch.Debounce,
		Logger:    s.log,
	}, func(path string) { checker.check(ctx, path) })
	if err != nil {
		return runtimeErr(err)
	}
	defer w.Close()

	printStatus(out, "●", "Watching "+dir, color.FgCyan)
	return w.Run(ctx)
}

// manifestChecker runs the feature API checks for one changed manifest.
type manifestChecker struct {
	s    *session
	data evaluate.Dataset
	out  io.Writer
	r    *report.Renderer
}

func (m *manifestChecker) check(ctx context.Context, path string) {
	rel, err := filepath.Rel(m.s.root, path)
	if err != nil {
		m.s.log.Warn("manifest outside repository", "path", path, "error", err)
		return
	}
	rel = filepath.ToSlash(rel)

	// Each change gets a fresh project so the module is reloaded.
	p := project.New(m.s.root, m.s.cfg, m.s.store, nil, project.Options{Logger: m.s.log})
	cands, err := p.Collector().CollectPaths(ctx, []string{rel})
	if err != nil {
		m.s.log.Warn("failed to collect manifest", "path", rel, "error", err)
		return
	}
	if len(cands) == 0 {
		printStatus(m.out, "⚠", fmt.Sprintf("%s: no feature found", rel), color.FgYellow)
		return
	}
	for _, c := range cands {
		rep, _ := checks.ValidateFeature(c.Feature, m.data.X, m.data.Y)
		fmt.Fprint(m.out, m.r.RenderChecks(c.Module, rep))
	}
}
