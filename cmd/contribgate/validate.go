package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/ci"
	"github.com/ShayCichocki/contribgate/internal/project"
	"github.com/ShayCichocki/contribgate/internal/report"
	"github.com/ShayCichocki/contribgate/internal/state"
	"github.com/ShayCichocki/contribgate/internal/validation"
)

type validateFlags struct {
	projectStructure  bool
	featureAPI        bool
	featureAcceptance bool
	featurePruning    bool
	all               bool
	force             bool
	commitRange       string
	provider          string
}

var validateOpts validateFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the contribution in the current build",
	Long: `Run the selected validation stages against the current checkout.

Structure, API and acceptance stages only run on a pull request build and
pruning only runs on the main branch after a merge, unless --force is given.
Skipped stages do not fail the run.

Exit codes:
  0   passed, including when every stage was skipped
  2   usage or configuration error
  4   runtime error
  10  invalid project structure
  11  invalid feature API
  12  feature rejected`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.BoolVar(&validateOpts.projectStructure, "check-project-structure", false, "check the project structure of the changes")
	f.BoolVar(&validateOpts.featureAPI, "check-feature-api", false, "check the API of the proposed feature")
	f.BoolVar(&validateOpts.featureAcceptance, "evaluate-feature-acceptance", false, "evaluate whether the proposed feature is accepted")
	f.BoolVar(&validateOpts.featurePruning, "evaluate-feature-pruning", false, "prune accepted features made redundant")
	f.BoolVar(&validateOpts.all, "all", false, "run every stage")
	f.BoolVar(&validateOpts.force, "force", false, "run stages regardless of the build context")
	f.StringVar(&validateOpts.commitRange, "commit-range", "", "commit range to validate, e.g. master...HEAD")
	f.StringVar(&validateOpts.provider, "ci", "", "build context provider (auto, travis, github, local)")
}

func (f validateFlags) selection() validation.Selection {
	if f.all {
		return validation.All()
	}
	return validation.Selection{
		ProjectStructure:  f.projectStructure,
		FeatureAPI:        f.featureAPI,
		FeatureAcceptance: f.featureAcceptance,
		FeaturePruning:    f.featurePruning,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if validateOpts.provider != "" {
		s.cfg.CI.Provider = validateOpts.provider
		if err := s.cfg.Validate(); err != nil {
			return usageErr(err)
		}
	}
	if err := s.openRepo(ctx); err != nil {
		return err
	}

	sel := validateOpts.selection()
	if !sel.Any() {
		printStatus(os.Stderr, "⚠", "No stages selected, use --all or a stage flag", color.FgYellow)
	}

	buildCtx, err := ci.Detect(ctx, ci.OSEnv, s.store, ci.Options{
		Provider:   s.cfg.CI.Provider,
		MainBranch: s.cfg.Project.MainBranch,
		Dir:        s.root,
		Range:      validateOpts.commitRange,
	})
	if err != nil {
		return runtimeErr(fmt.Errorf("detect build context: %w", err))
	}
	s.log.Info("build context",
		"provider", buildCtx.Provider(),
		"pull_request", buildCtx.OnPullRequest(),
		"after_merge", buildCtx.OnMainAfterMerge(),
		"range", buildCtx.CommitRange())

	opts := validation.Options{
		Stages:      sel,
		Force:       validateOpts.force,
		Logger:      s.log,
		CommitRange: buildCtx.CommitRange(),
	}
	if s.cfg.State.Enabled {
		db, err := state.OpenMigrated(s.statePath())
		if err != nil {
			s.log.Warn("run ledger unavailable", "path", s.statePath(), "error", err)
		} else {
			defer db.Close()
			opts.Recorder = validation.LedgerRecorder{Store: db}
		}
	}

	p := project.New(s.root, s.cfg, s.store, buildCtx, project.Options{Logger: s.log})
	res := validation.New(opts).Validate(ctx, p)

	fmt.Fprint(cmd.OutOrStdout(), report.New(cmd.OutOrStdout(), report.Options{}).Render(res))
	return res.Err
}
