package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/config"
	"github.com/ShayCichocki/contribgate/internal/github"
)

var (
	outcomesRepo    string
	outcomesBase    string
	outcomesVerbose bool
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Tally accepted and rejected pull requests",
	Long: `Count the closed pull requests against the main branch on GitHub.
Merged pull requests are accepted, the others rejected.

The repository is read from github.repo unless --repo is given. A token
from CONTRIBGATE_GITHUB_TOKEN, GITHUB_TOKEN or github.token is used when
set.`,
	Args: cobra.NoArgs,
	RunE: runOutcomes,
}

func init() {
	outcomesCmd.Flags().StringVar(&outcomesRepo, "repo", "", "repository as owner/name")
	outcomesCmd.Flags().StringVar(&outcomesBase, "base", "", "base branch (defaults to project.main_branch)")
	outcomesCmd.Flags().BoolVarP(&outcomesVerbose, "verbose", "v", false, "list each pull request")
}

func runOutcomes(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	gh := s.cfg.GitHub
	if outcomesRepo != "" {
		gh.Repo = outcomesRepo
	}
	base := outcomesBase
	if base == "" {
		base = s.cfg.Project.MainBranch
	}

	token, err := config.GetGitHubToken(s.cfg)
	if errors.Is(err, config.ErrNoToken) {
		s.log.Debug("no GitHub token, using unauthenticated requests")
	} else {
		s.log.Debug("github token", "source", config.GetTokenSource(s.cfg), "token", config.MaskToken(token))
	}

	client, err := github.New(gh, token, nil)
	if err != nil {
		return usageErr(err)
	}
	tally, err := client.Outcomes(cmd.Context(), base)
	if err != nil {
		return runtimeErr(err)
	}

	out := cmd.OutOrStdout()
	if outcomesVerbose {
		for _, pr := range tally.PRs {
			attr := color.FgRed
			if pr.Outcome() == github.OutcomeAccepted {
				attr = color.FgGreen
			}
			fmt.Fprintf(out, "#%-6d %s  %s (%s)\n", pr.Number, color.New(attr).Sprintf("%-8s", pr.Outcome()), pr.Title, pr.User.Login)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%s: %d closed pull requests against %s\n", gh.Repo, tally.Total(), base)
	fmt.Fprintf(out, "  %s %d\n", color.GreenString("accepted:"), tally.Accepted)
	fmt.Fprintf(out, "  %s %d\n", color.RedString("rejected:"), tally.Rejected)
	fmt.Fprintf(out, "  acceptance rate: %.0f%%\n", tally.AcceptanceRate()*100)
	return nil
}
