package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/contribgate/internal/config"
	"github.com/ShayCichocki/contribgate/internal/git"
	"github.com/ShayCichocki/contribgate/internal/logging"
	"github.com/ShayCichocki/contribgate/internal/state"
)

var (
	logLevel string
	logFile  string

	// started is set once a command's flags and arguments were accepted.
	started bool
)

var rootCmd = &cobra.Command{
	Use:   "contribgate",
	Short: "Contribution validation engine",
	Long: `contribgate validates contributed features in a collaborative
feature-engineering repository.

A pull request is checked in stages: the project structure of the
changes, the API of the proposed feature, and whether the feature is
accepted. After a merge to the main branch, accepted features made
redundant by the new one are pruned.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		started = true
		return nil
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil && !started {
		err = usageErr(err)
	}
	if err != nil {
		printStatus(os.Stderr, "✗", err.Error(), color.FgRed)
	}
	return exitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(outcomesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// session holds what every command needs: configuration and a logger.
type session struct {
	cfg    *config.Config
	log    logging.Logger
	closer io.Closer

	root  string
	store *git.ExecRunner
}

func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, usageErr(fmt.Errorf("load config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, usageErr(err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, usageErr(err)
	}
	file := cfg.Log.File
	if logFile != "" {
		file = logFile
	}
	log, closer, err := logging.Tee(os.Stderr, file, cfg.Log.Format, lvl)
	if err != nil {
		return nil, runtimeErr(fmt.Errorf("open log: %w", err))
	}
	return &session{cfg: cfg, log: log, closer: closer}, nil
}

// openRepo locates the enclosing git checkout.
func (s *session) openRepo(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return runtimeErr(fmt.Errorf("get working directory: %w", err))
	}
	root, err := git.NewRunner(cwd).Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return runtimeErr(fmt.Errorf("not a git checkout: %w", err))
	}
	s.root = root
	s.store = git.NewRunner(root)
	return nil
}

// statePath resolves the ledger path against the repository root.
func (s *session) statePath() string {
	if s.cfg.State.Path == "" {
		return state.ProjectDBPath(s.root)
	}
	return resolvePath(s.root, s.cfg.State.Path)
}

func (s *session) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// printStatus prints a status line with color
func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}
