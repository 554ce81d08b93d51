// Package ci describes the build environment a validation run executes in:
// whether it is checking a pull request or the main line after a merge, and
// which commit range to diff.
package ci

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ShayCichocki/contribgate/internal/diff"
	"github.com/ShayCichocki/contribgate/internal/git"
)

// Context is the build context of a run.
type Context interface {
	// Provider names the environment, e.g. travis.
	Provider() string
	OnPullRequest() bool
	OnMainAfterMerge() bool
	// PullRequest returns the pull request number when on a pull request.
	PullRequest() (int, bool)
	// CommitRange is the "A..B" or "A...B" expression to diff, or "".
	CommitRange() string
	// BuildDir is the checkout directory.
	BuildDir() string
}

// Static is a Context with fixed values. Providers produce one.
type Static struct {
	Name           string
	PR             int
	MainAfterMerge bool
	Range          string
	Dir            string
}

func (s *Static) Provider() string         { return s.Name }
func (s *Static) OnPullRequest() bool      { return s.PR > 0 }
func (s *Static) OnMainAfterMerge() bool   { return s.MainAfterMerge }
func (s *Static) PullRequest() (int, bool) { return s.PR, s.PR > 0 }
func (s *Static) CommitRange() string      { return s.Range }
func (s *Static) BuildDir() string         { return s.Dir }

func (s *Static) String() string {
	switch {
	case s.OnPullRequest():
		return fmt.Sprintf("%s: pull request #%d", s.Name, s.PR)
	case s.MainAfterMerge:
		return fmt.Sprintf("%s: main line after merge", s.Name)
	default:
		return s.Name
	}
}

// Env looks up an environment variable.
type Env func(key string) string

// OSEnv reads the process environment.
func OSEnv(key string) string { return os.Getenv(key) }

// Options configure Detect.
type Options struct {
	// Provider is auto, travis, github or local.
	Provider   string
	MainBranch string
	// Dir is the checkout directory used when the environment has none.
	Dir string
	// Range overrides the commit range of the detected context.
	Range string
}

// Detect builds the Context for the configured provider. With "auto",
// Travis and GitHub Actions are recognised from their marker variables
// and anything else is treated as a local checkout.
func Detect(ctx context.Context, env Env, store git.Store, opts Options) (Context, error) {
	if env == nil {
		env = OSEnv
	}
	if opts.MainBranch == "" {
		opts.MainBranch = "master"
	}

	provider := opts.Provider
	if provider == "" || provider == "auto" {
		switch {
		case env("TRAVIS") == "true":
			provider = "travis"
		case env("GITHUB_ACTIONS") == "true":
			provider = "github"
		default:
			provider = "local"
		}
	}

	var (
		c   *Static
		err error
	)
	switch provider {
	case "travis":
		c, err = FromTravis(env, opts.MainBranch)
	case "github":
		c, err = FromGitHubActions(env, opts.MainBranch)
	case "local":
		c, err = FromCheckout(ctx, store, opts.MainBranch)
	default:
		return nil, fmt.Errorf("unknown ci provider %q", provider)
	}
	if err != nil {
		return nil, err
	}

	if c.Dir == "" {
		c.Dir = opts.Dir
	}
	if opts.Range != "" {
		c.Range = opts.Range
	}
	return c, nil
}

// FromTravis reads the Travis CI environment.
func FromTravis(env Env, mainBranch string) (*Static, error) {
	c := &Static{Name: "travis", Range: env("TRAVIS_COMMIT_RANGE"), Dir: env("TRAVIS_BUILD_DIR")}

	if pr := env("TRAVIS_PULL_REQUEST"); pr != "" && pr != "false" {
		n, err := strconv.Atoi(pr)
		if err != nil {
			return nil, fmt.Errorf("TRAVIS_PULL_REQUEST: %w", err)
		}
		c.PR = n
		return c, nil
	}

	event := env("TRAVIS_EVENT_TYPE")
	c.MainAfterMerge = env("TRAVIS_BRANCH") == mainBranch && (event == "" || event == "push")
	return c, nil
}

var githubPRRef = regexp.MustCompile(`^refs/pull/(\d+)/(merge|head)$`)

// FromGitHubActions reads the GitHub Actions environment. GitHub does not
// export a commit range, so it comes from CONTRIBGATE_COMMIT_RANGE.
func FromGitHubActions(env Env, mainBranch string) (*Static, error) {
	c := &Static{Name: "github", Range: env("CONTRIBGATE_COMMIT_RANGE"), Dir: env("GITHUB_WORKSPACE")}

	switch env("GITHUB_EVENT_NAME") {
	case "pull_request", "pull_request_target":
		ref := env("GITHUB_REF")
		m := githubPRRef.FindStringSubmatch(ref)
		if m == nil {
			return nil, fmt.Errorf("GITHUB_REF %q is not a pull request ref", ref)
		}
		n, _ := strconv.Atoi(m[1])
		c.PR = n
		if c.Range == "" && env("GITHUB_BASE_REF") != "" {
			c.Range = diff.MakeCommitRange("origin/"+env("GITHUB_BASE_REF"), "HEAD")
		}
	case "push":
		c.MainAfterMerge = env("GITHUB_REF") == "refs/heads/"+mainBranch
	}
	return c, nil
}

// FromCheckout derives the context from the local repository: HEAD on
// refs/heads/pull/<n> is a pull request; a merge commit on the main
// branch is the main line after a merge.
func FromCheckout(ctx context.Context, store git.Store, mainBranch string) (*Static, error) {
	c := &Static{Name: "local"}
	if r, ok := store.(interface{ Root() string }); ok {
		c.Dir = filepath.Clean(r.Root())
	}

	ref, err := store.SymbolicRef(ctx)
	if err != nil {
		return nil, fmt.Errorf("read HEAD ref: %w", err)
	}
	if n, err := diff.PullRequestNumber(ctx, store); err == nil {
		c.PR = n
		return c, nil
	}

	if ref == "refs/heads/"+mainBranch {
		parents, err := store.Parents(ctx, "HEAD")
		if err != nil {
			return nil, fmt.Errorf("read HEAD parents: %w", err)
		}
		c.MainAfterMerge = len(parents) == 2
	}
	return c, nil
}

// Differ chooses how to resolve the diff for a context: the explicit
// commit range when present, otherwise the pull request branch, the merge
// commit, or the main branch merge-base.
func Differ(c Context, store git.Store, mainBranch string) diff.Differ {
	if mainBranch == "" {
		mainBranch = "master"
	}
	switch {
	case c.CommitRange() != "":
		return &diff.RangeDiffer{Store: store, Range: c.CommitRange()}
	case c.OnPullRequest():
		return &diff.PullRequestDiffer{Store: store, BaseRef: mainBranch}
	case c.OnMainAfterMerge():
		return &diff.MergeDiffer{Store: store}
	default:
		return &diff.RangeDiffer{Store: store, Range: diff.MakeCommitRange(mainBranch, "HEAD")}
	}
}

// PullRequestInfo names the refs of a pull request.
type PullRequestInfo struct {
	Number int
}

// LocalRefName is the short local branch name, e.g. pull/1.
func (p PullRequestInfo) LocalRefName() string { return fmt.Sprintf("pull/%d", p.Number) }

// LocalRevName is the full local ref, e.g. refs/heads/pull/1.
func (p PullRequestInfo) LocalRevName() string { return fmt.Sprintf("refs/heads/pull/%d", p.Number) }

// RemoteRefName is the ref as published by GitHub, e.g. refs/pull/1/head.
func (p PullRequestInfo) RemoteRefName() string { return fmt.Sprintf("refs/pull/%d/head", p.Number) }

var _ Context = (*Static)(nil)
