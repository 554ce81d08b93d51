package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ShayCichocki/contribgate/internal/exec"
)

// Identity is the author/committer used for commits made by the runner.
type Identity struct {
	Name  string
	Email string
}

// ExecRunner implements Runner by shelling out to the git binary.
type ExecRunner struct {
	repoPath string
	cmd      exec.CommandRunner
	identity *Identity
}

// NewRunner creates a new git runner for the repository at the given path.
func NewRunner(repoPath string) *ExecRunner {
	return &ExecRunner{repoPath: repoPath, cmd: exec.NewRunner()}
}

// NewRunnerWith creates a runner using a custom command runner.
func NewRunnerWith(repoPath string, cmd exec.CommandRunner) *ExecRunner {
	return &ExecRunner{repoPath: repoPath, cmd: cmd}
}

// WithIdentity sets the identity used by Commit and MergeNoFF,
// independent of any git config.
func (r *ExecRunner) WithIdentity(name, email string) *ExecRunner {
	r.identity = &Identity{Name: name, Email: email}
	return r
}

// Root returns the repository path.
func (r *ExecRunner) Root() string {
	return r.repoPath
}

// run executes a git command and returns its trimmed output.
func (r *ExecRunner) run(ctx context.Context, args ...string) (string, error) {
	out, err := r.runRaw(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// runRaw executes a git command and returns its output untouched, for
// output where whitespace belongs to paths.
func (r *ExecRunner) runRaw(ctx context.Context, args ...string) (string, error) {
	out, err := r.cmd.RunEnv(ctx, r.repoPath, r.env(), "git", args...)
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Run executes an arbitrary git command with the given arguments.
func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, args...)
}

func (r *ExecRunner) env() []string {
	if r.identity == nil {
		return nil
	}
	return []string{
		"GIT_AUTHOR_NAME=" + r.identity.Name,
		"GIT_AUTHOR_EMAIL=" + r.identity.Email,
		"GIT_COMMITTER_NAME=" + r.identity.Name,
		"GIT_COMMITTER_EMAIL=" + r.identity.Email,
	}
}

// exitCode reports the git exit status carried by err, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// RevParse resolves a revision to a commit sha.
func (r *ExecRunner) RevParse(ctx context.Context, rev string) (string, error) {
	if rev == "" {
		return "", fmt.Errorf("rev-parse: empty revision")
	}
	return r.run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
}

// DiffNameStatus returns the changed paths between base and head.
func (r *ExecRunner) DiffNameStatus(ctx context.Context, base, head string) ([]Change, error) {
	out, err := r.runRaw(ctx, "diff", "--name-status", "-z", "-M", base, head, "--")
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(out)
}

// ParseNameStatus parses `git diff --name-status -z` output: each entry is
// a status field followed by one path, or two for renames and copies, all
// NUL-terminated. Paths are verbatim.
func ParseNameStatus(out string) ([]Change, error) {
	if out == "" {
		return nil, nil
	}
	fields := strings.Split(strings.TrimSuffix(out, "\x00"), "\x00")

	var changes []Change
	for i := 0; i < len(fields); {
		status := fields[i]
		if status == "" {
			return nil, fmt.Errorf("parse name-status: empty status at field %d", i)
		}
		c := Change{Status: status[0]}
		if len(status) > 1 {
			score, err := strconv.Atoi(status[1:])
			if err != nil {
				return nil, fmt.Errorf("parse similarity score in %q: %w", status, err)
			}
			c.Score = score
		}

		paths := 1
		if c.Status == 'R' || c.Status == 'C' {
			paths = 2
		}
		if i+paths >= len(fields) {
			return nil, fmt.Errorf("parse name-status entry %q: want %d paths", status, paths)
		}
		if paths == 2 {
			c.OldPath = fields[i+1]
			c.Path = fields[i+2]
		} else {
			c.Path = fields[i+1]
		}
		changes = append(changes, c)
		i += 1 + paths
	}
	return changes, nil
}

// MergeBases returns all best common ancestors of a and b.
func (r *ExecRunner) MergeBases(ctx context.Context, a, b string) ([]string, error) {
	out, err := r.run(ctx, "merge-base", "--all", a, b)
	if err != nil {
		// Exit code 1 with no output means the histories are unrelated.
		if exitCode(err) == 1 {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Fields(out), nil
}

// MergeNoFF merges the specified branch creating a merge commit.
func (r *ExecRunner) MergeNoFF(ctx context.Context, branch, message string) error {
	_, err := r.run(ctx, "merge", "--no-ff", "--no-edit", "-m", message, branch)
	return err
}

// SymbolicRef returns the full ref HEAD points to, or "" if detached.
func (r *ExecRunner) SymbolicRef(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "symbolic-ref", "-q", "HEAD")
	if err != nil {
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// Parents returns the parents of rev.
func (r *ExecRunner) Parents(ctx context.Context, rev string) ([]string, error) {
	out, err := r.run(ctx, "rev-list", "--parents", "-n", "1", rev, "--")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return nil, fmt.Errorf("rev-list %s: no output", rev)
	}
	return fields[1:], nil
}

// CurrentBranch returns the name of the current branch.
func (r *ExecRunner) CurrentBranch(ctx context.Context) (string, error) {
	return r.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CheckoutNewBranch creates and switches to a new branch.
func (r *ExecRunner) CheckoutNewBranch(ctx context.Context, name string) error {
	_, err := r.run(ctx, "checkout", "-q", "-b", name)
	return err
}

// Checkout switches to the specified branch.
func (r *ExecRunner) Checkout(ctx context.Context, name string) error {
	_, err := r.run(ctx, "checkout", "-q", name)
	return err
}

// Init creates a new repository with the given initial branch.
func (r *ExecRunner) Init(ctx context.Context, branch string) error {
	if _, err := r.run(ctx, "init", "-q"); err != nil {
		return err
	}
	if branch == "" {
		return nil
	}
	_, err := r.run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+branch)
	return err
}

// Add stages the specified files for commit.
func (r *ExecRunner) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// Commit creates a new commit and returns its sha.
func (r *ExecRunner) Commit(ctx context.Context, message string) (string, error) {
	if _, err := r.run(ctx, "commit", "-q", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	return r.run(ctx, "rev-parse", "HEAD")
}

// Verify ExecRunner implements Runner and Store at compile time.
var (
	_ Runner = (*ExecRunner)(nil)
	_ Store  = (*ExecRunner)(nil)
)
