// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/contribgate/internal/git"
)

// Repo is a repository rooted in a test temp dir.
type Repo struct {
	*git.ExecRunner
	t   *testing.T
	Dir string
}

// New initializes a repository on branch master. The test is skipped
// when git is not installed.
func New(t *testing.T) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runner := git.NewRunner(dir).WithIdentity("Test", "test@test.com")
	if err := runner.Init(context.Background(), "master"); err != nil {
		t.Fatalf("git init: %v", err)
	}
	return &Repo{ExecRunner: runner, t: t, Dir: dir}
}

// Write writes content to a repo-relative path, creating directories.
func (r *Repo) Write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		r.t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		r.t.Fatalf("write %s: %v", path, err)
	}
}

// Remove deletes a repo-relative path from the working tree.
func (r *Repo) Remove(path string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Dir, filepath.FromSlash(path))); err != nil {
		r.t.Fatalf("remove %s: %v", path, err)
	}
}

// CommitAll stages everything and commits, returning the new sha.
func (r *Repo) CommitAll(message string) string {
	r.t.Helper()
	ctx := context.Background()
	if err := r.Add(ctx, "."); err != nil {
		r.t.Fatalf("git add: %v", err)
	}
	sha, err := r.Commit(ctx, message)
	if err != nil {
		r.t.Fatalf("git commit: %v", err)
	}
	return sha
}

// CommitFile writes a single file and commits it.
func (r *Repo) CommitFile(path, content string) string {
	r.t.Helper()
	r.Write(path, content)
	return r.CommitAll("Add " + path)
}

// Orphan switches to a new branch with no history and an empty tree.
func (r *Repo) Orphan(branch string) {
	r.t.Helper()
	ctx := context.Background()
	if _, err := r.Run(ctx, "checkout", "-q", "--orphan", branch); err != nil {
		r.t.Fatalf("checkout --orphan: %v", err)
	}
	if _, err := r.Run(ctx, "rm", "-rfq", "--ignore-unmatch", "."); err != nil {
		r.t.Fatalf("git rm: %v", err)
	}
}

// Must fails the test if err is non-nil.
func (r *Repo) Must(err error) {
	r.t.Helper()
	if err != nil {
		r.t.Fatal(err)
	}
}
