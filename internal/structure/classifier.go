// Package structure classifies changed files as admissible or inadmissible
// contribution changes according to the project's layout rules.
package structure

import (
	"fmt"
	"path"
	"strings"

	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/diff"
)

// Rules describe where contributions may live.
type Rules struct {
	// ContribRoot is the repo-relative contribution subtree, e.g. "features/contrib".
	ContribRoot string
	// Extension is the manifest file extension, including the dot.
	Extension string
	// Depth is the number of directories between ContribRoot and a manifest.
	// 1 means <root>/<owner>/<feature>.yaml.
	Depth int
	// Exclude lists glob patterns (relative to the repo) that are never admissible.
	Exclude []string
}

// DefaultRules returns the default layout.
func DefaultRules() Rules {
	return Rules{
		ContribRoot: "features/contrib",
		Extension:   ".yaml",
		Depth:       1,
	}
}

// Reason explains a classification.
type Reason string

const (
	ReasonAdmissible     Reason = "admissible"
	ReasonRemoved        Reason = "removes a file"
	ReasonOutsideRoot    Reason = "outside contribution root"
	ReasonWrongExtension Reason = "not a manifest"
	ReasonWrongDepth     Reason = "wrong directory depth"
	ReasonExcluded       Reason = "matches exclude pattern"
	ReasonRenamedIn      Reason = "renamed from outside contribution root"
)

// Entry is a classified diff.
type Entry struct {
	Diff   diff.FileDiff
	Reason Reason
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Diff, e.Reason)
}

// Partition splits diffs into admissible and inadmissible entries.
// Every input diff appears in exactly one list, in input order.
type Partition struct {
	Admissible   []Entry
	Inadmissible []Entry
}

// AdmissiblePaths returns the head paths of the admissible entries.
func (p Partition) AdmissiblePaths() []string {
	paths := make([]string, 0, len(p.Admissible))
	for _, e := range p.Admissible {
		paths = append(paths, e.Diff.Path)
	}
	return paths
}

// Len returns the total number of classified diffs.
func (p Partition) Len() int {
	return len(p.Admissible) + len(p.Inadmissible)
}

// Classify partitions diffs according to rules.
func Classify(diffs []diff.FileDiff, rules Rules) Partition {
	var p Partition
	for _, d := range diffs {
		reason := rules.Check(d)
		e := Entry{Diff: d, Reason: reason}
		if reason == ReasonAdmissible {
			p.Admissible = append(p.Admissible, e)
		} else {
			p.Inadmissible = append(p.Inadmissible, e)
		}
	}
	return p
}

// Check returns ReasonAdmissible or the first rule the diff breaks.
func (r Rules) Check(d diff.FileDiff) Reason {
	if d.Kind == diff.KindRemoved {
		return ReasonRemoved
	}
	if reason := r.checkPath(d.Path); reason != ReasonAdmissible {
		return reason
	}
	// A rename into the tree drags an outside file in with it.
	if d.Kind == diff.KindRenamed && d.OldPath != "" && !r.underRoot(d.OldPath) {
		return ReasonRenamedIn
	}
	return ReasonAdmissible
}

func (r Rules) checkPath(p string) Reason {
	p = path.Clean(p)
	if !r.underRoot(p) {
		return ReasonOutsideRoot
	}
	if r.Extension != "" && path.Ext(p) != r.Extension {
		return ReasonWrongExtension
	}

	rel := strings.TrimPrefix(p, r.root()+"/")
	if strings.Count(rel, "/") != r.Depth {
		return ReasonWrongDepth
	}

	for _, pattern := range r.Exclude {
		if MatchGlob(p, pattern) {
			return ReasonExcluded
		}
	}
	return ReasonAdmissible
}

func (r Rules) root() string {
	return strings.Trim(path.Clean("/"+r.ContribRoot), "/")
}

// underRoot reports whether p is lexically inside the contribution root.
func (r Rules) underRoot(p string) bool {
	root := r.root()
	if root == "" {
		return !strings.HasPrefix(p, "../")
	}
	return strings.HasPrefix(path.Clean(p), root+"/")
}

// ChangeSet is the classified view of one run's changes together with the
// candidates loaded from the admissible paths.
type ChangeSet struct {
	Endpoints  diff.Endpoints
	Diffs      []diff.FileDiff
	Partition  Partition
	Candidates []contrib.Candidate
}
