package checks

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/contribgate/internal/structure"
)

// Project structure check names.
const (
	HasAdmissibleChanges  = "has_admissible_changes"
	NoInadmissibleChanges = "no_inadmissible_changes"
	HasOneNewFeature      = "has_one_new_feature"
)

// ProjectStructure returns the checks a pull request's changes must pass.
func ProjectStructure() *Suite[*structure.ChangeSet] {
	return NewSuite[*structure.ChangeSet](
		New(HasAdmissibleChanges, func(cs *structure.ChangeSet) (bool, error) {
			return len(cs.Partition.Admissible) > 0, nil
		}),
		New(NoInadmissibleChanges, func(cs *structure.ChangeSet) (bool, error) {
			if n := len(cs.Partition.Inadmissible); n > 0 {
				entries := make([]string, 0, n)
				for _, e := range cs.Partition.Inadmissible {
					entries = append(entries, e.String())
				}
				return false, fmt.Errorf("inadmissible changes: %s", strings.Join(entries, "; "))
			}
			return true, nil
		}),
		New(HasOneNewFeature, func(cs *structure.ChangeSet) (bool, error) {
			if n := len(cs.Candidates); n != 1 {
				return false, fmt.Errorf("found %d new features, want 1", n)
			}
			return true, nil
		}),
	)
}
