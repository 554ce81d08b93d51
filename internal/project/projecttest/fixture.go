// Package projecttest builds feature project repositories for tests.
package projecttest

import (
	"testing"

	"github.com/ShayCichocki/contribgate/internal/git/gittest"
)

// Data is the development dataset of a fixture project. Column age has a
// missing value.
const Data = `size,age,rooms,target
1,20,3,10
2,,4,12
3,40,5,14
4,50,6,16
`

// Manifests used by fixtures.
const (
	// SizeFeature is accepted on master in New.
	SizeFeature = "kind: Feature\ninput: size\ntransformer: identity\n"
	// AgeFeature imputes the missing age.
	AgeFeature = "kind: Feature\ninput: [age]\ntransformer:\n  - kind: imputer\n    strategy: mean\n  - kind: identity\noutput: age_imputed\n"
	// RoomsFeature scales rooms.
	RoomsFeature = "kind: Feature\ninput: rooms\ntransformer: standard_scaler\n"
	// MissingColumnFeature selects a column the dataset does not have.
	MissingColumnFeature = "kind: Feature\ninput: [height]\ntransformer: identity\n"
	// LeakyFeature leaves missing values in its output.
	LeakyFeature = "kind: Feature\ninput: age\ntransformer: identity\n"
	// DuplicateSizeFeature reproduces SizeFeature under another owner.
	DuplicateSizeFeature = "kind: Feature\ninput: [size]\ntransformer: identity\noutput: size_copy\n"
)

// SizePath is where New commits SizeFeature.
const SizePath = "features/contrib/alice/size.yaml"

// New creates a repository on master holding the dataset and one accepted
// feature.
func New(t *testing.T) *gittest.Repo {
	t.Helper()
	repo := gittest.New(t)
	repo.Write("data/train.csv", Data)
	repo.Write(SizePath, SizeFeature)
	repo.CommitAll("Initial project")
	return repo
}
