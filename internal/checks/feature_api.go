package checks

import (
	"fmt"

	"github.com/ShayCichocki/contribgate/internal/feature"
)

// Feature API check names.
const (
	HasCorrectInputType        = "has_correct_input_type"
	CanDeepcopy                = "can_deepcopy"
	CanTransform               = "can_transform"
	HasCorrectOutputDimensions = "has_correct_output_dimensions"
	NoMissingValues            = "no_missing_values"
)

// FeatureAPI returns the checks a contributed feature must pass against
// the development dataset. Each check works on its own clone of the
// feature, so the candidate is never fitted in place.
func FeatureAPI(X *feature.Frame, y []float64) *Suite[*feature.Feature] {
	return NewSuite[*feature.Feature](
		New(HasCorrectInputType, func(f *feature.Feature) (bool, error) {
			if err := f.Input.Validate(); err != nil {
				return false, err
			}
			return true, nil
		}),
		New(CanDeepcopy, func(f *feature.Feature) (bool, error) {
			if _, err := f.Clone(); err != nil {
				return false, err
			}
			return true, nil
		}),
		New(CanTransform, func(f *feature.Feature) (bool, error) {
			if _, err := applyClone(f, X, y); err != nil {
				return false, err
			}
			return true, nil
		}),
		New(HasCorrectOutputDimensions, func(f *feature.Feature) (bool, error) {
			out, err := applyClone(f, X, y)
			if err != nil {
				return false, err
			}
			if out.Rows() != X.Rows() {
				return false, fmt.Errorf("output has %d rows, want %d", out.Rows(), X.Rows())
			}
			return true, nil
		}),
		New(NoMissingValues, func(f *feature.Feature) (bool, error) {
			out, err := applyClone(f, X, y)
			if err != nil {
				return false, err
			}
			if n := out.CountMissing(); n > 0 {
				return false, fmt.Errorf("output has %d missing values", n)
			}
			return true, nil
		}),
	)
}

func applyClone(f *feature.Feature, X *feature.Frame, y []float64) (*feature.Frame, error) {
	c, err := f.Clone()
	if err != nil {
		return nil, err
	}
	return c.Apply(X, y)
}

// ValidateFeature runs the feature API checks and returns the report and
// the names of the failed checks.
func ValidateFeature(f *feature.Feature, X *feature.Frame, y []float64) (Report, []string) {
	r := FeatureAPI(X, y).Run(f)
	return r, r.Failures()
}
