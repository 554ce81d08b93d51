package evaluate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/contribgate/internal/contrib"
	"github.com/ShayCichocki/contribgate/internal/feature"
)

func dataset(t *testing.T) Dataset {
	t.Helper()
	X, err := feature.FrameOf(
		[]string{"a", "b"},
		[]float64{1, 2, 3},
		[]float64{4, 5, 6},
	)
	require.NoError(t, err)
	return Dataset{X: X, Y: []float64{0, 1, 0}}
}

func candidate(module string, input string, tr feature.Transformer) contrib.Candidate {
	return contrib.Candidate{Module: module, Feature: feature.New(feature.Scalar(input), tr)}
}

func TestDuplicateAccepter(t *testing.T) {
	ds := dataset(t)
	accepted := []contrib.Candidate{candidate("contrib.alice.a", "a", nil)}
	acc := DefaultFactory{}.NewAccepter(ds, accepted)
	ctx := context.Background()

	tests := []struct {
		name string
		c    contrib.Candidate
		want bool
	}{
		{"new information", candidate("contrib.bob.b", "b", nil), true},
		{"duplicate of accepted", candidate("contrib.bob.a2", "a", nil), false},
		{"renamed duplicate", candidate("contrib.bob.a3", "a", &feature.NamedFramer{Name: "other"}), false},
		{"transformed column", candidate("contrib.bob.log", "a", &feature.Log1p{}), true},
		{"empty output", candidate("contrib.bob.null", "a", &feature.Null{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := acc.Judge(ctx, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := acc.Judge(ctx, candidate("contrib.bob.bad", "missing", nil))
	assert.ErrorIs(t, err, feature.ErrMissingColumn)
}

func TestDuplicatePruner(t *testing.T) {
	ds := dataset(t)
	proposed := candidate("contrib.bob.new", "a", &feature.Identity{})
	accepted := []contrib.Candidate{
		candidate("contrib.alice.a", "a", nil),
		candidate("contrib.alice.b", "b", nil),
		candidate("contrib.carol.broken", "missing", nil),
		proposed,
	}

	redundant, err := DefaultFactory{}.NewPruner(ds, accepted, proposed).Prune(context.Background())
	require.NoError(t, err)
	require.Len(t, redundant, 1)
	assert.Equal(t, "contrib.alice.a", redundant[0].Module)
}

func TestDuplicatePruner_NothingRedundant(t *testing.T) {
	ds := dataset(t)
	proposed := candidate("contrib.bob.log", "a", &feature.Log1p{})
	accepted := []contrib.Candidate{candidate("contrib.alice.a", "a", nil)}

	redundant, err := DefaultFactory{}.NewPruner(ds, accepted, proposed).Prune(context.Background())
	require.NoError(t, err)
	assert.Empty(t, redundant)
}

func TestEvaluators_Cancelled(t *testing.T) {
	ds := dataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accepted := []contrib.Candidate{candidate("contrib.alice.a", "a", nil)}
	_, err := DefaultFactory{}.NewAccepter(ds, accepted).Judge(ctx, candidate("contrib.bob.b", "b", nil))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = DefaultFactory{}.NewPruner(ds, accepted, candidate("contrib.bob.b", "b", nil)).Prune(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
