package feature

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T) *Frame {
	t.Helper()
	X, err := FrameOf(
		[]string{"size", "rooms", "age"},
		[]float64{1, 2, math.NaN(), 4},
		[]float64{3, 3, 4, 5},
		[]float64{10, 20, 30, 40},
	)
	require.NoError(t, err)
	return X
}

func TestFrame_SelectAndClone(t *testing.T) {
	X := testFrame(t)

	sel, err := X.Select([]string{"age", "size"})
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "size"}, sel.Names())
	assert.Equal(t, 4, sel.Rows())

	sel.At(0)[0] = 99
	age, _ := X.Column("age")
	assert.Equal(t, 10.0, age[0], "select must copy")

	_, err = X.Select([]string{"missing"})
	assert.ErrorIs(t, err, ErrMissingColumn)

	c := X.Clone()
	c.At(1)[0] = -1
	rooms, _ := X.Column("rooms")
	assert.Equal(t, 3.0, rooms[0], "clone must be deep")
}

func TestFrame_AddValidates(t *testing.T) {
	f := NewFrame(2)
	require.NoError(t, f.Add("a", []float64{1, 2}))
	assert.Error(t, f.Add("a", []float64{1, 2}), "duplicate")
	assert.Error(t, f.Add("b", []float64{1}), "short column")
	assert.Error(t, f.Add("", []float64{1, 2}), "empty name")
}

func TestFrame_SameValuesAndMissing(t *testing.T) {
	X := testFrame(t)
	Y := X.Clone()
	assert.True(t, X.SameValues(Y), "NaN equals NaN")
	assert.Equal(t, 1, X.CountMissing())

	Y.At(2)[3] = 41
	assert.False(t, X.SameValues(Y))
	assert.False(t, X.SameValues(NewFrame(4)))
}

func TestFrame_Rename(t *testing.T) {
	X := testFrame(t)

	out, err := X.Rename([]string{"f"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f_0", "f_1", "f_2"}, out.Names())

	_, err = X.Rename([]string{"a", "b"})
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	a, _ := FrameOf([]string{"x"}, []float64{1, 2})
	b, _ := FrameOf([]string{"x", "y"}, []float64{3, 4}, []float64{5, 6})

	out, err := Concat(a, b, NewFrame(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x_1", "y"}, out.Names())

	_, err = Concat(a, NewFrame(3))
	assert.Error(t, err)
}

func TestInput_Validate(t *testing.T) {
	assert.NoError(t, Scalar("size").Validate())
	assert.NoError(t, Columns("size", "rooms").Validate())
	assert.ErrorIs(t, Columns().Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Columns("a", "a").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Columns("").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, Input{Columns: []string{"a", "b"}, Scalar: true}.Validate(), ErrInvalidInput)
}

func TestInput_NonStringNames(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"size", true},
		{`"3"`, true},
		{"[size, rooms]", true},
		{"3", false},
		{"true", false},
		{"[size, 4.5]", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, err := Parse([]byte("kind: Feature\ninput: "+tt.input+"\ntransformer: identity\n"), nil)
			require.NoError(t, err, "a mistyped input still loads")
			if tt.valid {
				assert.NoError(t, f.Input.Validate())
			} else {
				assert.ErrorIs(t, f.Input.Validate(), ErrInvalidInput)
			}
		})
	}
}

func TestBuiltins(t *testing.T) {
	X, err := FrameOf([]string{"v"}, []float64{1, math.NaN(), 3, -1})
	require.NoError(t, err)

	tests := []struct {
		name string
		tr   Transformer
		want []float64
	}{
		{"identity", &Identity{}, []float64{1, math.NaN(), 3, -1}},
		{"replacer", &ValueReplacer{Value: -1, Replacement: 0}, []float64{1, math.NaN(), 3, 0}},
		{"replace missing", &ValueReplacer{Value: math.NaN(), Replacement: 7}, []float64{1, 7, 3, -1}},
		{"mean imputer", &Imputer{Strategy: "mean"}, []float64{1, 1, 3, -1}},
		{"median imputer", &Imputer{Strategy: "median"}, []float64{1, 1, 3, -1}},
		{"constant imputer", &Imputer{Strategy: "constant", FillValue: 5}, []float64{1, 5, 3, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.tr.Fit(X, nil))
			out, err := tt.tr.Transform(X)
			require.NoError(t, err)
			want, _ := FrameOf([]string{"v"}, tt.want)
			assert.True(t, out.SameValues(want), "got %v", out.At(0))
		})
	}
}

func TestNull(t *testing.T) {
	out, err := (&Null{}).Transform(testFrame(t))
	require.NoError(t, err)
	assert.Equal(t, 0, out.Width())
	assert.Equal(t, 4, out.Rows())
}

func TestStatefulRequireFit(t *testing.T) {
	X := testFrame(t)
	for _, tr := range []Transformer{&Imputer{Strategy: "mean"}, &BoxCox{}, &StandardScaler{}} {
		_, err := tr.Transform(X)
		assert.ErrorIs(t, err, ErrNotFitted, "%T", tr)
	}
}

func TestStandardScaler(t *testing.T) {
	X, _ := FrameOf([]string{"v"}, []float64{1, 2, 3})
	s := &StandardScaler{}
	require.NoError(t, s.Fit(X, nil))
	out, err := s.Transform(X)
	require.NoError(t, err)
	col := out.At(0)
	assert.InDelta(t, 0, col[1], 1e-12)
	assert.InDelta(t, -col[0], col[2], 1e-12)
}

func TestBoxCox_OnlySkewedColumns(t *testing.T) {
	X, _ := FrameOf([]string{"flat", "skewed"},
		[]float64{1, 2, 3, 4, 5},
		[]float64{0, 0, 0, 0, 100})
	b := &BoxCox{Threshold: 0.5}
	require.NoError(t, b.Fit(X, nil))
	out, err := b.Transform(X)
	require.NoError(t, err)

	flat, _ := out.Column("flat")
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, flat)
	skewed, _ := out.Column("skewed")
	assert.InDelta(t, math.Log1p(100), skewed[4], 1e-12)
}

func TestClone_IndependentState(t *testing.T) {
	X := testFrame(t)
	im := &Imputer{Strategy: "mean"}
	require.NoError(t, im.Fit(X, nil))

	c, err := im.Clone()
	require.NoError(t, err)
	other, _ := FrameOf([]string{"a", "b", "c"}, []float64{math.NaN()}, []float64{1}, []float64{1})
	require.NoError(t, c.Fit(other, nil))

	out, err := im.Transform(X)
	require.NoError(t, err)
	size, _ := out.Column("size")
	assert.InDelta(t, 7.0/3.0, size[2], 1e-12, "original keeps its fitted state")
}

const manifestYAML = `
kind: Feature
name: imputed size
input: size
transformer:
  - kind: imputer
    strategy: median
  - kind: log1p
output: size_log
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(manifestYAML), nil)
	require.NoError(t, err)

	assert.True(t, IsFeature(f))
	assert.Equal(t, "imputed size", f.Name)
	assert.True(t, f.Input.Scalar)
	assert.Equal(t, []string{"size"}, f.Input.Columns)
	assert.Equal(t, []string{"size_log"}, f.Output)

	chain, ok := f.Transformer.(*Chain)
	require.True(t, ok, "list transformer builds a chain, got %T", f.Transformer)
	assert.Len(t, chain.Steps, 2)

	out, err := f.Apply(testFrame(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"size_log"}, out.Names())
	assert.Zero(t, out.CountMissing())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown kind", "kind: Feature\ninput: a\ntransformer:\n  kind: nope\n", "unknown transformer kind"},
		{"bad strategy", "kind: Feature\ninput: a\ntransformer:\n  kind: imputer\n  strategy: mode\n", "unknown strategy"},
		{"framer without name", "kind: Feature\ninput: a\ntransformer:\n  kind: named_framer\n", "name is required"},
		{"no feature", "kind: Other\n", "no feature"},
		{"two features", "kind: Feature\ninput: a\n---\nkind: Feature\ninput: b\n", "more than one"},
		{"bad yaml", "kind: Feature\ninput: [a\n", "document 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeAll_MixedDocuments(t *testing.T) {
	doc := "kind: Note\ntext: hi\n---\nkind: Feature\ninput: [a, b]\ntransformer: identity\n---\n- 1\n- 2\n"
	objs, err := DecodeAll(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, objs, 3)

	assert.False(t, IsFeature(objs[0].Value))
	assert.True(t, IsFeature(objs[1].Value))
	assert.False(t, IsFeature(objs[2].Value))
	assert.Equal(t, 1, objs[1].Index)

	f := objs[1].Value.(*Feature)
	assert.False(t, f.Input.Scalar)
	assert.IsType(t, &Identity{}, f.Transformer)
}

func TestPipelineKind(t *testing.T) {
	doc := "kind: Feature\ninput: [size]\ntransformer:\n  kind: pipeline\n  steps:\n    - kind: value_replacer\n      value: 4\n      replacement: 0\n    - kind: named_framer\n      name: small\n"
	f, err := Parse([]byte(doc), nil)
	require.NoError(t, err)

	out, err := f.Apply(testFrame(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"small"}, out.Names())
	col := out.At(0)
	assert.Equal(t, 0.0, col[3])
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	double := func(*Registry, Params) (Transformer, error) {
		return TransformerFunc(func(X *Frame) (*Frame, error) {
			return X.Map(func(v float64) float64 { return 2 * v }), nil
		}), nil
	}
	require.NoError(t, reg.Register("double", double))
	assert.Error(t, reg.Register("double", double))
	assert.Error(t, reg.Register("identity", double))
	assert.Contains(t, reg.Kinds(), "double")

	f, err := Parse([]byte("kind: Feature\ninput: rooms\ntransformer: double\n"), reg)
	require.NoError(t, err)
	out, err := f.Apply(testFrame(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 6, 8, 10}, out.At(0))

	_, err = Parse([]byte("kind: Feature\ninput: rooms\ntransformer: double\n"), nil)
	assert.ErrorIs(t, err, ErrUnknownKind, "default registry is untouched")
}

func TestFeature_Clone(t *testing.T) {
	f := New(Columns("size"), &Imputer{Strategy: "mean"})
	c, err := f.Clone()
	require.NoError(t, err)
	assert.NotSame(t, f.Transformer, c.Transformer)

	failing := New(Columns("size"), cloneFails{})
	_, err = failing.Clone()
	assert.Error(t, err)
}

type cloneFails struct{}

func (cloneFails) Fit(*Frame, []float64) error { return nil }

func (cloneFails) Transform(X *Frame) (*Frame, error) { return X.Clone(), nil }

func (cloneFails) Clone() (Transformer, error) { return nil, errors.New("cannot copy") }

func TestFeature_MissingColumn(t *testing.T) {
	f := New(Columns("nope"), nil)
	_, err := f.Apply(testFrame(t), nil)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestPipeline_EmptyUsesNull(t *testing.T) {
	p := NewPipeline(nil)
	require.Len(t, p.Features(), 1)
	out, err := p.FitTransform(testFrame(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Width())
	assert.Equal(t, 4, out.Rows())
}
