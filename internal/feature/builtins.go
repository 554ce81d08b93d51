package feature

import (
	"fmt"
	"math"
	"sort"

	"go.yaml.in/yaml/v3"
)

func builtins() map[string]Constructor {
	return map[string]Constructor{
		"identity": func(*Registry, Params) (Transformer, error) { return &Identity{}, nil },
		"null":     func(*Registry, Params) (Transformer, error) { return &Null{}, nil },
		"log1p":    func(*Registry, Params) (Transformer, error) { return &Log1p{}, nil },
		"value_replacer": func(_ *Registry, p Params) (Transformer, error) {
			t := &ValueReplacer{}
			return t, p.Decode(t)
		},
		"imputer": func(_ *Registry, p Params) (Transformer, error) {
			t := &Imputer{Strategy: "mean"}
			if err := p.Decode(t); err != nil {
				return nil, err
			}
			switch t.Strategy {
			case "mean", "median", "constant":
				return t, nil
			default:
				return nil, fmt.Errorf("unknown strategy %q", t.Strategy)
			}
		},
		"boxcox": func(_ *Registry, p Params) (Transformer, error) {
			t := &BoxCox{}
			return t, p.Decode(t)
		},
		"standard_scaler": func(*Registry, Params) (Transformer, error) { return &StandardScaler{}, nil },
		"named_framer": func(_ *Registry, p Params) (Transformer, error) {
			t := &NamedFramer{}
			if err := p.Decode(t); err != nil {
				return nil, err
			}
			if t.Name == "" {
				return nil, fmt.Errorf("name is required")
			}
			return t, nil
		},
		"pipeline": func(reg *Registry, p Params) (Transformer, error) {
			var decl struct {
				Steps []yaml.Node `yaml:"steps"`
			}
			if err := p.Decode(&decl); err != nil {
				return nil, err
			}
			chain := &Chain{}
			for i := range decl.Steps {
				t, err := reg.Build(&decl.Steps[i])
				if err != nil {
					return nil, err
				}
				chain.Steps = append(chain.Steps, t)
			}
			return chain, nil
		},
	}
}

// Identity passes its input through.
type Identity struct{}

func (*Identity) Fit(*Frame, []float64) error { return nil }

func (*Identity) Transform(X *Frame) (*Frame, error) { return X.Clone(), nil }

func (*Identity) Clone() (Transformer, error) { return &Identity{}, nil }

// Null produces zero columns. It stands in for an empty feature set.
type Null struct{}

func (*Null) Fit(*Frame, []float64) error { return nil }

func (*Null) Transform(X *Frame) (*Frame, error) { return NewFrame(X.Rows()), nil }

func (*Null) Clone() (Transformer, error) { return &Null{}, nil }

// Log1p applies log(1+x) elementwise.
type Log1p struct{}

func (*Log1p) Fit(*Frame, []float64) error { return nil }

func (*Log1p) Transform(X *Frame) (*Frame, error) { return X.Map(math.Log1p), nil }

func (*Log1p) Clone() (Transformer, error) { return &Log1p{}, nil }

// ValueReplacer replaces every occurrence of Value with Replacement.
// A NaN Value matches missing values.
type ValueReplacer struct {
	Value       float64 `yaml:"value"`
	Replacement float64 `yaml:"replacement"`
}

func (*ValueReplacer) Fit(*Frame, []float64) error { return nil }

func (t *ValueReplacer) Transform(X *Frame) (*Frame, error) {
	matchNaN := math.IsNaN(t.Value)
	return X.Map(func(v float64) float64 {
		if v == t.Value || (matchNaN && math.IsNaN(v)) {
			return t.Replacement
		}
		return v
	}), nil
}

func (t *ValueReplacer) Clone() (Transformer, error) {
	c := *t
	return &c, nil
}

// Imputer fills missing values with a per-column statistic learned in Fit.
type Imputer struct {
	// Strategy is one of mean, median or constant.
	Strategy  string  `yaml:"strategy"`
	FillValue float64 `yaml:"fill_value"`

	fills []float64
}

func (t *Imputer) Fit(X *Frame, _ []float64) error {
	t.fills = make([]float64, X.Width())
	for i := range t.fills {
		var present []float64
		for _, v := range X.At(i) {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		switch {
		case t.Strategy == "constant" || len(present) == 0:
			t.fills[i] = t.FillValue
		case t.Strategy == "median":
			t.fills[i] = median(present)
		default:
			t.fills[i] = mean(present)
		}
	}
	return nil
}

func (t *Imputer) Transform(X *Frame) (*Frame, error) {
	if t.fills == nil {
		return nil, fmt.Errorf("imputer: %w", ErrNotFitted)
	}
	if X.Width() != len(t.fills) {
		return nil, fmt.Errorf("imputer: fitted on %d columns, got %d", len(t.fills), X.Width())
	}
	out := X.Clone()
	for i, fill := range t.fills {
		col := out.At(i)
		for j, v := range col {
			if math.IsNaN(v) {
				col[j] = fill
			}
		}
	}
	return out, nil
}

func (t *Imputer) Clone() (Transformer, error) {
	c := *t
	if t.fills != nil {
		c.fills = append([]float64(nil), t.fills...)
	}
	return &c, nil
}

// BoxCox applies the Box-Cox transform of 1+x to columns whose absolute
// skew, measured in Fit, exceeds Threshold.
type BoxCox struct {
	Threshold float64 `yaml:"threshold"`
	Lambda    float64 `yaml:"lambda"`

	mask []bool
}

func (t *BoxCox) Fit(X *Frame, _ []float64) error {
	t.mask = make([]bool, X.Width())
	for i := range t.mask {
		t.mask[i] = math.Abs(skew(X.At(i))) > t.Threshold
	}
	return nil
}

func (t *BoxCox) Transform(X *Frame) (*Frame, error) {
	if t.mask == nil {
		return nil, fmt.Errorf("boxcox: %w", ErrNotFitted)
	}
	if X.Width() != len(t.mask) {
		return nil, fmt.Errorf("boxcox: fitted on %d columns, got %d", len(t.mask), X.Width())
	}
	out := X.Clone()
	for i, apply := range t.mask {
		if !apply {
			continue
		}
		col := out.At(i)
		for j, v := range col {
			col[j] = boxcox1p(v, t.Lambda)
		}
	}
	return out, nil
}

func (t *BoxCox) Clone() (Transformer, error) {
	c := *t
	if t.mask != nil {
		c.mask = append([]bool(nil), t.mask...)
	}
	return &c, nil
}

func boxcox1p(x, lambda float64) float64 {
	if x <= -1 {
		return math.NaN()
	}
	if lambda == 0 {
		return math.Log1p(x)
	}
	return (math.Pow(1+x, lambda) - 1) / lambda
}

// StandardScaler centers each column and scales it to unit variance.
type StandardScaler struct {
	means []float64
	stds  []float64
}

func (t *StandardScaler) Fit(X *Frame, _ []float64) error {
	t.means = make([]float64, X.Width())
	t.stds = make([]float64, X.Width())
	for i := range t.means {
		var present []float64
		for _, v := range X.At(i) {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		m := mean(present)
		var ss float64
		for _, v := range present {
			ss += (v - m) * (v - m)
		}
		sd := 1.0
		if len(present) > 0 && ss > 0 {
			sd = math.Sqrt(ss / float64(len(present)))
		}
		t.means[i], t.stds[i] = m, sd
	}
	return nil
}

func (t *StandardScaler) Transform(X *Frame) (*Frame, error) {
	if t.means == nil {
		return nil, fmt.Errorf("standard_scaler: %w", ErrNotFitted)
	}
	if X.Width() != len(t.means) {
		return nil, fmt.Errorf("standard_scaler: fitted on %d columns, got %d", len(t.means), X.Width())
	}
	out := X.Clone()
	for i := range t.means {
		col := out.At(i)
		for j, v := range col {
			col[j] = (v - t.means[i]) / t.stds[i]
		}
	}
	return out, nil
}

func (t *StandardScaler) Clone() (Transformer, error) {
	c := &StandardScaler{}
	if t.means != nil {
		c.means = append([]float64(nil), t.means...)
		c.stds = append([]float64(nil), t.stds...)
	}
	return c, nil
}

// NamedFramer names a single-column output.
type NamedFramer struct {
	Name string `yaml:"name"`
}

func (*NamedFramer) Fit(*Frame, []float64) error { return nil }

func (t *NamedFramer) Transform(X *Frame) (*Frame, error) {
	if X.Width() != 1 {
		return nil, fmt.Errorf("named_framer: cannot name %d columns %q", X.Width(), t.Name)
	}
	return X.Rename([]string{t.Name})
}

func (t *NamedFramer) Clone() (Transformer, error) {
	c := *t
	return &c, nil
}

// Chain applies its steps in order, fitting each on the output of the
// previous one.
type Chain struct {
	Steps []Transformer
}

func (c *Chain) Fit(X *Frame, y []float64) error {
	cur := X
	for i, step := range c.Steps {
		if err := step.Fit(cur, y); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if i == len(c.Steps)-1 {
			break
		}
		next, err := step.Transform(cur)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		cur = next
	}
	return nil
}

func (c *Chain) Transform(X *Frame) (*Frame, error) {
	cur := X.Clone()
	for i, step := range c.Steps {
		next, err := step.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

func (c *Chain) Clone() (Transformer, error) {
	out := &Chain{Steps: make([]Transformer, 0, len(c.Steps))}
	for i, step := range c.Steps {
		s, err := step.Clone()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out.Steps = append(out.Steps, s)
	}
	return out, nil
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func median(vs []float64) float64 {
	s := append([]float64(nil), vs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// skew is the biased sample skewness, ignoring NaN. Constant columns have
// zero skew.
func skew(vs []float64) float64 {
	var present []float64
	for _, v := range vs {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0
	}
	m := mean(present)
	var m2, m3 float64
	for _, v := range present {
		d := v - m
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(present))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Verify built-ins implement Transformer at compile time.
var (
	_ Transformer = (*Identity)(nil)
	_ Transformer = (*Null)(nil)
	_ Transformer = (*Log1p)(nil)
	_ Transformer = (*ValueReplacer)(nil)
	_ Transformer = (*Imputer)(nil)
	_ Transformer = (*BoxCox)(nil)
	_ Transformer = (*StandardScaler)(nil)
	_ Transformer = (*NamedFramer)(nil)
	_ Transformer = (*Chain)(nil)
	_ Transformer = TransformerFunc(nil)
)
