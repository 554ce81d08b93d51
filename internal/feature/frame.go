package feature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMissingColumn is returned when a selected column does not exist.
var ErrMissingColumn = errors.New("missing column")

// Frame is a table of named float64 columns with a fixed row count.
// NaN marks a missing value. A frame may have rows but zero columns.
type Frame struct {
	names []string
	cols  [][]float64
	rows  int
}

// NewFrame returns an empty frame with the given number of rows.
func NewFrame(rows int) *Frame {
	return &Frame{rows: rows}
}

// FrameOf builds a frame from parallel name and column slices.
// Columns are copied.
func FrameOf(names []string, cols ...[]float64) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("frame: %d names for %d columns", len(names), len(cols))
	}
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	f := NewFrame(rows)
	for i, name := range names {
		if err := f.Add(name, cols[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns a copy of the column names in order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Column returns the named column. The slice is owned by the frame.
func (f *Frame) Column(name string) ([]float64, bool) {
	i := f.index(name)
	if i < 0 {
		return nil, false
	}
	return f.cols[i], true
}

// At returns the i-th column. The slice is owned by the frame.
func (f *Frame) At(i int) []float64 { return f.cols[i] }

func (f *Frame) index(name string) int {
	for i, n := range f.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Add appends a copy of vals as a new column.
func (f *Frame) Add(name string, vals []float64) error {
	if name == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if f.index(name) >= 0 {
		return fmt.Errorf("frame: duplicate column %q", name)
	}
	if len(vals) != f.rows {
		return fmt.Errorf("frame: column %q has %d rows, want %d", name, len(vals), f.rows)
	}
	f.names = append(f.names, name)
	f.cols = append(f.cols, append([]float64(nil), vals...))
	return nil
}

// Select returns a new frame holding copies of the named columns in order.
func (f *Frame) Select(names []string) (*Frame, error) {
	out := NewFrame(f.rows)
	for _, name := range names {
		col, ok := f.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		if err := out.Add(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Drop returns a copy of the frame without the named column.
func (f *Frame) Drop(name string) *Frame {
	out := NewFrame(f.rows)
	for i, n := range f.names {
		if n != name {
			out.names = append(out.names, n)
			out.cols = append(out.cols, append([]float64(nil), f.cols[i]...))
		}
	}
	return out
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{rows: f.rows, names: append([]string(nil), f.names...)}
	for _, c := range f.cols {
		out.cols = append(out.cols, append([]float64(nil), c...))
	}
	return out
}

// Map returns a copy with fn applied to every value.
func (f *Frame) Map(fn func(float64) float64) *Frame {
	out := f.Clone()
	for _, c := range out.cols {
		for i, v := range c {
			c[i] = fn(v)
		}
	}
	return out
}

// Rename returns a copy with new column names. A single name applied to a
// multi-column frame is suffixed with the column index.
func (f *Frame) Rename(names []string) (*Frame, error) {
	switch {
	case len(names) == f.Width():
	case len(names) == 1 && f.Width() > 1:
		base := names[0]
		names = make([]string, f.Width())
		for i := range names {
			names[i] = base + "_" + strconv.Itoa(i)
		}
	default:
		return nil, fmt.Errorf("frame: %d names for %d columns", len(names), f.Width())
	}

	out := NewFrame(f.rows)
	for i, name := range names {
		if err := out.Add(name, f.cols[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountMissing returns the number of NaN or infinite values.
func (f *Frame) CountMissing() int {
	n := 0
	for _, c := range f.cols {
		for _, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				n++
			}
		}
	}
	return n
}

// SameValues reports whether both frames hold the same values in the same
// shape, ignoring column names. NaN equals NaN.
func (f *Frame) SameValues(g *Frame) bool {
	if f.rows != g.rows || len(f.cols) != len(g.cols) {
		return false
	}
	for i := range f.cols {
		for j, v := range f.cols[i] {
			w := g.cols[i][j]
			if v != w && !(math.IsNaN(v) && math.IsNaN(w)) {
				return false
			}
		}
	}
	return true
}

// Concat joins frames column-wise. Row counts must agree; repeated column
// names get a numeric suffix.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return NewFrame(0), nil
	}
	out := NewFrame(frames[0].rows)
	for _, fr := range frames {
		if fr.rows != out.rows {
			return nil, fmt.Errorf("frame: concat %d rows with %d rows", fr.rows, out.rows)
		}
		for i, name := range fr.names {
			unique := name
			for n := 1; out.index(unique) >= 0; n++ {
				unique = name + "_" + strconv.Itoa(n)
			}
			if err := out.Add(unique, fr.cols[i]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
