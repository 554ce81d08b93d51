package project

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ShayCichocki/contribgate/internal/evaluate"
	"github.com/ShayCichocki/contribgate/internal/feature"
)

// ErrNoTarget is returned when the dataset lacks the target column.
var ErrNoTarget = errors.New("target column not found")

// ReadDataset parses a CSV with a header row. The target column becomes Y;
// every other column becomes a feature column of X. Empty cells and NA
// markers are read as missing values.
func ReadDataset(r io.Reader, target string) (evaluate.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return evaluate.Dataset{}, fmt.Errorf("read header: %w", err)
	}

	ti := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == target {
			ti = i
		}
	}
	if ti < 0 {
		return evaluate.Dataset{}, fmt.Errorf("%w: %q", ErrNoTarget, target)
	}

	cols := make([][]float64, len(header))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return evaluate.Dataset{}, fmt.Errorf("line %d: %w", line, err)
		}
		for i, cell := range rec {
			v, err := parseCell(cell)
			if err != nil {
				return evaluate.Dataset{}, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			cols[i] = append(cols[i], v)
		}
	}

	var (
		names []string
		xs    [][]float64
	)
	for i, h := range header {
		if i == ti {
			continue
		}
		names = append(names, h)
		xs = append(xs, cols[i])
	}

	rows := len(cols[ti])
	X := feature.NewFrame(rows)
	for i, n := range names {
		if err := X.Add(n, xs[i]); err != nil {
			return evaluate.Dataset{}, err
		}
	}
	y := cols[ti]
	if y == nil {
		y = []float64{}
	}
	return evaluate.Dataset{X: X, Y: y}, nil
}

// LoadDataset reads the dataset CSV at path.
func LoadDataset(path, target string) (evaluate.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return evaluate.Dataset{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadDataset(f, target)
	if err != nil {
		return evaluate.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
