package feature

import (
	"errors"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// ErrInvalidInput is returned for an unusable input selector.
var ErrInvalidInput = errors.New("invalid input")

// Input selects the dataset columns a feature consumes. Scalar records that
// the manifest named a single column rather than a list.
type Input struct {
	Columns []string
	Scalar  bool

	// nonString holds names the manifest wrote as numbers, booleans or
	// other non-string scalars.
	nonString []string
}

// Columns returns a list input.
func Columns(names ...string) Input {
	return Input{Columns: names}
}

// Scalar returns a single-column input.
func Scalar(name string) Input {
	return Input{Columns: []string{name}, Scalar: true}
}

// Validate checks the selector is a non-empty list of unique, non-empty names.
func (in Input) Validate() error {
	if len(in.Columns) == 0 {
		return fmt.Errorf("%w: no columns", ErrInvalidInput)
	}
	if in.Scalar && len(in.Columns) != 1 {
		return fmt.Errorf("%w: scalar input with %d columns", ErrInvalidInput, len(in.Columns))
	}
	if len(in.nonString) > 0 {
		return fmt.Errorf("%w: column %s is not a string", ErrInvalidInput, in.nonString[0])
	}
	seen := make(map[string]bool, len(in.Columns))
	for _, c := range in.Columns {
		if c == "" {
			return fmt.Errorf("%w: empty column name", ErrInvalidInput)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, c)
		}
		seen[c] = true
	}
	return nil
}

// UnmarshalYAML accepts either a column name or a list of names.
func (in *Input) UnmarshalYAML(n *yaml.Node) error {
	var names nameList
	if err := n.Decode(&names); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	in.Columns = names
	in.Scalar = n.Kind == yaml.ScalarNode
	in.nonString = nonStringNames(n)
	return nil
}

func nonStringNames(n *yaml.Node) []string {
	nodes := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		nodes = n.Content
	}
	var out []string
	for _, c := range nodes {
		if c.Kind != yaml.ScalarNode {
			continue
		}
		if tag := c.ShortTag(); tag != "!!str" && tag != "!!null" {
			out = append(out, c.Value)
		}
	}
	return out
}

// MarshalYAML writes a scalar input back as a single name.
func (in Input) MarshalYAML() (any, error) {
	if in.Scalar && len(in.Columns) == 1 {
		return in.Columns[0], nil
	}
	return in.Columns, nil
}

// nameList decodes a string or a sequence of strings.
type nameList []string

func (l *nameList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = nameList{n.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := n.Decode(&names); err != nil {
			return err
		}
		*l = names
		return nil
	default:
		return fmt.Errorf("line %d: want a name or a list of names", n.Line)
	}
}
