// Package feature defines contributed features: an input column selector
// plus a transformer, declared in YAML manifests.
package feature

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Kind is the manifest kind that marks a document as a feature.
const Kind = "Feature"

// Feature is a unit of feature engineering logic.
type Feature struct {
	Name        string
	Description string
	Input       Input
	Transformer Transformer
	// Output optionally names the output columns.
	Output []string
	// Source is the module the feature was loaded from.
	Source string
}

// New returns a feature with the given input and transformer. A nil
// transformer passes the input through.
func New(input Input, t Transformer) *Feature {
	if t == nil {
		t = &Identity{}
	}
	return &Feature{Input: input, Transformer: t}
}

// IsFeature reports whether a loaded manifest object is a usable feature.
func IsFeature(obj any) bool {
	f, ok := obj.(*Feature)
	return ok && f != nil && f.Transformer != nil
}

func (f *Feature) String() string {
	if f.Source != "" {
		return f.Source
	}
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("feature(%v)", f.Input.Columns)
}

// Clone returns a deep copy whose transformer state is independent.
func (f *Feature) Clone() (*Feature, error) {
	t, err := f.Transformer.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", f, err)
	}
	c := *f
	c.Input.Columns = append([]string(nil), f.Input.Columns...)
	c.Output = append([]string(nil), f.Output...)
	c.Transformer = t
	return &c, nil
}

// Fit selects the input columns of X and fits the transformer.
func (f *Feature) Fit(X *Frame, y []float64) error {
	in, err := X.Select(f.Input.Columns)
	if err != nil {
		return fmt.Errorf("fit %s: %w", f, err)
	}
	if err := f.Transformer.Fit(in, y); err != nil {
		return fmt.Errorf("fit %s: %w", f, err)
	}
	return nil
}

// Transform selects the input columns of X and applies the fitted
// transformer, naming the output columns when Output is set.
func (f *Feature) Transform(X *Frame) (*Frame, error) {
	in, err := X.Select(f.Input.Columns)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", f, err)
	}
	out, err := f.Transformer.Transform(in)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", f, err)
	}
	if out == nil {
		return nil, fmt.Errorf("transform %s: transformer returned no frame", f)
	}
	if len(f.Output) > 0 && out.Width() > 0 {
		if out, err = out.Rename(f.Output); err != nil {
			return nil, fmt.Errorf("transform %s: %w", f, err)
		}
	}
	return out, nil
}

// Apply fits on X and y, then transforms X.
func (f *Feature) Apply(X *Frame, y []float64) (*Frame, error) {
	if err := f.Fit(X, y); err != nil {
		return nil, err
	}
	return f.Transform(X)
}

// manifest is the YAML shape of a feature document.
type manifest struct {
	Kind        string    `yaml:"kind"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Input       Input     `yaml:"input"`
	Transformer yaml.Node `yaml:"transformer"`
	Output      nameList  `yaml:"output"`
}

// FromNode builds a feature from a decoded manifest document.
func FromNode(n *yaml.Node, reg *Registry) (*Feature, error) {
	if reg == nil {
		reg = defaultRegistry
	}
	var m manifest
	if err := n.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode feature: %w", err)
	}
	if m.Kind != Kind {
		return nil, fmt.Errorf("decode feature: kind is %q, want %q", m.Kind, Kind)
	}
	t, err := reg.Build(&m.Transformer)
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}
	return &Feature{
		Name:        m.Name,
		Description: m.Description,
		Input:       m.Input,
		Transformer: t,
		Output:      m.Output,
	}, nil
}

// Object is one top-level document of a manifest file. Value is a
// *Feature for feature documents and the generic decoded value otherwise.
type Object struct {
	Kind  string
	Index int
	Value any
}

// DecodeAll decodes every document of a manifest stream. Feature documents
// are built into features; any decode or build failure fails the whole
// stream.
func DecodeAll(r io.Reader, reg *Registry) ([]Object, error) {
	dec := yaml.NewDecoder(r)
	var objs []Object
	for i := 0; ; i++ {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return objs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}

		var head struct {
			Kind string `yaml:"kind"`
		}
		// Non-mapping documents have no kind.
		_ = doc.Decode(&head)

		obj := Object{Kind: head.Kind, Index: i}
		if head.Kind == Kind {
			f, err := FromNode(&doc, reg)
			if err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}
			obj.Value = f
		} else {
			var v any
			if err := doc.Decode(&v); err != nil {
				return nil, fmt.Errorf("document %d: %w", i, err)
			}
			obj.Value = v
		}
		objs = append(objs, obj)
	}
}

// Parse decodes a single-document feature manifest.
func Parse(data []byte, reg *Registry) (*Feature, error) {
	objs, err := DecodeAll(bytes.NewReader(data), reg)
	if err != nil {
		return nil, err
	}
	var found *Feature
	for _, o := range objs {
		if !IsFeature(o.Value) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("manifest declares more than one feature")
		}
		found = o.Value.(*Feature)
	}
	if found == nil {
		return nil, fmt.Errorf("manifest declares no feature")
	}
	return found, nil
}

// Pipeline applies a set of features and joins their outputs column-wise.
// An empty set yields a single Null feature.
type Pipeline struct {
	features []*Feature
}

// NewPipeline returns a pipeline over features.
func NewPipeline(features []*Feature) *Pipeline {
	if len(features) == 0 {
		features = []*Feature{New(Input{}, &Null{})}
	}
	return &Pipeline{features: features}
}

// Features returns the pipeline's features.
func (p *Pipeline) Features() []*Feature { return p.features }

// FitTransform fits every feature on X and y and joins the outputs.
func (p *Pipeline) FitTransform(X *Frame, y []float64) (*Frame, error) {
	outs := make([]*Frame, 0, len(p.features))
	for _, f := range p.features {
		out, err := f.Apply(X, y)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return Concat(outs...)
}
