package feature

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"
)

// ErrNotFitted is returned by Transform on a stateful transformer that has
// not been fitted.
var ErrNotFitted = errors.New("transformer is not fitted")

// ErrUnknownKind is returned when a manifest names an unregistered
// transformer kind.
var ErrUnknownKind = errors.New("unknown transformer kind")

// Transformer maps an input frame to an output frame with the same number
// of rows.
type Transformer interface {
	// Fit learns any state from the training frame and target.
	Fit(X *Frame, y []float64) error
	// Transform applies the transformer. X is not modified.
	Transform(X *Frame) (*Frame, error)
	// Clone returns an independent copy, including fitted state.
	Clone() (Transformer, error)
}

// TransformerFunc adapts a stateless function to Transformer.
type TransformerFunc func(X *Frame) (*Frame, error)

func (fn TransformerFunc) Fit(*Frame, []float64) error { return nil }

func (fn TransformerFunc) Transform(X *Frame) (*Frame, error) { return fn(X) }

func (fn TransformerFunc) Clone() (Transformer, error) { return fn, nil }

// Params holds the manifest mapping a transformer was declared with.
type Params struct {
	node *yaml.Node
}

// Decode decodes the declaration into v. The "kind" key is present and
// may be ignored.
func (p Params) Decode(v any) error {
	if p.node == nil {
		return nil
	}
	return p.node.Decode(v)
}

// Constructor builds a transformer from its declaration.
type Constructor func(reg *Registry, p Params) (Transformer, error)

// Registry maps transformer kinds to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns a registry holding the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	for kind, ctor := range builtins() {
		r.ctors[kind] = ctor
	}
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when none is given.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a kind to the default registry.
func Register(kind string, ctor Constructor) error {
	return defaultRegistry.Register(kind, ctor)
}

// Register adds a kind. Registering an existing kind is an error.
func (r *Registry) Register(kind string, ctor Constructor) error {
	if kind == "" || ctor == nil {
		return fmt.Errorf("register transformer: empty kind or constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[kind]; exists {
		return fmt.Errorf("register transformer: kind %q already registered", kind)
	}
	r.ctors[kind] = ctor
	return nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs a transformer from a manifest node. A sequence builds a
// chain of its elements; a missing or null node builds the identity.
func (r *Registry) Build(n *yaml.Node) (Transformer, error) {
	if n == nil || n.Kind == 0 || n.Tag == "!!null" {
		return &Identity{}, nil
	}
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}

	switch n.Kind {
	case yaml.SequenceNode:
		return r.buildChain(n.Content)
	case yaml.ScalarNode:
		// Shorthand: "transformer: identity".
		return r.buildKind(n.Value, Params{}, n.Line)
	case yaml.MappingNode:
		var head struct {
			Kind string `yaml:"kind"`
		}
		if err := n.Decode(&head); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return r.buildKind(head.Kind, Params{node: n}, n.Line)
	default:
		return nil, fmt.Errorf("line %d: want a transformer mapping or list", n.Line)
	}
}

func (r *Registry) buildKind(kind string, p Params, line int) (Transformer, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("line %d: %w %q", line, ErrUnknownKind, kind)
	}
	t, err := ctor(r, p)
	if err != nil {
		return nil, fmt.Errorf("line %d: %s: %w", line, kind, err)
	}
	return t, nil
}

func (r *Registry) buildChain(nodes []*yaml.Node) (Transformer, error) {
	chain := &Chain{}
	for _, n := range nodes {
		t, err := r.Build(n)
		if err != nil {
			return nil, err
		}
		chain.Steps = append(chain.Steps, t)
	}
	return chain, nil
}
