// Package node defines the value objects that flow through the execution
// pipeline: node specifications, computations, their inputs and results.
package node

import (
	"context"
	"sort"
)

// DefaultType is the Type given to specs that do not declare one.
const DefaultType = "node"

// Spec is the immutable description of a single graph node. It is created once
// when the graph is built and is never mutated by the engine.
type Spec struct {
	// ID is the unique identifier of the node within its graph.
	ID string
	// Name is the human-readable name. It defaults to ID.
	Name string
	// Type is a free-form label for the kind of computation, e.g. "http_request".
	Type string
	// DependsOn lists the IDs of the upstream nodes whose results this node consumes.
	DependsOn []string
	// Compute is invoked with the resolved inputs when the node runs.
	Compute Computation
}

// DisplayName returns Name, falling back to ID.
func (s *Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Kind returns Type, falling back to DefaultType.
func (s *Spec) Kind() string {
	if s.Type != "" {
		return s.Type
	}
	return DefaultType
}

// Output is what a computation produces on success.
type Output struct {
	Value      any
	TokensUsed int64
}

// Computation turns a node's resolved inputs into an output.
type Computation interface {
	Compute(ctx context.Context, inputs Inputs) (Output, error)
}

// Fingerprinter is implemented by computations that can summarize their own
// configuration as a stable string. Equal fingerprints mean the computation
// would do the same work given the same inputs.
type Fingerprinter interface {
	Fingerprint() string
}

// FingerprintOf returns the fingerprint of c, or "" if c has none.
func FingerprintOf(c Computation) string {
	if f, ok := c.(Fingerprinter); ok {
		return f.Fingerprint()
	}
	return ""
}

// Func adapts a plain function returning only a value to the Computation interface.
type Func func(ctx context.Context, inputs Inputs) (any, error)

// Compute implements Computation.
func (f Func) Compute(ctx context.Context, inputs Inputs) (Output, error) {
	v, err := f(ctx, inputs)
	if err != nil {
		return Output{}, err
	}
	return Output{Value: v}, nil
}

// ComputeFunc adapts a function that reports its own Output.
type ComputeFunc func(ctx context.Context, inputs Inputs) (Output, error)

// Compute implements Computation.
func (f ComputeFunc) Compute(ctx context.Context, inputs Inputs) (Output, error) {
	return f(ctx, inputs)
}

// Inputs holds the recorded results of a node's dependencies, keyed by
// upstream node ID.
type Inputs map[string]Result

// Value returns the output of the given upstream node, or nil.
func (in Inputs) Value(id string) any {
	r, ok := in[id]
	if !ok {
		return nil
	}
	return r.Output
}

// Map returns the output of the given upstream node when it is a
// map[string]any.
func (in Inputs) Map(id string) (map[string]any, bool) {
	m, ok := in.Value(id).(map[string]any)
	return m, ok
}

// Copy returns a new Inputs holding a Copy of every result.
func (in Inputs) Copy() Inputs {
	if in == nil {
		return nil
	}
	out := make(Inputs, len(in))
	for id, r := range in {
		out[id] = r.Copy()
	}
	return out
}

// IDs returns the upstream IDs in sorted order.
func (in Inputs) IDs() []string {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
