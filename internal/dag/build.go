package dag

import (
	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/node"
)

// Build constructs and validates the dependency graph of the given specs.
// Validation covers empty and duplicate IDs, specs without a computation,
// dependencies on unknown nodes and cycles. The first problem found, in spec
// order, is returned.
func Build(specs []node.Spec) (*Graph, error) {
	g := New()

	for i := range specs {
		s := &specs[i]
		if s.ID == "" {
			return nil, errors.Wrapf(ErrEmptyID, "spec at index %d", i)
		}
		if !g.AddNode(s.ID) {
			return nil, errors.Wrapf(ErrDuplicateNode, "node '%s' is declared more than once", s.ID)
		}
		if s.Compute == nil {
			return nil, errors.Wrapf(ErrMissingComputation, "node '%s'", s.ID)
		}
	}

	for i := range specs {
		s := &specs[i]
		for _, dep := range s.DependsOn {
			if !g.Has(dep) {
				return nil, errors.Wrapf(ErrDanglingDependency, "node '%s' depends on unknown node '%s'", s.ID, dep)
			}
			if err := g.AddEdge(dep, s.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}
