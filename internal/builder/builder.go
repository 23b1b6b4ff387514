package builder

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/config"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/registry"
)

// ErrUnknownType is returned for a node whose type has no registered runner.
var ErrUnknownType = errors.New("unknown node type")

// Builder translates grid models into node specs.
type Builder struct {
	reg  *registry.Registry
	conv config.Converter
}

// New creates a builder that resolves node types through reg and binds
// arguments with conv.
func New(reg *registry.Registry, conv config.Converter) *Builder {
	return &Builder{reg: reg, conv: conv}
}

// Build returns one spec per grid node, in declaration order. Graph-level
// validation (dangling references, cycles) is left to the executor.
func (b *Builder) Build(ctx context.Context, grid *config.Grid) ([]node.Spec, error) {
	logger := ctxlog.FromContext(ctx)
	specs := make([]node.Spec, 0, len(grid.Nodes))

	for _, n := range grid.Nodes {
		rn, ok := b.reg.Runner(n.Type)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "node '%s' at %s uses type %q", n.ID(), n.Source, n.Type)
		}

		deps := dependencies(n.DependsOn, n.Arguments)
		for _, expr := range n.Arguments {
			for _, traversal := range expr.Variables() {
				logger.Debug("Found reference in arguments.", "nodeID", n.ID(), "traversal", formatTraversal(traversal))
			}
		}

		specs = append(specs, node.Spec{
			ID:        n.ID(),
			Name:      n.Name,
			Type:      n.Type,
			DependsOn: deps,
			Compute: &computation{
				id:          n.ID(),
				runner:      rn,
				args:        n.Arguments,
				conv:        b.conv,
				fingerprint: fingerprint(n),
			},
		})
		logger.Debug("Built node spec.", "nodeID", n.ID(), "dependencies", deps)
	}

	logger.Debug("Grid built.", "nodes", len(specs))
	return specs, nil
}
