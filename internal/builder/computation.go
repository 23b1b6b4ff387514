package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/config"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// computation evaluates a node's arguments and calls its runner.
type computation struct {
	id     string
	runner *registry.RegisteredRunner
	args   map[string]hcl.Expression
	conv   config.Converter

	fingerprint string
}

// Fingerprint implements node.Fingerprinter.
func (c *computation) Fingerprint() string { return c.fingerprint }

// fingerprint hashes the node's argument expressions, sorted by name. An
// argument without recorded source falls back to its location.
func fingerprint(n *config.Node) string {
	names := make([]string, 0, len(n.Arguments))
	for name := range n.Arguments {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		src, ok := n.ArgumentsSource[name]
		if !ok {
			src = n.Arguments[name].Range().String()
		}
		fmt.Fprintf(h, "%s=%q\n", name, src)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Compute implements node.Computation.
func (c *computation) Compute(ctx context.Context, inputs node.Inputs) (node.Output, error) {
	evalCtx, err := evalContext(c.conv, inputs)
	if err != nil {
		return node.Output{}, errors.Wrapf(err, "node '%s'", c.id)
	}

	input := c.runner.NewInput()
	if err := c.conv.DecodeBody(ctx, input, c.args, evalCtx); err != nil {
		return node.Output{}, errors.Wrapf(err, "node '%s': invalid arguments", c.id)
	}
	return c.runner.Call(ctx, input)
}

// evalContext exposes the recorded upstream results as
// node.<type>.<name>.{output,success,error}.
func evalContext(conv config.Converter, inputs node.Inputs) (*hcl.EvalContext, error) {
	byType := make(map[string]map[string]cty.Value)
	for _, id := range inputs.IDs() {
		nodeType, name, ok := config.SplitID(id)
		if !ok {
			continue
		}
		res := inputs[id]
		out, err := conv.ToCtyValue(res.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "converting output of '%s'", id)
		}
		if byType[nodeType] == nil {
			byType[nodeType] = make(map[string]cty.Value)
		}
		byType[nodeType][name] = cty.ObjectVal(map[string]cty.Value{
			"output":  out,
			"success": cty.BoolVal(res.Success),
			"error":   cty.StringVal(res.Description()),
		})
	}

	nodes := make(map[string]cty.Value, len(byType))
	for nodeType, byName := range byType {
		nodes[nodeType] = cty.ObjectVal(byName)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{refRoot: cty.ObjectVal(nodes)},
		Functions: functions,
	}, nil
}

// functions are available in every argument expression.
var functions = map[string]function.Function{
	"coalesce":   stdlib.CoalesceFunc,
	"concat":     stdlib.ConcatFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"length":     stdlib.LengthFunc,
	"lower":      stdlib.LowerFunc,
	"split":      stdlib.SplitFunc,
	"upper":      stdlib.UpperFunc,
}
