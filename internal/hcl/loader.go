package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/hookgrid/internal/config"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL grid loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one model. Node IDs must be unique across files and at most one settings
// block may be declared.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindAll(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{Grid: &config.Grid{}}
	parser := hclparse.NewParser()
	declared := make(map[string]string)
	var settingsAt string

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, s := range root.Settings {
			if settingsAt != "" {
				return nil, nil, fmt.Errorf("settings block at %s: already declared at %s", s.DefRange, settingsAt)
			}
			settingsAt = s.DefRange.String()
			model.Grid.Settings = translateSettings(s)
		}

		for _, nb := range root.Nodes {
			n, err := translateNode(nb, hclFile.Bytes)
			if err != nil {
				return nil, nil, err
			}
			if prev, dup := declared[n.ID()]; dup {
				return nil, nil, fmt.Errorf("node '%s' at %s: already declared at %s", n.ID(), n.Source, prev)
			}
			declared[n.ID()] = n.Source
			model.Grid.Nodes = append(model.Grid.Nodes, n)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "nodes", len(model.Grid.Nodes))
	return model, NewConverter(), nil
}

func translateSettings(s *settingsBlock) config.Settings {
	var out config.Settings
	if s.MaxConcurrency != nil {
		out.MaxConcurrency = *s.MaxConcurrency
	}
	if s.DependencyPolicy != nil {
		out.DependencyPolicy = *s.DependencyPolicy
	}
	return out
}

func translateNode(nb *nodeBlock, src []byte) (*config.Node, error) {
	n := &config.Node{
		Type:            nb.Type,
		Name:            nb.Name,
		Arguments:       make(map[string]hcl.Expression),
		ArgumentsSource: make(map[string]string),
		Source:          nb.DefRange.String(),
	}

	for _, dep := range nb.DependsOn {
		if _, _, ok := config.SplitID(dep); !ok {
			return nil, fmt.Errorf("node '%s' at %s: invalid depends_on entry %q: expected \"<type>.<name>\"", n.ID(), n.Source, dep)
		}
		n.DependsOn = append(n.DependsOn, dep)
	}

	if nb.Arguments != nil && nb.Arguments.Body != nil {
		attrs, diags := nb.Arguments.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("node '%s' at %s: invalid arguments block: %w", n.ID(), n.Source, diags)
		}
		for name, attr := range attrs {
			n.Arguments[name] = attr.Expr
			n.ArgumentsSource[name] = string(attr.Expr.Range().SliceBytes(src))
		}
	}
	return n, nil
}
