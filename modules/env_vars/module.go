// Package env_vars provides the "env_vars" node type, which exposes the
// process environment, optionally merged with dotenv files, to the grid.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the env_vars runner.
type Input struct {
	// Files are dotenv files read before the process environment. Variables
	// already set in the process take precedence, as with godotenv.Load.
	Files []string `arg:"files,optional"`
	// Prefix, when set, keeps only variables starting with it.
	Prefix string `arg:"prefix,optional"`
}

// Output defines the data structure returned by the runner.
type Output struct {
	All map[string]string `cty:"all"`
}

// OnRunEnvVars is the handler for the 'env_vars' runner.
func OnRunEnvVars(ctx context.Context, input *Input) (*Output, error) {
	envMap := make(map[string]string)

	if len(input.Files) > 0 {
		fromFiles, err := godotenv.Read(input.Files...)
		if err != nil {
			return nil, fmt.Errorf("failed to read env files: %w", err)
		}
		for k, v := range fromFiles {
			envMap[k] = v
		}
		ctxlog.FromContext(ctx).Debug("Read env files.", "files", input.Files, "count", len(fromFiles))
	}

	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}

	if input.Prefix != "" {
		for k := range envMap {
			if !strings.HasPrefix(k, input.Prefix) {
				delete(envMap, k)
			}
		}
	}

	return &Output{All: envMap}, nil
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("env_vars", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunEnvVars,
	})
}
