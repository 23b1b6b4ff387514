package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific grid loader.
type Loader interface {
	// Load reads every grid file found under the given paths, translates them
	// into the format-agnostic model and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the bridge between raw node arguments and the Go types used by
// modules.
type Converter interface {
	// DecodeBody evaluates args against evalCtx and populates the fields of
	// the struct pointed to by target. Fields are matched by their `arg` tag.
	DecodeBody(ctx context.Context, target any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error

	// ToCtyValue converts a native Go value, typically a node's output, into
	// a cty.Value that expressions can reference.
	ToCtyValue(v any) (cty.Value, error)

	// ToNative converts a cty.Value into plain Go values (string, float64,
	// bool, []any, map[string]any).
	ToNative(v cty.Value) (any, error)
}
