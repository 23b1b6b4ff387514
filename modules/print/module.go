// Package print provides the "print" node type, which writes its value
// argument to the application's output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Defaults to os.Stdout.
	Out io.Writer
}

// Input defines the arguments for the print runner.
type Input struct {
	Value map[string]string `arg:"value,optional"`
}

// Run writes the sorted key/value pairs of input.Value to out.
func Run(out io.Writer) func(ctx context.Context, input *Input) (map[string]string, error) {
	return func(ctx context.Context, input *Input) (map[string]string, error) {
		ctxlog.FromContext(ctx).Info("Printing input.", "keys", len(input.Value))

		if input.Value == nil {
			_, err := fmt.Fprintln(out, "      (null)")
			return nil, err
		}

		keys := make([]string, 0, len(input.Value))
		for k := range input.Value {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, err := fmt.Fprintf(out, "      %s = %q\n", k, input.Value[k]); err != nil {
				return nil, err
			}
		}
		return input.Value, nil
	}
}

// Register registers the runner with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterRunner("print", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       Run(out),
	})
}
