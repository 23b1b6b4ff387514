package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/hookgrid/internal/ctxlog"
)

// Validate checks every registered runner: the handler signature must match
// the input constructor, and `arg` tags must be unique and well formed.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, nodeType := range r.Types() {
		rn, _ := r.Runner(nodeType)
		if err := rn.validate(); err != nil {
			errs = append(errs, fmt.Sprintf("node type '%s': %v", nodeType, err))
			continue
		}

		inputType := reflect.TypeOf(rn.NewInput()).Elem()
		seen := make(map[string]string)
		for i := 0; i < inputType.NumField(); i++ {
			field := inputType.Field(i)
			tag := field.Tag.Get("arg")
			if tag == "" || tag == "-" {
				continue
			}
			if !field.IsExported() {
				errs = append(errs, fmt.Sprintf("node type '%s': field %s has an arg tag but is not exported", nodeType, field.Name))
				continue
			}
			parts := strings.Split(tag, ",")
			name := parts[0]
			if name == "" {
				errs = append(errs, fmt.Sprintf("node type '%s': field %s has an empty argument name", nodeType, field.Name))
				continue
			}
			for _, opt := range parts[1:] {
				if opt != "optional" {
					errs = append(errs, fmt.Sprintf("node type '%s': field %s has unknown tag option %q", nodeType, field.Name, opt))
				}
			}
			if prev, dup := seen[name]; dup {
				errs = append(errs, fmt.Sprintf("node type '%s': argument '%s' is bound to both %s and %s", nodeType, name, prev, field.Name))
				continue
			}
			seen[name] = field.Name
		}
		logger.Debug("Validated runner.", "type", nodeType, "arguments", len(seen))
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
