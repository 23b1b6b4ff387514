package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ArgTag is the struct tag that binds a module input field to a node argument:
// `arg:"name"` for a required argument, `arg:"name,optional"` for an optional
// one. Optional fields keep whatever value the input constructor set.
const ArgTag = "arg"

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// argField describes one tagged field of an input struct.
type argField struct {
	name     string
	optional bool
	index    int
}

func argFields(t reflect.Type) []argField {
	var fields []argField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(ArgTag)
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		af := argField{name: parts[0], index: i}
		for _, opt := range parts[1:] {
			if opt == "optional" {
				af.optional = true
			}
		}
		fields = append(fields, af)
	}
	return fields
}

// DecodeBody evaluates HCL expressions and populates the provided Go struct
// using reflection. Arguments that match no tagged field are rejected.
func (c *Converter) DecodeBody(ctx context.Context, target any, args map[string]hcl.Expression, evalCtx *hcl.EvalContext) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL body decoding.", "arguments", len(args))

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a non-nil pointer to a struct, got %T", target)
	}
	structVal = structVal.Elem()

	fields := argFields(structVal.Type())
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.name] = struct{}{}

		expr, provided := args[f.name]
		if !provided {
			if !f.optional {
				return fmt.Errorf("missing required argument %q", f.name)
			}
			continue
		}

		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return diags
		}
		if err := c.decode(ctx, val, structVal.Field(f.index).Addr().Interface()); err != nil {
			return fmt.Errorf("failed to decode argument '%s': %w", f.name, err)
		}
	}

	for name := range args {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unsupported argument %q", name)
		}
	}

	logger.Debug("Finished HCL body decoding successfully.")
	return nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func (c *Converter) decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}
	goPtr := valPtr.Elem()

	// A cty.Value target takes the value as is.
	if goPtr.Type() == reflect.TypeOf(cty.Value{}) {
		goPtr.Set(reflect.ValueOf(val))
		return nil
	}

	if !val.IsWhollyKnown() {
		return fmt.Errorf("value is not known")
	}
	if val.IsNull() {
		logger.Debug("Skipping decode for null value.")
		return nil
	}

	if goPtr.Kind() == reflect.Interface {
		return c.assignNative(val, goPtr)
	}
	impliedType, err := gocty.ImpliedType(goPtr.Interface())
	if err != nil {
		// Targets such as map[string]any and []any have no cty type; they
		// receive the plain Go representation instead.
		logger.Debug("Could not imply cty.Type from Go type, decoding natively.", "go_type", goPtr.Type().String())
		return c.assignNative(val, goPtr)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}

	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}

	return gocty.FromCtyValue(convertedVal, goVal)
}

func (c *Converter) assignNative(val cty.Value, goPtr reflect.Value) error {
	native, err := c.ToNative(val)
	if err != nil {
		return err
	}
	if native == nil {
		return nil
	}
	nv := reflect.ValueOf(native)
	if !nv.Type().AssignableTo(goPtr.Type()) {
		return fmt.Errorf("cannot assign %s to %s", val.Type().FriendlyName(), goPtr.Type())
	}
	goPtr.Set(nv)
	return nil
}
