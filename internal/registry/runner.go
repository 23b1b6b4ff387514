package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/hookgrid/internal/node"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	outputType  = reflect.TypeOf(node.Output{})
)

// RegisteredRunner holds the compiled Go parts of a node type.
type RegisteredRunner struct {
	// NewInput returns a pointer to a fresh input struct. Fields set here act
	// as defaults for optional arguments.
	NewInput func() any
	// Fn is the handler, of the form
	//
	//	func(ctx context.Context, input *Input) (Out, error)
	//
	// When Out is node.Output the handler reports token usage itself;
	// any other Out becomes the output value.
	Fn any
}

// Call invokes the handler with the decoded input.
func (r *RegisteredRunner) Call(ctx context.Context, input any) (node.Output, error) {
	fn := reflect.ValueOf(r.Fn)
	results := fn.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(input)})

	if errVal := results[1]; !errVal.IsNil() {
		return node.Output{}, errVal.Interface().(error)
	}

	out := results[0]
	if out.Type() == outputType {
		return out.Interface().(node.Output), nil
	}
	if (out.Kind() == reflect.Ptr || out.Kind() == reflect.Interface || out.Kind() == reflect.Map) && out.IsNil() {
		return node.Output{}, nil
	}
	return node.Output{Value: out.Interface()}, nil
}

// validate checks the handler signature against the input constructor.
func (r *RegisteredRunner) validate() error {
	if r.NewInput == nil {
		return fmt.Errorf("NewInput is nil")
	}
	if r.Fn == nil {
		return fmt.Errorf("Fn is nil")
	}

	input := r.NewInput()
	inputType := reflect.TypeOf(input)
	if inputType == nil || inputType.Kind() != reflect.Ptr || inputType.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("NewInput must return a pointer to a struct, got %T", input)
	}

	fnType := reflect.TypeOf(r.Fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("Fn must be a function, got %s", fnType)
	}
	if fnType.NumIn() != 2 || fnType.In(0) != contextType || fnType.In(1) != inputType {
		return fmt.Errorf("Fn must have signature func(context.Context, %s) (T, error), got %s", inputType, fnType)
	}
	if fnType.NumOut() != 2 || fnType.Out(1) != errorType {
		return fmt.Errorf("Fn must return (T, error), got %s", fnType)
	}
	return nil
}
