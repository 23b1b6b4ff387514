// Package hooks defines the pre- and post-execution hook contracts and the
// ordered registry that holds them.
//
// A pre-execution hook inspects a node before it runs and returns a Decision:
// Proceed lets the pipeline continue, Skip substitutes a pre-built result for
// the computation, and Fail aborts the node. Post-execution hooks observe the
// final result; their errors are reported but never change that result.
package hooks

import (
	"context"
	"fmt"

	"github.com/vk/hookgrid/internal/node"
)

// Action is the outcome selected by a pre-execution hook.
type Action int

const (
	// ActionProceed continues with the next hook or the computation.
	ActionProceed Action = iota
	// ActionSkip stops the pre-hooks and uses Decision.Result as the outcome.
	ActionSkip
	// ActionFail aborts the node with Decision.Reason.
	ActionFail
)

// String returns the lowercase name of the action.
func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "proceed"
	case ActionSkip:
		return "skip"
	case ActionFail:
		return "fail"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is returned by every pre-execution hook.
type Decision struct {
	Action Action
	// Result is the substitute outcome for ActionSkip.
	Result node.Result
	// Reason describes the failure for ActionFail.
	Reason string
}

// Proceed lets execution continue.
func Proceed() Decision {
	return Decision{Action: ActionProceed}
}

// Skip short-circuits the remaining pre-hooks and the computation. The given
// result becomes the node's outcome; post-hooks still run.
func Skip(result node.Result) Decision {
	return Decision{Action: ActionSkip, Result: result}
}

// Fail aborts the node. No post-hooks run for it.
func Fail(reason string) Decision {
	return Decision{Action: ActionFail, Reason: reason}
}

// Failf is Fail with a format string.
func Failf(format string, args ...any) Decision {
	return Fail(fmt.Sprintf(format, args...))
}

// PreHook runs before a node's computation.
type PreHook interface {
	BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) Decision
}

// PostHook runs after a node produced a result, either by computing or by
// being skipped.
type PostHook interface {
	AfterNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error
}

// PreHookFunc adapts a function to PreHook.
type PreHookFunc func(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) Decision

// BeforeNode implements PreHook.
func (f PreHookFunc) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) Decision {
	return f(ctx, id, spec, inputs)
}

// PostHookFunc adapts a function to PostHook.
type PostHookFunc func(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error

// AfterNode implements PostHook.
func (f PostHookFunc) AfterNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error {
	return f(ctx, id, spec, inputs, result)
}

// Named is implemented by hooks that carry a display name. The name appears in
// failure descriptions and observability reports.
type Named interface {
	HookName() string
}

type namedPre struct {
	PreHook
	name string
}

func (n namedPre) HookName() string { return n.name }

type namedPost struct {
	PostHook
	name string
}

func (n namedPost) HookName() string { return n.name }

// NamedPre attaches a name to a pre-execution hook.
func NamedPre(name string, h PreHook) PreHook {
	return namedPre{PreHook: h, name: name}
}

// NamedPost attaches a name to a post-execution hook.
func NamedPost(name string, h PostHook) PostHook {
	return namedPost{PostHook: h, name: name}
}

func nameOf(h any, fallback string) string {
	if n, ok := h.(Named); ok && n.HookName() != "" {
		return n.HookName()
	}
	return fallback
}
