// Package audit logs every node's lifecycle through slog: one record when a
// node passes the pre-execution hooks registered before it, one when its
// result is final.
package audit

import (
	"context"
	"log/slog"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
)

// HookName is the name under which the audit hooks are registered.
const HookName = "audit"

// Auditor is both a pre- and a post-execution hook.
type Auditor struct {
	logger *slog.Logger
}

// New returns an Auditor. A nil logger means the logger carried by each
// node's context, which already holds the run, node and worker attributes.
func New(logger *slog.Logger) *Auditor {
	return &Auditor{logger: logger}
}

// HookName implements hooks.Named.
func (a *Auditor) HookName() string { return HookName }

func (a *Auditor) log(ctx context.Context) *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return ctxlog.FromContext(ctx)
}

// BeforeNode records the start of a node.
func (a *Auditor) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) hooks.Decision {
	a.log(ctx).InfoContext(ctx, "Node starting.",
		"audit", true,
		"node", id,
		"type", spec.Kind(),
		"upstream", inputs.IDs(),
	)
	return hooks.Proceed()
}

// AfterNode records the final result of a node.
func (a *Auditor) AfterNode(ctx context.Context, id string, spec *node.Spec, _ node.Inputs, result node.Result) error {
	attrs := []any{
		"audit", true,
		"node", id,
		"type", spec.Kind(),
		"success", result.Success,
		"latency", result.Latency,
		"tokens", result.TokensUsed,
	}
	if result.Failure != nil {
		attrs = append(attrs, "kind", result.Failure.Kind.String(), "error", result.Failure.Error())
		a.log(ctx).WarnContext(ctx, "Node finished.", attrs...)
		return nil
	}
	a.log(ctx).InfoContext(ctx, "Node finished.", attrs...)
	return nil
}
