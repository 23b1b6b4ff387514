package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/observe"
)

// Runner executes a single node under the hook protocol. The hook sequences are
// fixed when the Runner is created and only read afterwards, so one Runner is
// shared by every worker of a run.
type Runner struct {
	pre  []hooks.Entry[hooks.PreHook]
	post []hooks.Entry[hooks.PostHook]
	sink observe.Sink
}

// NewRunner snapshots the hooks currently in reg.
func NewRunner(reg *hooks.Registry, sink observe.Sink) *Runner {
	if sink == nil {
		sink = observe.Nop{}
	}
	return &Runner{
		pre:  reg.PreHooks(),
		post: reg.PostHooks(),
		sink: sink,
	}
}

// Run executes the node described by spec with the resolved inputs and returns
// its result. It never panics and never returns an error: every failure is
// part of the returned result.
func (r *Runner) Run(ctx context.Context, spec *node.Spec, inputs node.Inputs) node.Result {
	logger := ctxlog.FromContext(ctx)
	id := spec.ID

	var (
		result  node.Result
		skipped bool
	)

preHooks:
	for _, e := range r.pre {
		d := r.invokePre(ctx, e, spec, inputs.Copy())
		switch d.Action {
		case hooks.ActionProceed:
		case hooks.ActionSkip:
			logger.Debug("Pre-execution hook skipped node computation.", "hook", e.Name)
			result = d.Result.Copy()
			skipped = true
			break preHooks
		case hooks.ActionFail:
			logger.Debug("Pre-execution hook failed node.", "hook", e.Name, "reason", d.Reason)
			return node.Failed(&node.Failure{Kind: node.FailurePreHook, Hook: e.Name, Message: d.Reason})
		default:
			return node.Failed(&node.Failure{
				Kind:    node.FailurePreHook,
				Hook:    e.Name,
				Message: fmt.Sprintf("unknown decision %s", d.Action),
			})
		}
	}

	if !skipped {
		logger.Debug("Executing node computation.")
		result = compute(ctx, spec, inputs.Copy())
		logger.Debug("Node computation finished.", "success", result.Success, "latency", result.Latency)
	}

	// Post-hooks run to completion even when the run is being canceled.
	postCtx := context.WithoutCancel(ctx)
	for _, e := range r.post {
		if err := r.invokePost(postCtx, e, spec, inputs.Copy(), result.Copy()); err != nil {
			r.sink.PostHookFailed(postCtx, id, e.Name, err)
		}
	}

	return result
}

func (r *Runner) invokePre(ctx context.Context, e hooks.Entry[hooks.PreHook], spec *node.Spec, inputs node.Inputs) (d hooks.Decision) {
	defer func() {
		if p := recover(); p != nil {
			d = hooks.Failf("panic: %v", p)
		}
	}()
	return e.Hook.BeforeNode(ctx, spec.ID, spec, inputs)
}

func (r *Runner) invokePost(ctx context.Context, e hooks.Entry[hooks.PostHook], spec *node.Spec, inputs node.Inputs, result node.Result) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return e.Hook.AfterNode(ctx, spec.ID, spec, inputs, result)
}

// compute runs the node's computation and converts errors and panics into a
// failed result.
func compute(ctx context.Context, spec *node.Spec, inputs node.Inputs) (res node.Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = node.Failed(&node.Failure{Kind: node.FailurePanic, Message: fmt.Sprint(p)})
			res.Latency = time.Since(start)
		}
	}()

	out, err := spec.Compute.Compute(ctx, inputs)
	latency := time.Since(start)
	if err != nil {
		kind := node.FailureCompute
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			kind = node.FailureCanceled
		}
		res = node.Failed(&node.Failure{Kind: kind, Message: err.Error(), Err: err})
		res.Latency = latency
		return res
	}

	return node.Result{
		Success:    true,
		Output:     out.Value,
		TokensUsed: out.TokensUsed,
		Latency:    latency,
	}
}
