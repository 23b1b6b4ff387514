package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/dag"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/nodestore"
	"github.com/vk/hookgrid/internal/observe"
)

// tracker is the scheduling state of one node within a run.
type tracker struct {
	pending atomic.Int32
	settled atomic.Bool
}

// Run is one execution of a graph.
type Run struct {
	id        string
	startedAt time.Time

	graph   *dag.Graph
	specs   map[string]*node.Spec
	store   nodestore.Store
	runner  *Runner
	sink    observe.Sink
	policy  DependencyPolicy
	workers int

	trackers map[string]*tracker
	ready    chan string
	wg       sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
	state  *node.ExecutionState
	err    error
}

func newRun(id string, graph *dag.Graph, specs []node.Spec, e *Executor, cancel context.CancelFunc) *Run {
	r := &Run{
		id:        id,
		startedAt: time.Now(),
		graph:     graph,
		specs:     make(map[string]*node.Spec, len(specs)),
		store:     e.newStore(),
		runner:    NewRunner(e.hooks, e.sink),
		sink:      e.sink,
		policy:    e.policy,
		workers:   min(e.maxConcurrency, graph.Len()),
		trackers:  make(map[string]*tracker, len(specs)),
		ready:     make(chan string, graph.Len()),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	for i := range specs {
		spec := specs[i]
		r.specs[spec.ID] = &spec
		deps, _ := graph.Dependencies(spec.ID)
		t := &tracker{}
		t.pending.Store(int32(len(deps)))
		r.trackers[spec.ID] = t
	}
	return r
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// StartedAt returns the time the run was started.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// Snapshot returns a read-only copy of the current execution state.
func (r *Run) Snapshot() *node.ExecutionState {
	return r.store.Snapshot(context.Background())
}

// Cancel stops dispatching new nodes. Running nodes see a canceled context and
// finish their post-hooks.
func (r *Run) Cancel() { r.cancel() }

// Done is closed when the run has finished.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run has finished and returns its final state.
func (r *Run) Wait() (*node.ExecutionState, error) {
	<-r.done
	return r.state, r.err
}

// execute drives the run to completion. Every node is settled exactly once,
// either by a worker or by failure propagation. The caller closes done.
func (r *Run) execute(ctx context.Context) {
	defer r.cancel()

	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting graph execution.", "nodes", r.graph.Len(), "workers", r.workers, "policy", r.policy.String())

	r.wg.Add(r.graph.Len())
	for i := 0; i < r.workers; i++ {
		go r.worker(ctx, i+1)
	}
	for _, id := range r.graph.Roots() {
		r.ready <- id
	}

	logger.Debug("Waiting for all nodes to complete...")
	r.wg.Wait()
	close(r.ready)

	r.state = r.store.Snapshot(context.WithoutCancel(ctx))
	r.err = summarize(r.state, ctx.Err())
	if r.err != nil {
		logger.Warn("Graph execution finished with failures.", "error", r.err)
		return
	}
	logger.Info("Graph execution finished.", "duration", time.Since(r.startedAt))
}

func (r *Run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)
	logger.Debug("Worker started.")

	for id := range r.ready {
		wlog := logger.With("nodeID", id)

		if err := ctx.Err(); err != nil {
			wlog.Debug("Context canceled, skipping node execution.")
			r.settle(ctx, id, node.Failed(&node.Failure{Kind: node.FailureCanceled, Message: err.Error(), Err: err}))
			continue
		}

		if err := r.store.MarkInFlight(ctx, id); err != nil {
			wlog.Warn("Failed to mark node in flight.", "error", err)
		}

		wlog.Debug("Worker picked up node.")
		nodeCtx := ctxlog.WithLogger(ctx, wlog)
		res := r.runner.Run(nodeCtx, r.specs[id], r.inputs(ctx, id))
		r.settle(ctx, id, res)
	}

	logger.Debug("Worker finished.")
}

// inputs resolves the recorded results of id's dependencies.
func (r *Run) inputs(ctx context.Context, id string) node.Inputs {
	spec := r.specs[id]
	in := make(node.Inputs, len(spec.DependsOn))
	for _, dep := range spec.DependsOn {
		if res, ok := r.store.Get(ctx, dep); ok {
			in[dep] = res
		}
	}
	return in
}

// settle records the result of id and unlocks or fails its dependents.
func (r *Run) settle(ctx context.Context, id string, res node.Result) {
	if !r.trackers[id].settled.CompareAndSwap(false, true) {
		return
	}

	logger := ctxlog.FromContext(ctx)
	if err := r.store.Record(ctx, id, res); err != nil {
		logger.Error("Failed to record node result.", "nodeID", id, "error", err)
	}
	if !res.Success {
		r.sink.NodeFailed(ctx, id, res)
	}

	dependents, _ := r.graph.Dependents(id)
	for _, dep := range dependents {
		if res.Success || r.policy == PolicyContinue {
			if r.trackers[dep].pending.Add(-1) == 0 {
				r.ready <- dep
			}
			continue
		}
		r.settle(ctx, dep, propagate(id, res))
	}

	r.wg.Done()
}

// propagate builds the result of a node that is not run because upstream
// failed. The root cause message is carried along the chain.
func propagate(upstream string, res node.Result) node.Result {
	f := &node.Failure{Kind: node.FailureUpstream, Upstream: upstream, Message: res.Description()}
	if res.Failure != nil {
		f.Err = res.Failure
		switch res.Failure.Kind {
		case node.FailureUpstream:
			f.Message = res.Failure.Message
		case node.FailureCanceled:
			f.Kind = node.FailureCanceled
			f.Message = res.Failure.Message
		}
	}
	return node.Failed(f)
}

// summarize turns the final state into a RunError, or nil when every node
// succeeded. A cancellation that came too late to affect any node is not
// reported.
func summarize(state *node.ExecutionState, cause error) error {
	runErr := &RunError{Failed: make(map[string]string)}
	for _, id := range state.Failed() {
		res := state.Results[id]
		switch {
		case res.Failure != nil && res.Failure.Kind == node.FailureUpstream:
			runErr.Propagated = append(runErr.Propagated, id)
		case res.Failure != nil && res.Failure.Kind == node.FailureCanceled:
			runErr.Canceled = append(runErr.Canceled, id)
		default:
			runErr.Failed[id] = res.Description()
		}
	}
	if len(runErr.Failed)+len(runErr.Propagated)+len(runErr.Canceled) == 0 {
		return nil
	}
	runErr.Cause = cause
	return runErr
}
