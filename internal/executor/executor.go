package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/dag"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/inmemorystore"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/nodestore"
	"github.com/vk/hookgrid/internal/observe"
)

// Executor runs graphs of node specs. Hooks registered on an Executor apply to
// every run started after the registration.
type Executor struct {
	hooks          *hooks.Registry
	maxConcurrency int
	policy         DependencyPolicy
	sink           observe.Sink
	newStore       func() nodestore.Store

	mu     sync.Mutex
	active map[string]*Run
}

// New creates an executor with the default configuration: an empty hook
// registry, DefaultMaxConcurrency workers, PolicyBlock, a slog sink and the
// in-memory result store.
func New(opts ...Option) *Executor {
	e := &Executor{
		hooks:          hooks.NewRegistry(),
		maxConcurrency: DefaultMaxConcurrency,
		policy:         PolicyBlock,
		sink:           observe.NewSlog(nil),
		newStore:       inmemorystore.New,
		active:         make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddPreExecutionHook registers a pre-execution hook.
func (e *Executor) AddPreExecutionHook(h hooks.PreHook) hooks.Entry[hooks.PreHook] {
	return e.hooks.AddPreExecutionHook(h)
}

// AddPostExecutionHook registers a post-execution hook.
func (e *Executor) AddPostExecutionHook(h hooks.PostHook) hooks.Entry[hooks.PostHook] {
	return e.hooks.AddPostExecutionHook(h)
}

// ClearHooks removes the selected hook sequences.
func (e *Executor) ClearHooks(pre, post bool) {
	e.hooks.Clear(pre, post)
}

// Hooks returns the executor's hook registry.
func (e *Executor) Hooks() *hooks.Registry {
	return e.hooks
}

// MaxConcurrency returns the configured worker pool size.
func (e *Executor) MaxConcurrency() int {
	return e.maxConcurrency
}

// Policy returns the configured dependency policy.
func (e *Executor) Policy() DependencyPolicy {
	return e.policy
}

// Run validates the graph, executes every node and returns the final state.
//
// A *GraphValidationError is returned, with a nil state, when the graph is
// invalid; no node runs in that case. When some nodes failed or the run was
// canceled, the full state is returned together with a *RunError.
func (e *Executor) Run(ctx context.Context, specs []node.Spec) (*node.ExecutionState, error) {
	run, err := e.Start(ctx, specs)
	if err != nil {
		return nil, err
	}
	return run.Wait()
}

// Start validates the graph and begins executing it in the background.
func (e *Executor) Start(ctx context.Context, specs []node.Spec) (*Run, error) {
	graph, err := dag.Build(specs)
	if err != nil {
		return nil, &GraphValidationError{Err: err}
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(WithRunID(ctx, id))
	runCtx = ctxlog.With(runCtx, "runID", id)

	run := newRun(id, graph, specs, e, cancel)

	e.mu.Lock()
	e.active[id] = run
	e.mu.Unlock()

	go func() {
		run.execute(runCtx)

		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
		close(run.done)
	}()

	return run, nil
}

// RunInfo is a point-in-time view of an in-flight run.
type RunInfo struct {
	ID        string               `json:"id"`
	StartedAt time.Time            `json:"started_at"`
	State     *node.ExecutionState `json:"state"`
}

// Active returns snapshots of every run that has not finished yet, ordered by
// start time.
func (e *Executor) Active() []RunInfo {
	e.mu.Lock()
	runs := make([]*Run, 0, len(e.active))
	for _, r := range e.active {
		runs = append(runs, r)
	}
	e.mu.Unlock()

	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		infos = append(infos, RunInfo{ID: r.id, StartedAt: r.startedAt, State: r.Snapshot()})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

type runIDKey struct{}

// WithRunID stores a run ID in the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the ID of the run executing the current node.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
