// Package observe is the side channel the engine reports to. It never takes
// part in execution: nothing a sink does can change a node's result.
package observe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/node"
)

// Sink receives failure reports from the executor.
type Sink interface {
	// NodeFailed is called once for every node whose recorded result is a
	// failure, including propagated failures.
	NodeFailed(ctx context.Context, id string, result node.Result)
	// PostHookFailed is called when a post-execution hook returned an error or
	// panicked. The error has already been isolated.
	PostHookFailed(ctx context.Context, id string, hook string, err error)
}

// Nop discards every report.
type Nop struct{}

func (Nop) NodeFailed(context.Context, string, node.Result)       {}
func (Nop) PostHookFailed(context.Context, string, string, error) {}

// Slog writes reports to the logger carried by the context, falling back to
// the logger it was built with.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates a slog-backed sink. A nil logger means "use the context's".
func NewSlog(logger *slog.Logger) *Slog {
	return &Slog{logger: logger}
}

func (s *Slog) log(ctx context.Context) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return ctxlog.FromContext(ctx)
}

// NodeFailed logs propagated failures at debug and real failures at warn.
func (s *Slog) NodeFailed(ctx context.Context, id string, result node.Result) {
	level := slog.LevelWarn
	if result.Propagated() {
		level = slog.LevelDebug
	}
	attrs := []slog.Attr{slog.String("nodeID", id), slog.String("error", result.Description())}
	if result.Failure != nil {
		attrs = append(attrs, slog.String("kind", result.Failure.Kind.String()))
	}
	s.log(ctx).LogAttrs(ctx, level, "Node failed.", attrs...)
}

// PostHookFailed logs at error level.
func (s *Slog) PostHookFailed(ctx context.Context, id string, hook string, err error) {
	s.log(ctx).LogAttrs(ctx, slog.LevelError, "Post-execution hook failed.",
		slog.String("nodeID", id),
		slog.String("hook", hook),
		slog.Any("error", err),
	)
}

// Tally counts reports. It is safe for concurrent use.
type Tally struct {
	mu               sync.Mutex
	failuresByKind   map[string]int
	postHookFailures map[string]int
}

// NewTally returns an empty counter set.
func NewTally() *Tally {
	return &Tally{
		failuresByKind:   make(map[string]int),
		postHookFailures: make(map[string]int),
	}
}

// NodeFailed counts the failure under its kind.
func (t *Tally) NodeFailed(_ context.Context, _ string, result node.Result) {
	kind := "unknown"
	if result.Failure != nil {
		kind = result.Failure.Kind.String()
	}
	t.mu.Lock()
	t.failuresByKind[kind]++
	t.mu.Unlock()
}

// PostHookFailed counts the failure under the hook's name.
func (t *Tally) PostHookFailed(_ context.Context, _ string, hook string, _ error) {
	t.mu.Lock()
	t.postHookFailures[hook]++
	t.mu.Unlock()
}

// Counts is a copy of a Tally's counters.
type Counts struct {
	NodeFailures     map[string]int `json:"node_failures"`
	PostHookFailures map[string]int `json:"post_hook_failures"`
}

// Counts returns a copy of the counters.
func (t *Tally) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := Counts{
		NodeFailures:     make(map[string]int, len(t.failuresByKind)),
		PostHookFailures: make(map[string]int, len(t.postHookFailures)),
	}
	for k, v := range t.failuresByKind {
		c.NodeFailures[k] = v
	}
	for k, v := range t.postHookFailures {
		c.PostHookFailures[k] = v
	}
	return c
}

// Multi fans reports out to several sinks in order.
type Multi []Sink

func (m Multi) NodeFailed(ctx context.Context, id string, result node.Result) {
	for _, s := range m {
		s.NodeFailed(ctx, id, result)
	}
}

func (m Multi) PostHookFailed(ctx context.Context, id string, hook string, err error) {
	for _, s := range m {
		s.PostHookFailed(ctx, id, hook, err)
	}
}
