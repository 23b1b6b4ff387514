package executor

import (
	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/nodestore"
	"github.com/vk/hookgrid/internal/observe"
)

// DefaultMaxConcurrency is the worker pool size used when none is configured.
const DefaultMaxConcurrency = 10

// DependencyPolicy decides what happens to a node whose dependency failed.
type DependencyPolicy int

const (
	// PolicyBlock records the dependent as failed-by-propagation without
	// running it. This is the default.
	PolicyBlock DependencyPolicy = iota
	// PolicyContinue runs the dependent once all dependencies have a result;
	// its computation inspects the inputs' Success flags itself.
	PolicyContinue
)

func (p DependencyPolicy) String() string {
	switch p {
	case PolicyBlock:
		return "block"
	case PolicyContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// ParsePolicy converts "block" or "continue" into a DependencyPolicy. An empty
// string selects PolicyBlock.
func ParsePolicy(s string) (DependencyPolicy, error) {
	switch s {
	case "", "block":
		return PolicyBlock, nil
	case "continue":
		return PolicyContinue, nil
	default:
		return PolicyBlock, errors.Errorf("unknown dependency policy %q: must be 'block' or 'continue'", s)
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxConcurrency bounds the number of nodes running at once. Values below
// one select DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithDependencyPolicy sets the failed-dependency policy.
func WithDependencyPolicy(p DependencyPolicy) Option {
	return func(e *Executor) {
		e.policy = p
	}
}

// WithSink sets the observability sink. The default logs through slog.
func WithSink(s observe.Sink) Option {
	return func(e *Executor) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithStoreFactory replaces the per-run result store.
func WithStoreFactory(f func() nodestore.Store) Option {
	return func(e *Executor) {
		if f != nil {
			e.newStore = f
		}
	}
}

// WithHooks shares an existing hook registry with the executor.
func WithHooks(r *hooks.Registry) Option {
	return func(e *Executor) {
		if r != nil {
			e.hooks = r
		}
	}
}
