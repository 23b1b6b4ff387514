package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/hookgrid/internal/ctxlog"
)

// Module is the interface that all modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered runners of a single application instance.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]*RegisteredRunner
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{runners: make(map[string]*RegisteredRunner)}
}

// Load registers every module.
func (r *Registry) Load(ctx context.Context, modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
	ctxlog.FromContext(ctx).Debug("Modules registered.", "modules", len(modules), "types", r.Types())
}

// RegisterRunner registers the handler for a node type. Registering the same
// type twice is a programming error and panics.
func (r *Registry) RegisterRunner(nodeType string, runner *RegisteredRunner) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[nodeType]; exists {
		panic(fmt.Sprintf("runner for node type '%s' already registered", nodeType))
	}
	r.runners[nodeType] = runner
}

// Runner returns the handler registered for a node type.
func (r *Registry) Runner(nodeType string) (*RegisteredRunner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rn, ok := r.runners[nodeType]
	return rn, ok
}

// Types returns the sorted list of registered node types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.runners))
	for t := range r.runners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
