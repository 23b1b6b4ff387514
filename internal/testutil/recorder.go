package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
)

// Recorder collects the order in which hooks and computations are invoked
// across goroutines. Events have the form "<label>:<nodeID>".
type Recorder struct {
	mu     sync.Mutex
	events []string
	seen   map[string][]node.Result
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{seen: make(map[string][]node.Result)}
}

// Add appends one event.
func (r *Recorder) Add(label, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("%s:%s", label, id))
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// EventsFor returns the events recorded for one node, in order.
func (r *Recorder) EventsFor(id string) []string {
	suffix := ":" + id
	var out []string
	for _, e := range r.Events() {
		if len(e) > len(suffix) && e[len(e)-len(suffix):] == suffix {
			out = append(out, e[:len(e)-len(suffix)])
		}
	}
	return out
}

// Seen returns the results post-hooks created by this recorder received for id.
func (r *Recorder) Seen(id string) []node.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]node.Result(nil), r.seen[id]...)
}

// Pre returns a named pre-execution hook that records "<name>:<id>" and then
// returns the decision produced by decide. A nil decide always proceeds.
func (r *Recorder) Pre(name string, decide func(id string) hooks.Decision) hooks.PreHook {
	return hooks.NamedPre(name, hooks.PreHookFunc(func(_ context.Context, id string, _ *node.Spec, _ node.Inputs) hooks.Decision {
		r.Add(name, id)
		if decide == nil {
			return hooks.Proceed()
		}
		return decide(id)
	}))
}

// Post returns a named post-execution hook that records "<name>:<id>", keeps
// the result it received and returns err.
func (r *Recorder) Post(name string, err error) hooks.PostHook {
	return hooks.NamedPost(name, hooks.PostHookFunc(func(_ context.Context, id string, _ *node.Spec, _ node.Inputs, res node.Result) error {
		r.Add(name, id)
		r.mu.Lock()
		r.seen[id] = append(r.seen[id], res)
		r.mu.Unlock()
		return err
	}))
}

// Compute returns a computation that records "compute:<id>" and returns value.
func (r *Recorder) Compute(id string, value any) node.Computation {
	return node.Func(func(context.Context, node.Inputs) (any, error) {
		r.Add("compute", id)
		return value, nil
	})
}
