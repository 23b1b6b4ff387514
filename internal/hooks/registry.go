package hooks

import (
	"fmt"
	"sync"
)

// Entry is a registered hook together with its registration sequence number.
type Entry[H any] struct {
	Seq  uint64
	Name string
	Hook H
}

// Registry keeps two ordered sequences of hooks. Registration is safe for
// concurrent use; runs take a copy of both sequences when they start, so a
// run never observes registrations made after it began.
type Registry struct {
	mu   sync.RWMutex
	seq  uint64
	pre  []Entry[PreHook]
	post []Entry[PostHook]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddPreExecutionHook appends h to the pre-execution sequence. The same hook
// may be added several times and then runs once per registration.
func (r *Registry) AddPreExecutionHook(h PreHook) Entry[PreHook] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	e := Entry[PreHook]{Seq: r.seq, Name: nameOf(h, fmt.Sprintf("pre#%d", r.seq)), Hook: h}
	r.pre = append(r.pre, e)
	return e
}

// AddPostExecutionHook appends h to the post-execution sequence.
func (r *Registry) AddPostExecutionHook(h PostHook) Entry[PostHook] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	e := Entry[PostHook]{Seq: r.seq, Name: nameOf(h, fmt.Sprintf("post#%d", r.seq)), Hook: h}
	r.post = append(r.post, e)
	return e
}

// Clear removes the selected sequences. Sequence numbers keep increasing.
func (r *Registry) Clear(pre, post bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pre {
		r.pre = nil
	}
	if post {
		r.post = nil
	}
}

// PreHooks returns a copy of the pre-execution sequence in registration order.
func (r *Registry) PreHooks() []Entry[PreHook] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry[PreHook], len(r.pre))
	copy(out, r.pre)
	return out
}

// PostHooks returns a copy of the post-execution sequence in registration order.
func (r *Registry) PostHooks() []Entry[PostHook] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry[PostHook], len(r.post))
	copy(out, r.post)
	return out
}

// Len returns the number of registered pre- and post-execution hooks.
func (r *Registry) Len() (pre, post int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pre), len(r.post)
}
