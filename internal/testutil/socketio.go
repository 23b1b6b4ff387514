package testutil

import (
	"context"
	"sync"

	"github.com/vk/hookgrid/internal/socketio"
)

// Emitted is one event sent through a FakeConn.
type Emitted struct {
	Event string
	Args  []any
}

// FakeConn is an in-memory socketio.Conn. Emitting an event listed in
// Replies fires the Once handler of the mapped response event with the
// emitted arguments.
type FakeConn struct {
	Replies map[string]string
	// EmitErr is returned by every Emit when set.
	EmitErr error

	mu       sync.Mutex
	emitted  []Emitted
	handlers map[string]func(args ...any)
	closed   bool
}

// NewFakeConn returns a FakeConn answering each request event in replies
// with its mapped response event.
func NewFakeConn(replies map[string]string) *FakeConn {
	return &FakeConn{Replies: replies, handlers: make(map[string]func(args ...any))}
}

// ID implements socketio.Conn.
func (c *FakeConn) ID() string { return "fake-sid" }

// Emit implements socketio.Conn.
func (c *FakeConn) Emit(event string, args ...any) error {
	c.mu.Lock()
	if c.EmitErr != nil {
		c.mu.Unlock()
		return c.EmitErr
	}
	c.emitted = append(c.emitted, Emitted{Event: event, Args: args})
	var fn func(args ...any)
	if reply, ok := c.Replies[event]; ok {
		fn = c.handlers[reply]
		delete(c.handlers, reply)
	}
	c.mu.Unlock()

	if fn != nil {
		go fn(args...)
	}
	return nil
}

// Once implements socketio.Conn.
func (c *FakeConn) Once(event string, fn func(args ...any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
}

// Close implements socketio.Conn.
func (c *FakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Emitted returns a copy of the events sent so far.
func (c *FakeConn) Emitted() []Emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Emitted, len(c.emitted))
	copy(out, c.emitted)
	return out
}

// Dialer returns a socketio.DialFunc that always hands out c and records the
// URL and options it was called with.
func (c *FakeConn) Dialer(calls *[]socketio.Options) socketio.DialFunc {
	var mu sync.Mutex
	return func(_ context.Context, _ string, opts socketio.Options) (socketio.Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		if calls != nil {
			*calls = append(*calls, opts)
		}
		return c, nil
	}
}
