// Package eventstream publishes node lifecycle events to a Socket.IO server.
//
// The pre-execution hook emits node_started and always proceeds; the
// post-execution hook emits node_finished with the node's result. Emit
// failures of the post-hook are reported through the executor's sink.
package eventstream

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/executor"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/socketio"
)

// HookName is the name under which the publisher hooks are registered.
const HookName = "eventstream"

// Event names.
const (
	EventNodeStarted  = "node_started"
	EventNodeFinished = "node_finished"
)

// Started is the payload of EventNodeStarted.
type Started struct {
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Type      string    `json:"type"`
	Upstream  []string  `json:"upstream"`
	StartedAt time.Time `json:"started_at"`
}

// Finished is the payload of EventNodeFinished.
type Finished struct {
	RunID      string `json:"run_id"`
	NodeID     string `json:"node_id"`
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	LatencyMS  int64  `json:"latency_ms"`
	TokensUsed int64  `json:"tokens_used"`
	Kind       string `json:"failure_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Publisher is both a pre- and a post-execution hook.
type Publisher struct {
	conn socketio.Conn
	now  func() time.Time
}

// New returns a Publisher writing to conn.
func New(conn socketio.Conn) *Publisher {
	return &Publisher{conn: conn, now: time.Now}
}

// HookName implements hooks.Named.
func (p *Publisher) HookName() string { return HookName }

// BeforeNode emits EventNodeStarted. A failed emit is logged; it never
// affects the node.
func (p *Publisher) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) hooks.Decision {
	ev := Started{
		RunID:     executor.RunIDFromContext(ctx),
		NodeID:    id,
		Type:      spec.Kind(),
		Upstream:  inputs.IDs(),
		StartedAt: p.now().UTC(),
	}
	if err := p.conn.Emit(EventNodeStarted, ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish event.", "event", EventNodeStarted, "error", err)
	}
	return hooks.Proceed()
}

// AfterNode emits EventNodeFinished.
func (p *Publisher) AfterNode(ctx context.Context, id string, spec *node.Spec, _ node.Inputs, result node.Result) error {
	ev := Finished{
		RunID:      executor.RunIDFromContext(ctx),
		NodeID:     id,
		Type:       spec.Kind(),
		Success:    result.Success,
		LatencyMS:  result.Latency.Milliseconds(),
		TokensUsed: result.TokensUsed,
	}
	if result.Failure != nil {
		ev.Kind = result.Failure.Kind.String()
		ev.Error = result.Failure.Error()
	}
	if err := p.conn.Emit(EventNodeFinished, ev); err != nil {
		return errors.Wrapf(err, "publish %s", EventNodeFinished)
	}
	return nil
}

// Close disconnects the underlying connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
