// Package socketio provides the "socketio" node type: connect to a Socket.IO
// server, optionally emit an event, and wait for a response event.
package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/registry"
	sio "github.com/vk/hookgrid/internal/socketio"
)

// DefaultTimeout bounds the wait for the response event.
const DefaultTimeout = 10 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	// Dial opens connections. Defaults to socketio.Dial.
	Dial sio.DialFunc
}

// Input defines the arguments for the socketio runner.
type Input struct {
	URL                string `arg:"url"`
	Namespace          string `arg:"namespace,optional"`
	OnEvent            string `arg:"on_event"`
	EmitEvent          string `arg:"emit_event,optional"`
	EmitData           any    `arg:"emit_data,optional"`
	Timeout            string `arg:"timeout,optional"`
	InsecureSkipVerify bool   `arg:"insecure_skip_verify,optional"`
}

type opResult struct {
	value map[string]any
	err   error
}

// Run returns the handler bound to dial.
func Run(dial sio.DialFunc) func(ctx context.Context, input *Input) (map[string]any, error) {
	return func(ctx context.Context, input *Input) (map[string]any, error) {
		logger := ctxlog.FromContext(ctx).With("runner", "socketio", "url", input.URL, "onEvent", input.OnEvent, "emitEvent", input.EmitEvent)

		timeout := DefaultTimeout
		if input.Timeout != "" {
			d, err := time.ParseDuration(input.Timeout)
			if err != nil {
				return nil, fmt.Errorf("failed to parse timeout: %w", err)
			}
			timeout = d
		}

		opCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		conn, err := dial(opCtx, input.URL, sio.Options{
			Namespace:          input.Namespace,
			InsecureSkipVerify: input.InsecureSkipVerify,
			ConnectTimeout:     timeout,
		})
		if err != nil {
			return nil, err
		}
		defer func() {
			logger.Debug("Disconnecting socket client.")
			conn.Close()
		}()

		done := make(chan opResult, 1)
		conn.Once(input.OnEvent, func(data ...any) {
			logger.Debug("Response event received.")
			var responseData any
			if len(data) > 0 {
				responseData = data[0]
			}
			select {
			case done <- opResult{value: map[string]any{"response_data": responseData, "sid": conn.ID()}}:
			default:
			}
		})

		if input.EmitEvent != "" {
			jsonData, _ := json.Marshal(input.EmitData)
			logger.Info("Emitting event.", "data", string(jsonData))
			if err := conn.Emit(input.EmitEvent, input.EmitData); err != nil {
				return nil, fmt.Errorf("failed to emit '%s': %w", input.EmitEvent, err)
			}
		}

		select {
		case <-opCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("timed out after %v waiting for event '%s'", timeout, input.OnEvent)
		case res := <-done:
			logger.Info("Successfully received response event.")
			return res.value, res.err
		}
	}
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	dial := m.Dial
	if dial == nil {
		dial = sio.Dial
	}
	r.RegisterRunner("socketio", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       Run(dial),
	})
}
