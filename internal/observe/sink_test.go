package observe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/node"
)

func TestSlog(t *testing.T) {
	t.Run("uses its own logger", func(t *testing.T) {
		var buf bytes.Buffer
		s := NewSlog(slog.New(slog.NewTextHandler(&buf, nil)))

		s.NodeFailed(context.Background(), "A", node.Failed(&node.Failure{Kind: node.FailureCompute, Message: "boom"}))
		s.PostHookFailed(context.Background(), "A", "metrics", errors.New("sink down"))

		out := buf.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, `msg="Node failed."`)
		assert.Contains(t, out, "kind=compute")
		assert.Contains(t, out, "level=ERROR")
		assert.Contains(t, out, "hook=metrics")
		assert.Contains(t, out, `error="sink down"`)
	})

	t.Run("propagated failures are debug", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
		NewSlog(nil).NodeFailed(ctx, "B", node.Failed(&node.Failure{Kind: node.FailureUpstream, Upstream: "A"}))
		assert.Empty(t, buf.String())
	})
}

func TestTallyAndMulti(t *testing.T) {
	tally := NewTally()
	sink := Multi{Nop{}, tally}
	ctx := context.Background()

	sink.NodeFailed(ctx, "A", node.Failed(&node.Failure{Kind: node.FailureCompute}))
	sink.NodeFailed(ctx, "B", node.Failed(&node.Failure{Kind: node.FailureUpstream}))
	sink.NodeFailed(ctx, "C", node.Failed(&node.Failure{Kind: node.FailureUpstream}))
	sink.NodeFailed(ctx, "D", node.Result{})
	sink.PostHookFailed(ctx, "A", "audit", errors.New("x"))

	c := tally.Counts()
	assert.Equal(t, map[string]int{"compute": 1, "upstream": 2, "unknown": 1}, c.NodeFailures)
	assert.Equal(t, map[string]int{"audit": 1}, c.PostHookFailures)

	c.NodeFailures["compute"] = 100
	assert.Equal(t, 1, tally.Counts().NodeFailures["compute"])
}
