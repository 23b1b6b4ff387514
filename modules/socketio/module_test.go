package socketio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sio "github.com/vk/hookgrid/internal/socketio"
	"github.com/vk/hookgrid/internal/testutil"
)

func TestRun(t *testing.T) {
	t.Run("emits and returns the response", func(t *testing.T) {
		conn := testutil.NewFakeConn(map[string]string{"ping": "pong"})
		var calls []sio.Options
		run := Run(conn.Dialer(&calls))

		out, err := run(context.Background(), &Input{
			URL:       "http://localhost:3000",
			Namespace: "/jobs",
			EmitEvent: "ping",
			EmitData:  map[string]any{"n": int64(1)},
			OnEvent:   "pong",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": int64(1)}, out["response_data"])
		assert.Equal(t, "fake-sid", out["sid"])
		assert.True(t, conn.Closed())

		require.Len(t, calls, 1)
		assert.Equal(t, "/jobs", calls[0].Namespace)
		assert.Equal(t, DefaultTimeout, calls[0].ConnectTimeout)
	})

	t.Run("times out waiting for the event", func(t *testing.T) {
		conn := testutil.NewFakeConn(nil)
		_, err := Run(conn.Dialer(nil))(context.Background(), &Input{
			URL:       "http://localhost:3000",
			EmitEvent: "ping",
			OnEvent:   "pong",
			Timeout:   "20ms",
		})
		assert.ErrorContains(t, err, "timed out after 20ms waiting for event 'pong'")
		require.Len(t, conn.Emitted(), 1)
	})

	t.Run("reports cancellation of the run", func(t *testing.T) {
		conn := testutil.NewFakeConn(nil)
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)
		_, err := Run(conn.Dialer(nil))(ctx, &Input{URL: "http://localhost:3000", OnEvent: "pong", Timeout: "5s"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("dial failure", func(t *testing.T) {
		dial := func(context.Context, string, sio.Options) (sio.Conn, error) {
			return nil, errors.New("refused")
		}
		_, err := Run(dial)(context.Background(), &Input{URL: "http://localhost:3000", OnEvent: "pong"})
		assert.EqualError(t, err, "refused")
	})

	t.Run("invalid timeout", func(t *testing.T) {
		_, err := Run(testutil.NewFakeConn(nil).Dialer(nil))(context.Background(), &Input{OnEvent: "x", Timeout: "later"})
		assert.ErrorContains(t, err, "failed to parse timeout")
	})
}

func TestRun_EmitError(t *testing.T) {
	conn := testutil.NewFakeConn(nil)
	conn.EmitErr = errors.New("socket closed")
	_, err := Run(conn.Dialer(nil))(context.Background(), &Input{URL: "http://localhost:3000", EmitEvent: "ping", OnEvent: "pong"})
	assert.EqualError(t, err, "failed to emit 'ping': socket closed")
	assert.True(t, conn.Closed())
}
