// Package socketio wraps a Socket.IO client connection behind a small
// interface shared by the socketio_request module and the eventstream plugin.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultConnectTimeout bounds the wait for the server's connect event.
const DefaultConnectTimeout = 15 * time.Second

// Conn is a connected Socket.IO client.
type Conn interface {
	ID() string
	Emit(event string, args ...any) error
	Once(event string, fn func(args ...any))
	Close()
}

// DialFunc opens a connection. It is the seam tests replace.
type DialFunc func(ctx context.Context, rawURL string, opts Options) (Conn, error)

// Options configures Dial.
type Options struct {
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

type socketConn struct {
	io *socket.Socket
}

func (c *socketConn) ID() string { return c.io.Id() }

func (c *socketConn) Emit(event string, args ...any) error {
	return c.io.Emit(event, args...)
}

func (c *socketConn) Once(event string, fn func(args ...any)) {
	c.io.Once(types.EventName(event), func(args ...any) { fn(args...) })
}

func (c *socketConn) Close() { c.io.Disconnect() }

// Dial connects to a Socket.IO server over WebSocket and waits for the
// namespace to be joined.
func Dial(ctx context.Context, rawURL string, opts Options) (Conn, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", opts.Namespace)
	logger.Debug("Creating new socket.io client...")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid socket.io URL %q: scheme and host are required", rawURL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	io.Once(types.EventName("connect"), func(...any) {
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		var err error = fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		logger.Info("Connected to socket.io server.", "sid", io.Id())
		return &socketConn{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context canceled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}
}
