// Package http_request provides the "http_request" node type.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/registry"
)

const (
	// DefaultTimeout bounds a request when the node sets no timeout.
	DefaultTimeout = 30 * time.Second
	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 10 * 1024 * 1024
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by all requests. Defaults to a pooled client.
	Client *http.Client
}

// Input defines the arguments for the http_request runner.
type Input struct {
	URL      string            `arg:"url"`
	Method   string            `arg:"method,optional"`
	Headers  map[string]string `arg:"headers,optional"`
	Body     string            `arg:"body,optional"`
	Timeout  string            `arg:"timeout,optional"`
	Markdown bool              `arg:"markdown,optional"`
	// FailOnStatus turns non-2xx responses into node failures.
	FailOnStatus bool `arg:"fail_on_status,optional"`
}

// Output defines the data structure returned by the runner.
type Output struct {
	StatusCode int    `cty:"status_code"`
	Body       string `cty:"body"`
	Markdown   string `cty:"markdown"`
}

// NewClient returns the pooled client used when Module.Client is nil.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Run returns the handler bound to client.
func Run(client *http.Client) func(ctx context.Context, input *Input) (*Output, error) {
	return func(ctx context.Context, input *Input) (*Output, error) {
		method := strings.ToUpper(input.Method)
		if method == "" {
			method = http.MethodGet
		}
		timeout := DefaultTimeout
		if input.Timeout != "" {
			d, err := time.ParseDuration(input.Timeout)
			if err != nil {
				return nil, fmt.Errorf("failed to parse timeout: %w", err)
			}
			timeout = d
		}

		logger := ctxlog.FromContext(ctx).With("method", method, "url", input.URL)
		logger.Info("Making HTTP request.")

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var body io.Reader
		if input.Body != "" {
			body = strings.NewReader(input.Body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, input.URL, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, v := range input.Headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		logger.Info("Received HTTP response.", "status", resp.Status)

		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		if len(bodyBytes) > MaxBodySize {
			return nil, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
		}

		if input.FailOnStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
			return nil, fmt.Errorf("unexpected status code: %s", resp.Status)
		}

		out := &Output{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		if input.Markdown {
			md, err := htmltomarkdown.ConvertString(out.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
			}
			out.Markdown = md
		}
		return out, nil
	}
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = NewClient()
	}
	r.RegisterRunner("http_request", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       Run(client),
	})
}
