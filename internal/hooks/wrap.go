package hooks

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/node"
)

// ErrRetryExhausted is wrapped by post-hook errors returned after the last
// retry attempt failed.
var ErrRetryExhausted = errors.New("hook retries exhausted")

// RetryConfig tunes RetryPre and RetryPost. Zero values are replaced with the
// defaults documented on each field.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first failure. Default: 3.
	MaxRetries int
	// InitialBackoff is the wait before the first retry. Default: 100ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the computed backoff. Default: 5s.
	MaxBackoff time.Duration
	// BackoffFactor is the exponential growth multiplier. Default: 2.0.
	BackoffFactor float64
	// JitterFraction adds up to this fraction of the backoff as noise. Default: 0.1.
	JitterFraction float64
	// RetryableFunc reports whether a failure should be retried. The default
	// retries everything except context cancellation and deadline errors.
	RetryableFunc func(error) bool
}

func defaultRetryable(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func applyRetryDefaults(cfg *RetryConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BackoffFactor == 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.JitterFraction == 0 {
		cfg.JitterFraction = 0.1
	}
	if cfg.RetryableFunc == nil {
		cfg.RetryableFunc = defaultRetryable
	}
}

// backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter
func computeBackoff(cfg RetryConfig, attempt int) time.Duration {
	base := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt))
	if base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}
	jitter := base * cfg.JitterFraction * rand.Float64() //nolint:gosec
	return time.Duration(base + jitter)
}

// wait sleeps for the backoff of the given attempt or until ctx is done.
func wait(ctx context.Context, cfg RetryConfig, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(computeBackoff(cfg, attempt)):
		return nil
	}
}

type retryPre struct {
	next PreHook
	cfg  RetryConfig
}

// RetryPre retries a pre-execution hook while it returns Fail. Proceed and
// Skip decisions are returned immediately.
func RetryPre(h PreHook, cfg RetryConfig) PreHook {
	applyRetryDefaults(&cfg)
	return &retryPre{next: h, cfg: cfg}
}

func (r *retryPre) HookName() string { return nameOf(r.next, "") }

func (r *retryPre) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) Decision {
	var d Decision
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, r.cfg, attempt-1); err != nil {
				return Failf("%s (retry interrupted: %v)", d.Reason, err)
			}
		}
		d = r.next.BeforeNode(ctx, id, spec, inputs)
		if d.Action != ActionFail {
			return d
		}
		if !r.cfg.RetryableFunc(errors.New(d.Reason)) {
			return d
		}
	}
	return Failf("%s (after %d retries)", d.Reason, r.cfg.MaxRetries)
}

type retryPost struct {
	next PostHook
	cfg  RetryConfig
}

// RetryPost retries a post-execution hook while it returns a retryable error.
// The error returned after the last attempt wraps ErrRetryExhausted.
func RetryPost(h PostHook, cfg RetryConfig) PostHook {
	applyRetryDefaults(&cfg)
	return &retryPost{next: h, cfg: cfg}
}

func (r *retryPost) HookName() string { return nameOf(r.next, "") }

func (r *retryPost) AfterNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, r.cfg, attempt-1); err != nil {
				return errors.Wrap(lastErr, "retry interrupted")
			}
		}
		lastErr = r.next.AfterNode(ctx, id, spec, inputs, result)
		if lastErr == nil {
			return nil
		}
		if !r.cfg.RetryableFunc(lastErr) {
			return lastErr
		}
	}
	return errors.Wrapf(ErrRetryExhausted, "after %d retries: %v", r.cfg.MaxRetries, lastErr)
}

type timeoutPre struct {
	next    PreHook
	timeout time.Duration
}

// TimeoutPre bounds a pre-execution hook with a deadline. A hook that is still
// proceeding when the deadline passes fails the node.
func TimeoutPre(h PreHook, timeout time.Duration) PreHook {
	return &timeoutPre{next: h, timeout: timeout}
}

func (t *timeoutPre) HookName() string { return nameOf(t.next, "") }

func (t *timeoutPre) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) Decision {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	d := t.next.BeforeNode(ctx, id, spec, inputs)
	if d.Action == ActionProceed && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Failf("timed out after %s", t.timeout)
	}
	return d
}

type timeoutPost struct {
	next    PostHook
	timeout time.Duration
}

// TimeoutPost bounds a post-execution hook with a deadline. A timeout is
// reported only when the hook itself returned the deadline error; a hook that
// finished its work late still succeeds.
func TimeoutPost(h PostHook, timeout time.Duration) PostHook {
	return &timeoutPost{next: h, timeout: timeout}
}

func (t *timeoutPost) HookName() string { return nameOf(t.next, "") }

func (t *timeoutPost) AfterNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.next.AfterNode(ctx, id, spec, inputs, result)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Not wrapped, so RetryPost still treats it as retryable.
		return errors.Errorf("timed out after %s: %v", t.timeout, err)
	}
	return err
}
