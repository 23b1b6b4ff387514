package node

import (
	"fmt"
	"time"
)

// FailureKind classifies why a node did not succeed.
type FailureKind int

const (
	// FailureCompute means the node's computation returned an error.
	FailureCompute FailureKind = iota + 1
	// FailurePanic means the node's computation panicked.
	FailurePanic
	// FailurePreHook means a pre-execution hook failed the node.
	FailurePreHook
	// FailureUpstream means a dependency failed and the node never ran.
	FailureUpstream
	// FailureCanceled means the run was canceled before or while the node ran.
	FailureCanceled
)

// String returns the lowercase name of the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureCompute:
		return "compute"
	case FailurePanic:
		return "panic"
	case FailurePreHook:
		return "pre_hook"
	case FailureUpstream:
		return "upstream"
	case FailureCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Failure describes a failed result.
type Failure struct {
	Kind FailureKind
	// Message is the human-readable reason.
	Message string
	// Hook names the pre-execution hook that failed the node, if any.
	Hook string
	// Upstream names the dependency whose failure was propagated, if any.
	Upstream string
	// Err is the underlying error, when there is one.
	Err error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch f.Kind {
	case FailurePreHook:
		return fmt.Sprintf("pre-execution hook %q failed: %s", f.Hook, f.Message)
	case FailureUpstream:
		return fmt.Sprintf("skipped due to upstream failure of '%s': %s", f.Upstream, f.Message)
	case FailureCanceled:
		if f.Upstream != "" {
			return fmt.Sprintf("canceled after upstream '%s' was canceled", f.Upstream)
		}
		return "canceled: " + f.Message
	case FailurePanic:
		return "computation panicked: " + f.Message
	default:
		return f.Message
	}
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of running one node. Hooks receive copies made with
// Copy, so the recorded result cannot be changed through them.
type Result struct {
	Success    bool
	Output     any
	TokensUsed int64
	Latency    time.Duration
	Failure    *Failure
}

// Succeeded builds a successful result.
func Succeeded(output any) Result {
	return Result{Success: true, Output: output}
}

// Failed builds a failed result from a failure description.
func Failed(f *Failure) Result {
	return Result{Success: false, Failure: f}
}

// Copy returns a copy of r that shares no Failure with it. Output is copied
// shallowly.
func (r Result) Copy() Result {
	if r.Failure != nil {
		f := *r.Failure
		r.Failure = &f
	}
	return r
}

// LatencyMS returns the latency in whole milliseconds.
func (r Result) LatencyMS() int64 {
	return r.Latency.Milliseconds()
}

// Description returns the failure description, or an empty string.
func (r Result) Description() string {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.Error()
}

// Propagated reports whether the result was synthesized because a dependency
// failed or the run was canceled, rather than by running the node.
func (r Result) Propagated() bool {
	if r.Failure == nil {
		return false
	}
	return r.Failure.Kind == FailureUpstream || r.Failure.Kind == FailureCanceled
}
