package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrGraphValidation matches every error returned for an invalid graph.
	ErrGraphValidation = errors.New("graph validation failed")
	// ErrNodesFailed matches a RunError that contains at least one failed node.
	ErrNodesFailed = errors.New("one or more nodes failed")
)

// GraphValidationError is returned by Start and Run before any node runs when
// the graph is invalid (cycles, dangling dependencies, duplicates).
type GraphValidationError struct {
	Err error
}

func (e *GraphValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrGraphValidation, e.Err)
}

// Unwrap exposes both ErrGraphValidation and the dag error.
func (e *GraphValidationError) Unwrap() []error {
	return []error{ErrGraphValidation, e.Err}
}

// RunError summarizes a run in which some nodes did not succeed. The full
// ExecutionState is returned alongside it.
type RunError struct {
	// Failed maps root-cause failures (computation, panic, pre-hook) to their
	// descriptions.
	Failed map[string]string
	// Propagated lists nodes that failed because a dependency failed.
	Propagated []string
	// Canceled lists nodes recorded as canceled.
	Canceled []string
	// Cause is the context error when the run was canceled.
	Cause error
}

func (e *RunError) Error() string {
	if len(e.Failed) == 0 {
		if e.Cause != nil {
			return fmt.Sprintf("run canceled with %d node(s) unfinished: %v", len(e.Canceled), e.Cause)
		}
		return fmt.Sprintf("%s: %s", ErrNodesFailed, strings.Join(append(e.Propagated, e.Canceled...), ", "))
	}

	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	msg := fmt.Sprintf("execution failed for %s: %s", strings.Join(ids, ", "), e.Failed[ids[0]])
	if e.Cause != nil {
		msg += fmt.Sprintf(" (run canceled: %v)", e.Cause)
	}
	return msg
}

// Unwrap exposes ErrNodesFailed and, for canceled runs, the context error.
func (e *RunError) Unwrap() []error {
	var errs []error
	if len(e.Failed)+len(e.Propagated) > 0 {
		errs = append(errs, ErrNodesFailed)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
