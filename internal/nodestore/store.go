// Package nodestore defines the interface for recording node results during a
// single graph run.
//
// # Why Node Store Exists
//
// The store is the only state shared across concurrently running nodes. It
// separates the mutable per-run state (which nodes are in flight, which
// results are recorded) from the immutable graph structure managed by the
// dag package, so the executor can swap storage backends without touching the
// scheduler.
//
// # Lifecycle and Usage
//
// A store is:
//  1. Created once per run, empty.
//  2. Mutated by the executor: MarkInFlight when a worker picks a node up,
//     Record exactly once when the node settles.
//  3. Read by the executor to resolve a node's inputs and by monitoring tools
//     through Snapshot while the run is in progress.
//  4. Discarded when the run ends; the final Snapshot is handed to the caller.
//
// # Write-Once Results
//
// Record is insert-only. A second Record for the same node fails with
// ErrAlreadyRecorded and leaves the first result in place, which is what lets
// readers use a result without further locking once it exists.
package nodestore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/node"
)

// ErrAlreadyRecorded is returned when a result is recorded twice for one node.
var ErrAlreadyRecorded = errors.New("result already recorded")

// Store records the results of one run.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: workers record results
// while other workers resolve inputs and monitoring tools take snapshots.
type Store interface {
	// MarkInFlight adds a node to the in-flight set. It fails with
	// ErrAlreadyRecorded if the node already has a result.
	MarkInFlight(ctx context.Context, id string) error

	// Record inserts the node's result and removes it from the in-flight set.
	Record(ctx context.Context, id string, result node.Result) error

	// Get returns the recorded result of a node.
	Get(ctx context.Context, id string) (node.Result, bool)

	// Snapshot returns a point-in-time copy of all results and in-flight nodes.
	Snapshot(ctx context.Context) *node.ExecutionState
}
