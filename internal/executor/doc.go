// Package executor runs a graph of node specs under the hook protocol.
//
// Runner drives one node: pre-execution hooks in registration order, then the
// computation (unless a hook skipped or failed the node), then the
// post-execution hooks. Executor owns the scheduling of a whole graph: it
// validates the graph, dispatches ready nodes to a bounded pool of workers,
// records every result exactly once and propagates failures along the
// dependency edges without stopping independent branches.
package executor
