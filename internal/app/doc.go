// Package app ties a loaded grid to an executor.
//
// NewApp loads the grid, validates it against the registered modules and
// configures the executor from the grid's settings block and the Config
// overrides. Each Run registers the built-in hooks the Config selects
// (budget, cache, eventstream, audit), executes the graph, prints a per-node
// summary and releases the hooks again.
package app
