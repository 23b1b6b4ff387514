// Package dag holds the dependency structure of a graph run. It is built from
// node specs, validated before anything executes (duplicate IDs, dangling
// dependencies, missing computations and cycles), and then queried by the
// executor for roots, dependencies and dependents.
//
// The graph only knows node IDs. Specs, results and hooks live elsewhere.
package dag
