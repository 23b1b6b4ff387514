// Package registry provides the central "glue" for the module system.
//
// The Registry maps the node types used in grid files (e.g. "http_request")
// to the compiled Go handlers that implement them. Modules register their
// handlers at startup; the registry is then validated so that a handler with
// a malformed signature or input struct is reported before any grid runs.
package registry
