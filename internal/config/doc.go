// Package config defines the format-agnostic model of a grid file, along with
// the interfaces (Loader, Converter) for loading it and for binding node
// arguments to the Go types used by modules.
//
// The Model is the single source of truth for the builder package, which turns
// it into executable node specs. Concrete implementations of the interfaces,
// such as for HCL, are provided in separate packages.
package config
