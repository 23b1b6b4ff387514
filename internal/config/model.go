package config

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of all loaded grid
// files.
type Model struct {
	Grid *Grid
}

// Grid is the user's execution graph definition.
type Grid struct {
	Settings Settings
	Nodes    []*Node
}

// Settings holds the optional executor settings declared in a grid. Zero
// values mean "not set".
type Settings struct {
	MaxConcurrency   int
	DependencyPolicy string
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Type      string
	Name      string
	Arguments map[string]hcl.Expression
	// ArgumentsSource holds the source text of each argument expression.
	ArgumentsSource map[string]string
	// DependsOn holds explicit dependencies as node IDs ("<type>.<name>").
	DependsOn []string
	// Source is the declaration's location, e.g. "grid/main.hcl:12,1-25".
	Source string
}

// ID returns the node's graph identifier, "<type>.<name>".
func (n *Node) ID() string {
	return n.Type + "." + n.Name
}

// SplitID splits a node ID into its type and name. ok is false when id is not
// of the form "<type>.<name>".
func SplitID(id string) (nodeType, name string, ok bool) {
	nodeType, name, ok = strings.Cut(id, ".")
	if !ok || nodeType == "" || name == "" || strings.Contains(name, ".") {
		return "", "", false
	}
	return nodeType, name, true
}
