package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Settings []*settingsBlock `hcl:"settings,block"`
	Nodes    []*nodeBlock     `hcl:"node,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

type settingsBlock struct {
	MaxConcurrency   *int      `hcl:"max_concurrency,optional"`
	DependencyPolicy *string   `hcl:"dependency_policy,optional"`
	DefRange         hcl.Range `hcl:",def_range"`
}

type nodeBlock struct {
	Type      string          `hcl:"type,label"`
	Name      string          `hcl:"name,label"`
	Arguments *argumentsBlock `hcl:"arguments,block"`
	DependsOn []string        `hcl:"depends_on,optional"`
	DefRange  hcl.Range       `hcl:",def_range"`
}

type argumentsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
