package builder

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// refRoot is the variable under which upstream results are exposed to
// expressions: node.<type>.<name>.output, .success and .error.
const refRoot = "node"

// parseNodeTraversal extracts the referenced node ID from a traversal of the
// form node.<type>.<name>[...].
func parseNodeTraversal(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 3 || traversal.RootName() != refRoot {
		return "", false
	}

	typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
	nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
	if !typeOk || !nameOk {
		return "", false
	}
	return typeAttr.Name + "." + nameAttr.Name, true
}

// dependencies merges explicit dependencies with the nodes referenced by the
// argument expressions. The result is sorted and free of duplicates.
func dependencies(explicit []string, args map[string]hcl.Expression) []string {
	set := make(map[string]struct{}, len(explicit))
	for _, id := range explicit {
		set[id] = struct{}{}
	}
	for _, expr := range args {
		for _, traversal := range expr.Variables() {
			if id, ok := parseNodeTraversal(traversal); ok {
				set[id] = struct{}{}
			}
		}
	}

	deps := make([]string, 0, len(set))
	for id := range set {
		deps = append(deps, id)
	}
	sort.Strings(deps)
	return deps
}

// formatTraversal renders a traversal for log messages.
func formatTraversal(t hcl.Traversal) string {
	var b strings.Builder
	for i, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			b.WriteString(s.Name)
		case hcl.TraverseAttr:
			b.WriteString("." + s.Name)
		case hcl.TraverseIndex:
			b.WriteString("[...]")
		default:
			if i > 0 {
				b.WriteString(".?")
			}
		}
	}
	return b.String()
}
