package node

import "sort"

// ExecutionState is a read-only view of a run: the recorded results and the
// nodes currently executing.
type ExecutionState struct {
	Results  map[string]Result
	InFlight []string
}

// Result returns the recorded result for id.
func (s *ExecutionState) Result(id string) (Result, bool) {
	r, ok := s.Results[id]
	return r, ok
}

// Succeeded returns the IDs of successful nodes in sorted order.
func (s *ExecutionState) Succeeded() []string {
	return s.filter(func(r Result) bool { return r.Success })
}

// Failed returns the IDs of failed nodes in sorted order, including
// propagated failures.
func (s *ExecutionState) Failed() []string {
	return s.filter(func(r Result) bool { return !r.Success })
}

func (s *ExecutionState) filter(keep func(Result) bool) []string {
	var ids []string
	for id, r := range s.Results {
		if keep(r) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
