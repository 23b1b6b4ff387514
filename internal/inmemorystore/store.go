// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// A single RWMutex guards both the result table and the in-flight set. Writes
// happen once per node (MarkInFlight, then Record), so contention is low and
// the lock keeps the two structures consistent with each other for Snapshot.
//
// # When to Use
//
// This is the store the executor uses by default. A run's results live only as
// long as the run; persistence of results across runs is a hook's concern
// (see plugins/cache).
package inmemorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/node"
	"github.com/vk/hookgrid/internal/nodestore"
)

// Store is an in-memory implementation of nodestore.Store.
type Store struct {
	mu       sync.RWMutex
	results  map[string]node.Result
	inFlight map[string]struct{}
}

// New creates a new, empty in-memory store.
func New() nodestore.Store {
	return &Store{
		results:  make(map[string]node.Result),
		inFlight: make(map[string]struct{}),
	}
}

// MarkInFlight adds id to the in-flight set.
func (s *Store) MarkInFlight(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.results[id]; done {
		return errors.Wrapf(nodestore.ErrAlreadyRecorded, "node '%s'", id)
	}
	s.inFlight[id] = struct{}{}
	return nil
}

// Record inserts the result for id exactly once.
func (s *Store) Record(ctx context.Context, id string, result node.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.results[id]; done {
		return errors.Wrapf(nodestore.ErrAlreadyRecorded, "node '%s'", id)
	}
	s.results[id] = result
	delete(s.inFlight, id)
	return nil
}

// Get returns the recorded result for id.
func (s *Store) Get(ctx context.Context, id string) (node.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	return r, ok
}

// Snapshot copies the current state.
func (s *Store) Snapshot(ctx context.Context) *node.ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &node.ExecutionState{
		Results:  make(map[string]node.Result, len(s.results)),
		InFlight: make([]string, 0, len(s.inFlight)),
	}
	for id, r := range s.results {
		state.Results[id] = r
	}
	for id := range s.inFlight {
		state.InFlight = append(state.InFlight, id)
	}
	sort.Strings(state.InFlight)
	return state
}
