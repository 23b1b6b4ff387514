package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vk/hookgrid/internal/node"
)

// Entry is one cached node output.
type Entry struct {
	NodeID     string
	Output     any
	TokensUsed int64
	StoredAt   time.Time
}

// Store persists cache entries by key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
}

// Key derives the cache key of a node from its ID, the fingerprint of its
// computation and the outputs of its upstream nodes. encoding/json writes map
// keys in sorted order, so equal inputs always produce equal keys.
func Key(id, fingerprint string, inputs node.Inputs) (string, error) {
	outputs := make(map[string]any, len(inputs))
	for upstream, r := range inputs {
		outputs[upstream] = r.Output
	}
	buf, err := json.Marshal(keyMaterial{Fingerprint: fingerprint, Inputs: outputs})
	if err != nil {
		return "", errors.Wrapf(err, "node '%s': inputs are not serializable", id)
	}
	sum := sha256.Sum256(buf)
	return id + ":" + hex.EncodeToString(sum[:]), nil
}

type keyMaterial struct {
	Fingerprint string         `json:"fingerprint"`
	Inputs      map[string]any `json:"inputs"`
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now()
	}
	s.entries[key] = e
	return nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
