package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
)

// HookName is the name under which the cache hooks are registered.
const HookName = "cache"

// Stats counts cache activity since the Cache was created.
type Stats struct {
	Hits   int64
	Misses int64
	Stores int64
	Errors int64
}

// Cache is both a pre- and a post-execution hook. Register it in both
// sequences.
type Cache struct {
	store Store
	types map[string]bool

	// served holds keys answered from the store and not yet seen by the
	// post-hook, so a hit is not written back.
	served sync.Map

	hits, misses, stores, errs atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTypes restricts caching to the given node types.
func WithTypes(types ...string) Option {
	return func(c *Cache) {
		if c.types == nil {
			c.types = make(map[string]bool, len(types))
		}
		for _, t := range types {
			c.types[t] = true
		}
	}
}

// New returns a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HookName implements hooks.Named.
func (c *Cache) HookName() string { return HookName }

func (c *Cache) applies(spec *node.Spec) bool {
	return len(c.types) == 0 || c.types[spec.Kind()]
}

// BeforeNode skips the node with the stored output on a hit. Store errors
// are logged and the node proceeds.
func (c *Cache) BeforeNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs) hooks.Decision {
	if !c.applies(spec) {
		return hooks.Proceed()
	}
	logger := ctxlog.FromContext(ctx).With("hook", HookName)

	key, err := Key(id, node.FingerprintOf(spec.Compute), inputs)
	if err != nil {
		c.errs.Add(1)
		logger.Warn("Cannot derive cache key, proceeding.", "error", err)
		return hooks.Proceed()
	}

	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.errs.Add(1)
		logger.Warn("Cache lookup failed, proceeding.", "error", err)
		return hooks.Proceed()
	}
	if !ok {
		c.misses.Add(1)
		return hooks.Proceed()
	}

	c.hits.Add(1)
	c.served.Store(key, struct{}{})
	logger.Debug("Cache hit.", "storedAt", entry.StoredAt)
	return hooks.Skip(node.Succeeded(entry.Output))
}

// AfterNode stores successful computed results.
func (c *Cache) AfterNode(ctx context.Context, id string, spec *node.Spec, inputs node.Inputs, result node.Result) error {
	if !result.Success || !c.applies(spec) {
		return nil
	}
	key, err := Key(id, node.FingerprintOf(spec.Compute), inputs)
	if err != nil {
		c.errs.Add(1)
		return err
	}
	if _, hit := c.served.LoadAndDelete(key); hit {
		return nil
	}
	if err := c.store.Put(ctx, key, Entry{NodeID: id, Output: result.Output, TokensUsed: result.TokensUsed}); err != nil {
		c.errs.Add(1)
		return err
	}
	c.stores.Add(1)
	return nil
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Stores: c.stores.Load(),
		Errors: c.errs.Load(),
	}
}
