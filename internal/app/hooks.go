package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/socketio"
	"github.com/vk/hookgrid/plugins/audit"
	"github.com/vk/hookgrid/plugins/budget"
	"github.com/vk/hookgrid/plugins/cache"
	"github.com/vk/hookgrid/plugins/eventstream"
)

// cacheWriteTimeout bounds one attempt of a persistent cache write.
const cacheWriteTimeout = 5 * time.Second

// setupHooks registers the built-in hooks selected by the configuration.
//
// Pre-execution order: budget, cache, event stream, audit. A node refused
// by the budget is never looked up in the cache, and a cache hit is still
// published and audited.
func (a *App) setupHooks(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if a.config.TokenBudget > 0 {
		b := budget.New(a.config.TokenBudget)
		a.executor.AddPreExecutionHook(b)
		a.executor.AddPostExecutionHook(b)
		logger.Debug("Token budget enabled.", "limit", a.config.TokenBudget)
	}

	if err := a.setupCache(ctx); err != nil {
		return err
	}

	if a.config.EventsURL != "" {
		conn, err := a.dial(ctx, a.config.EventsURL, socketio.Options{Namespace: a.config.EventsNamespace})
		if err != nil {
			return fmt.Errorf("failed to connect event stream: %w", err)
		}
		p := eventstream.New(conn)
		a.closers = append(a.closers, p.Close)
		a.executor.AddPreExecutionHook(p)
		a.executor.AddPostExecutionHook(p)
		logger.Debug("Event stream enabled.", "url", a.config.EventsURL)
	}

	if a.config.Audit {
		au := audit.New(nil)
		a.executor.AddPreExecutionHook(au)
		a.executor.AddPostExecutionHook(au)
	}

	pre, post := a.executor.Hooks().Len()
	logger.Info("Hooks registered.", "pre", pre, "post", post)
	return nil
}

func (a *App) setupCache(ctx context.Context) error {
	switch a.config.CacheMode {
	case CacheMemory:
		c := cache.New(cache.NewMemoryStore())
		a.executor.AddPreExecutionHook(c)
		a.executor.AddPostExecutionHook(c)

	case CachePostgres:
		pool, err := pgxpool.New(ctx, a.config.CacheDSN)
		if err != nil {
			return fmt.Errorf("failed to create cache pool: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		store := cache.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare cache schema: %w", err)
		}

		c := cache.New(store)
		a.executor.AddPreExecutionHook(c)
		a.executor.AddPostExecutionHook(hooks.RetryPost(
			hooks.TimeoutPost(c, cacheWriteTimeout),
			hooks.RetryConfig{MaxRetries: 2},
		))

	default:
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Result cache enabled.", "mode", a.config.CacheMode)
	return nil
}

// close unregisters the hooks and releases their resources in reverse order
// of acquisition.
func (a *App) close() {
	a.executor.ClearHooks(true, true)
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
