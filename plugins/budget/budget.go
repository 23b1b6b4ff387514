// Package budget caps the tokens a grid may spend. The post-execution hook
// adds each result's TokensUsed to a running total; the pre-execution hook
// fails nodes once the total has reached the limit.
//
// The check happens before a node starts, so nodes already running when the
// limit is reached still complete and may take the total past it.
package budget

import (
	"context"
	"sync/atomic"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/hooks"
	"github.com/vk/hookgrid/internal/node"
)

// HookName is the name under which the budget hooks are registered.
const HookName = "budget"

// Budget is both a pre- and a post-execution hook. The total is shared by
// every run of the executor it is registered with.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// New returns a Budget allowing limit tokens.
func New(limit int64) *Budget {
	return &Budget{limit: limit}
}

// HookName implements hooks.Named.
func (b *Budget) HookName() string { return HookName }

// BeforeNode fails the node when the budget is exhausted.
func (b *Budget) BeforeNode(ctx context.Context, id string, _ *node.Spec, _ node.Inputs) hooks.Decision {
	if used := b.used.Load(); used >= b.limit {
		ctxlog.FromContext(ctx).Warn("Token budget exhausted.", "used", used, "limit", b.limit)
		return hooks.Failf("token budget exhausted: used %d of %d", used, b.limit)
	}
	return hooks.Proceed()
}

// AfterNode charges the result's tokens.
func (b *Budget) AfterNode(_ context.Context, _ string, _ *node.Spec, _ node.Inputs, result node.Result) error {
	if result.TokensUsed > 0 {
		b.used.Add(result.TokensUsed)
	}
	return nil
}

// Used returns the tokens charged so far.
func (b *Budget) Used() int64 { return b.used.Load() }

// Remaining returns the tokens left, never negative.
func (b *Budget) Remaining() int64 {
	if r := b.limit - b.used.Load(); r > 0 {
		return r
	}
	return 0
}
