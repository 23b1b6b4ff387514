package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vk/hookgrid/internal/builder"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/node"
)

// Run executes the loaded grid once.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer() //nolint:errcheck

	if err := a.setupHooks(ctx); err != nil {
		a.close()
		return fmt.Errorf("failed to set up hooks: %w", err)
	}
	defer a.close()

	specs, err := builder.New(a.registry, a.converter).Build(ctx, a.grid.Grid)
	if err != nil {
		return fmt.Errorf("failed to build nodes: %w", err)
	}
	if len(specs) == 0 {
		a.logger.Warn("No nodes found in grid, execution not required.")
		return nil
	}

	a.logger.Info("Starting concurrent execution...", "nodes", len(specs), "workers", a.executor.MaxConcurrency())
	state, err := a.executor.Run(ctx, specs)
	if state != nil {
		a.printSummary(state)
	}
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")
	return nil
}

// printSummary writes one line per node, sorted by ID.
func (a *App) printSummary(state *node.ExecutionState) {
	ids := make([]string, 0, len(state.Results))
	for id := range state.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var total int64
	tw := tabwriter.NewWriter(a.outW, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tSTATUS\tLATENCY\tTOKENS\tDETAIL")
	for _, id := range ids {
		r := state.Results[id]
		total += r.TokensUsed

		status, detail := "ok", ""
		if r.Failure != nil {
			status = r.Failure.Kind.String()
			detail = strings.ReplaceAll(r.Failure.Error(), "\n", " ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", id, status, r.Latency.Round(time.Millisecond), r.TokensUsed, detail)
	}
	fmt.Fprintf(tw, "TOTAL\t%d nodes\t\t%d\t\n", len(ids), total)
	tw.Flush()
}
