package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/hookgrid/internal/config"
	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/executor"
	"github.com/vk/hookgrid/internal/observe"
	"github.com/vk/hookgrid/internal/registry"
	"github.com/vk/hookgrid/internal/socketio"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	ctx       context.Context
	config    *Config
	registry  *registry.Registry
	grid      *config.Model
	converter config.Converter
	executor  *executor.Executor
	tally     *observe.Tally

	// dial opens the event stream connection.
	dial socketio.DialFunc
	// closers release hook resources, in reverse order, when Run returns.
	closers    []func()
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Configuration errors are programmer or user errors at startup and panic;
// the entrypoint recovers them.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.GridPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into unified model.", "nodes", len(model.Grid.Nodes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg.Load(ctx, modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	if err := reg.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	tally := observe.NewTally()
	exec, err := newExecutor(cfg, model.Grid.Settings, observe.Multi{observe.NewSlog(logger), tally})
	if err != nil {
		panic(err)
	}

	return &App{
		outW:      outW,
		logger:    logger,
		ctx:       ctx,
		config:    cfg,
		registry:  reg,
		grid:      model,
		converter: converter,
		executor:  exec,
		tally:     tally,
		dial:      socketio.Dial,
	}
}

// newExecutor applies the grid settings, then the CLI overrides.
func newExecutor(cfg *Config, settings config.Settings, sink observe.Sink) (*executor.Executor, error) {
	workers := settings.MaxConcurrency
	if cfg.WorkerCount > 0 {
		workers = cfg.WorkerCount
	}

	policyName := settings.DependencyPolicy
	if cfg.DependencyPolicy != "" {
		policyName = cfg.DependencyPolicy
	}
	policy, err := executor.ParsePolicy(policyName)
	if err != nil {
		return nil, fmt.Errorf("invalid dependency policy: %w", err)
	}

	return executor.New(
		executor.WithMaxConcurrency(workers),
		executor.WithDependencyPolicy(policy),
		executor.WithSink(sink),
	), nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Executor returns the application's executor.
func (a *App) Executor() *executor.Executor {
	return a.executor
}

// Counts returns the failure counters collected so far.
func (a *App) Counts() observe.Counts {
	return a.tally.Counts()
}
