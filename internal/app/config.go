package app

import (
	"errors"
	"fmt"

	"github.com/vk/hookgrid/internal/executor"
)

// Cache modes.
const (
	CacheNone     = "none"
	CacheMemory   = "memory"
	CachePostgres = "postgres"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath string // hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// WorkerCount and DependencyPolicy override the grid's settings block
	// when set.
	WorkerCount      int
	DependencyPolicy string

	CacheMode string
	CacheDSN  string

	EventsURL       string
	EventsNamespace string

	TokenBudget int64
	Audit       bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, errors.New("GridPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.DependencyPolicy != "" {
		if _, err := executor.ParsePolicy(cfg.DependencyPolicy); err != nil {
			return nil, err
		}
	}

	switch cfg.CacheMode {
	case "":
		cfg.CacheMode = CacheNone
	case CacheNone, CacheMemory:
	case CachePostgres:
		if cfg.CacheDSN == "" {
			return nil, errors.New("cache mode 'postgres' requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unknown cache mode %q: must be 'none', 'memory' or 'postgres'", cfg.CacheMode)
	}

	if cfg.TokenBudget < 0 {
		return nil, fmt.Errorf("token budget must not be negative, got %d", cfg.TokenBudget)
	}
	return &cfg, nil
}
