package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vk/hookgrid/internal/app"
)

// CacheDSNEnv is read when --cache-dsn is not given.
const CacheDSNEnv = "HOOKGRID_CACHE_DSN"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("hookgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
hookgrid - Run a graph of computation nodes with pre- and post-execution hooks.

Usage:
  hookgrid [options] [GRID_PATH]

Arguments:
  GRID_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the grid file or directory.")
	gFlag := flagSet.String("g", "", "Path to the grid file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Maximum number of nodes running at once. 0 uses the grid's settings or the default.")
	policyFlag := flagSet.String("policy", "", "Dependency failure policy: 'block' or 'continue'. Empty uses the grid's settings.")
	envFileFlag := flagSet.String("env-file", "", "Comma-separated dotenv files loaded before the grid.")
	cacheFlag := flagSet.String("cache", app.CacheNone, "Result cache: 'none', 'memory' or 'postgres'.")
	cacheDSNFlag := flagSet.String("cache-dsn", "", "PostgreSQL DSN for --cache=postgres. Defaults to $"+CacheDSNEnv+".")
	eventsURLFlag := flagSet.String("events-url", "", "Socket.IO server receiving node lifecycle events. Empty is disabled.")
	eventsNSFlag := flagSet.String("events-namespace", "/", "Socket.IO namespace for lifecycle events.")
	budgetFlag := flagSet.Int64("token-budget", 0, "Maximum tokens the run may spend. 0 is unlimited.")
	auditFlag := flagSet.Bool("audit", false, "Log every node's start and result.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *gridFlag != "" {
		path = *gridFlag
	} else if *gFlag != "" {
		path = *gFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Grid path determined.", "path", path)

	if path == "" {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if files := splitList(*envFileFlag); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("failed to load env files: %v", err)}
		}
		slog.Debug("Env files loaded.", "files", files)
	}

	cacheDSN := *cacheDSNFlag
	if cacheDSN == "" {
		cacheDSN = os.Getenv(CacheDSNEnv)
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GridPath:         path,
		HealthcheckPort:  *healthPortFlag,
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		WorkerCount:      *workersFlag,
		DependencyPolicy: strings.ToLower(*policyFlag),
		CacheMode:        strings.ToLower(*cacheFlag),
		CacheDSN:         cacheDSN,
		EventsURL:        *eventsURLFlag,
		EventsNamespace:  *eventsNSFlag,
		TokenBudget:      *budgetFlag,
		Audit:            *auditFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "grid", config.GridPath)
	return config, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
