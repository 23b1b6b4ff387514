// Package cli turns command-line arguments into an app.Config.
//
// Flags cover the grid location, executor settings (--workers, --policy) and
// the built-in hooks (--cache, --token-budget, --events-url, --audit).
// Dotenv files given with --env-file are loaded into the process environment
// before the config is validated. Usage errors are returned as *ExitError
// with code 2.
package cli
