package app

import (
	"io"
	"log/slog"
	"time"
)

// newLogger builds the app's logger from cfg. The executor adds runID,
// workerID and nodeID to it through ctxlog. Duration attributes are written
// as "<key>MS" in milliseconds. An unknown level falls back to info.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: durationsInMS}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}

	return slog.New(handler)
}

func durationsInMS(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindDuration {
		return slog.Float64(a.Key+"MS", float64(a.Value.Duration())/float64(time.Millisecond))
	}
	return a
}
