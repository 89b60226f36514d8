// Package logging sets up the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Configure installs a text logger on stderr as the slog default.
//
// Supported levels: debug, info, warn, error.
func Configure(level string) error {
	log, err := New(os.Stderr, level)
	if err != nil {
		return err
	}
	slog.SetDefault(log)
	return nil
}

// New returns a text logger writing to w at level. Debug loggers include
// source locations.
func New(w io.Writer, level string) (*slog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     parsed,
		AddSource: parsed <= slog.LevelDebug,
	})
	return slog.New(h), nil
}

// ParseLevel maps a level name to a slog level. The empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn, "warning":
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", level)
	}
}
