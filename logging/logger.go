// Package logging builds the application's hclog logger from config.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"h265-compressor/config"
)

// Name is the root logger name.
const Name = "h265-compressor"

// Options control where log output goes when no log file is configured.
type Options struct {
	// Fallback receives output when cfg.LogFile is empty. Nil discards it,
	// which the TUI relies on since it owns the terminal.
	Fallback io.Writer
}

// New returns a logger and a close func for the underlying file, if any.
func New(cfg config.Config, opts Options) (hclog.Logger, func() error, error) {
	level := hclog.LevelFromString(strings.ToLower(cfg.LogLevel))
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	noop := func() error { return nil }

	if cfg.LogFile == "" {
		if opts.Fallback == nil {
			return hclog.NewNullLogger(), noop, nil
		}
		return hclog.New(&hclog.LoggerOptions{
			Name:   Name,
			Level:  level,
			Output: opts.Fallback,
		}), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       Name,
		Level:      level,
		Output:     f,
		TimeFormat: "2006-01-02 15:04:05",
	})
	return logger, f.Close, nil
}
