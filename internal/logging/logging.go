// Package logging builds the process logger: slog on top of a charm log
// handler, writing to stderr or a rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"charm.land/log/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rand/starweave/internal/config"
)

// Options configures the logger.
type Options struct {
	Debug bool

	// File enables rotated file output. Empty logs to Writer or stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Writer overrides stderr when File is empty.
	Writer io.Writer

	Prefix string
}

// FromConfig derives logger options from the configuration.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Debug:      cfg.Debug,
		File:       cfg.LogPath(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Prefix:     "starweave",
	}
}

// New builds a logger. The returned closer releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}

	var (
		w         io.Writer = os.Stderr
		closer    io.Closer = nopCloser{}
		formatter           = log.TextFormatter
	)
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		w, closer = rotator, rotator
		formatter = log.LogfmtFormatter
	case opts.Writer != nil:
		w = opts.Writer
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Formatter:       formatter,
	})

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
