// Package logging builds the zap loggers used across copilotbench. Each
// subsystem logs through a named category logger that can be switched off
// in the configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"copilotbench/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem logger.
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup and shutdown
	CategorySession  Category = "session"  // command handling, turns, replay
	CategoryPipeline Category = "pipeline" // answer and evaluation backends
	CategoryCorpus   Category = "corpus"   // test corpus reads, appends, watching
	CategoryUI       Category = "ui"       // terminal UI events
)

// Options adjusts how the configuration is applied.
type Options struct {
	// ToFile sends logs to the configured file instead of stderr. The
	// terminal UI needs this so log lines do not corrupt the screen.
	ToFile bool
	// Verbose forces the debug level.
	Verbose bool
}

// Loggers hands out category loggers sharing one core.
type Loggers struct {
	root *zap.Logger
	cfg  config.LoggingConfig
}

// New builds the root logger from cfg. With ToFile set and no file
// configured, logging is disabled.
func New(cfg config.LoggingConfig, opts Options) (*Loggers, error) {
	if opts.ToFile && cfg.File == "" {
		return &Loggers{root: zap.NewNop(), cfg: cfg}, nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Sampling = nil
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	if opts.ToFile {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zcfg.OutputPaths = []string{cfg.File}
		zcfg.ErrorOutputPaths = []string{cfg.File}
	}

	root, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Loggers{root: root, cfg: cfg}, nil
}

// NewWithCore wraps an existing core, for tests.
func NewWithCore(core zapcore.Core, cfg config.LoggingConfig) *Loggers {
	return &Loggers{root: zap.New(core), cfg: cfg}
}

// Root returns the uncategorized logger.
func (l *Loggers) Root() *zap.Logger {
	return l.root
}

// Get returns the logger for a category, or a no-op logger when the
// category is disabled.
func (l *Loggers) Get(category Category) *zap.Logger {
	if !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return l.root.Named(string(category))
}

// Sync flushes buffered log entries.
func (l *Loggers) Sync() error {
	return l.root.Sync()
}
