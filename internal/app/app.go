package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/vk/pyworks/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logW   io.Writer
	logger *slog.Logger
	config *Config
	reg    *registry.Registry
}

// NewApp is the constructor for the main application. Workflow output goes
// to outW; logs go to stderr so the two streams stay separable.
func NewApp(outW io.Writer, cfg *Config) *App {
	return NewAppWithLogWriter(outW, os.Stderr, cfg)
}

// NewAppWithLogWriter is NewApp with an explicit log destination, used by
// tests to capture log output.
func NewAppWithLogWriter(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	return &App{
		outW:   outW,
		logW:   logW,
		logger: logger,
		config: cfg,
		reg:    registry.New(),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.reg
}
