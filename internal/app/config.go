package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ProjectPath is the workflow project root.
	ProjectPath string
	// LayoutPath overrides the layout file resolved from the manifest.
	LayoutPath string
	// Interpreter overrides interpreter lookup entirely.
	Interpreter string

	LogFormat string
	LogLevel  string

	// Timeout bounds a whole run; zero means unbounded.
	Timeout time.Duration

	// InstallDeps runs pip install -r requirements.txt before executing.
	InstallDeps bool
	// ListNodes discovers and prints the node catalog without running.
	ListNodes bool
	// ValidateOnly builds and cycle-checks the graphs without running.
	ValidateOnly bool
	// NewProject scaffolds a fresh project at ProjectPath and exits.
	NewProject bool
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("ProjectPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
