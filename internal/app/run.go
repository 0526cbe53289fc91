package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vk/pyworks/internal/ctxlog"
	"github.com/vk/pyworks/internal/executor"
	"github.com/vk/pyworks/internal/graph"
	"github.com/vk/pyworks/internal/layout"
	"github.com/vk/pyworks/internal/manifest"
	"github.com/vk/pyworks/internal/project"
	"github.com/vk/pyworks/internal/pyenv"
)

// Run executes the selected application mode: scaffold, list, validate, or
// a full workflow run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.config

	if cfg.NewProject {
		return a.scaffold()
	}

	m, err := manifest.Load(ctx, cfg.ProjectPath)
	if err != nil {
		return err
	}

	if err := a.reg.Discover(ctx, cfg.ProjectPath); err != nil {
		// Broken node files were skipped; the rest of the catalog stands.
		a.logger.Warn("Some node source files could not be parsed.", "error", err)
	}
	a.logger.Info("Node discovery finished.", "nodes", a.reg.Len())

	if cfg.ListNodes {
		return a.listNodes()
	}

	layoutPath := m.LayoutPath
	if cfg.LayoutPath != "" {
		layoutPath = cfg.LayoutPath
	}
	l, err := layout.Load(layoutPath)
	if err != nil {
		return fmt.Errorf("failed to load layout: %w", err)
	}
	a.logger.Debug("Layout loaded.", "path", layoutPath, "instances", len(l.Nodes))

	if cfg.ValidateOnly {
		return a.validate(ctx, l)
	}

	interpreter, err := a.resolveInterpreter(m)
	if err != nil {
		return err
	}

	if cfg.InstallDeps {
		if err := a.installDeps(ctx); err != nil {
			return err
		}
	}

	runner := executor.New(executor.Options{
		Root:        cfg.ProjectPath,
		Layout:      l,
		Interpreter: interpreter,
		Registry:    a.reg,
		Env:         m.Env,
		Timeout:     cfg.Timeout,
	})

	// The run lives on its own goroutine; this loop relays its events in
	// stream order.
	go runner.Run(ctx)

	var terminal executor.FinishedEvent
	for ev := range runner.Events() {
		switch e := ev.(type) {
		case executor.StatusEvent:
			a.logger.Info(e.Message, "state", e.State.String())
		case executor.ActiveNodeEvent:
			a.logger.Info("▶️ Node started.", "instance", e.InstanceID)
		case executor.OutputEvent:
			fmt.Fprintln(a.outW, e.Line)
		case executor.FinishedEvent:
			terminal = e
		}
	}

	if !terminal.Success {
		a.logger.Error("Workflow run failed.", "state", terminal.State.String(), "message", terminal.Message)
		return fmt.Errorf("workflow run failed: %s", terminal.Message)
	}
	a.logger.Info("🏁 Workflow run finished.", "message", terminal.Message)
	return nil
}

// scaffold creates a fresh project at the configured path.
func (a *App) scaffold() error {
	path := filepath.Clean(a.config.ProjectPath)
	root, err := project.Create(project.Name(path), filepath.Dir(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Created new project: %s\n", root)
	return nil
}

// listNodes prints the discovered catalog.
func (a *App) listNodes() error {
	for _, meta := range a.reg.All() {
		fmt.Fprintf(a.outW, "%s\t%s:%d\n", meta.FQNN, meta.FilePath, meta.StartLine)
		if meta.Docstring != "" {
			fmt.Fprintf(a.outW, "\t%s\n", firstLine(meta.Docstring))
		}
	}
	return nil
}

// validate builds the graphs and reports cycle status without running.
func (a *App) validate(ctx context.Context, l *layout.Layout) error {
	g, err := graph.Build(ctx, l, a.reg)
	if err != nil {
		return err
	}
	if g.HasCycle() {
		return fmt.Errorf("layout is not runnable: control-flow graph has a cycle")
	}
	fmt.Fprintf(a.outW, "Layout OK: %d instances, entry nodes: %v\n", len(g.Vertices), g.EntryNodes())
	return nil
}

// resolveInterpreter picks the interpreter for a run: explicit flag, then
// manifest override, then the project's .venv.
func (a *App) resolveInterpreter(m *manifest.Manifest) (string, error) {
	var locator pyenv.Locator
	switch {
	case a.config.Interpreter != "":
		locator = &pyenv.FixedLocator{Path: a.config.Interpreter}
	case m.Interpreter != "":
		locator = &pyenv.FixedLocator{Path: m.Interpreter}
	default:
		locator = &pyenv.VenvLocator{Root: a.config.ProjectPath}
	}

	python, err := locator.Python()
	if err != nil {
		return "", fmt.Errorf("no runnable interpreter for project: %w", err)
	}
	return python, nil
}

// installDeps streams a pip install of the project's requirements.
func (a *App) installDeps(ctx context.Context) error {
	venv := &pyenv.VenvLocator{Root: a.config.ProjectPath}
	pip, err := venv.Pip()
	if err != nil {
		return err
	}
	installer := &pyenv.Installer{Pip: pip}
	reqs := filepath.Join(a.config.ProjectPath, pyenv.RequirementsFile)
	return installer.Install(ctx, reqs, func(line string) {
		fmt.Fprintln(a.outW, line)
	})
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
