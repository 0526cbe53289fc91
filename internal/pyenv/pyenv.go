// Package pyenv locates a runnable interpreter for a project's environment
// and installs its declared requirements. Creating the environment itself
// is out of scope; the rest of the system only ever consumes the located
// interpreter path.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/vk/pyworks/internal/ctxlog"
)

// VenvDir is the environment directory expected under a project root.
const VenvDir = ".venv"

// Locator resolves the interpreter to run a project's workflows with.
type Locator interface {
	// Python returns the path to a runnable interpreter, or an error when
	// the environment is absent.
	Python() (string, error)
}

// VenvLocator resolves interpreter and pip paths inside a project's .venv.
type VenvLocator struct {
	Root string
}

// Exists reports whether the project has an environment directory.
func (v *VenvLocator) Exists() bool {
	info, err := os.Stat(filepath.Join(v.Root, VenvDir))
	return err == nil && info.IsDir()
}

// Python returns the environment's interpreter path.
func (v *VenvLocator) Python() (string, error) {
	return v.binary("python")
}

// Pip returns the environment's pip path.
func (v *VenvLocator) Pip() (string, error) {
	return v.binary("pip")
}

func (v *VenvLocator) binary(name string) (string, error) {
	if !v.Exists() {
		return "", fmt.Errorf("no %s environment found under %s", VenvDir, v.Root)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(v.Root, VenvDir, "Scripts", name+".exe"), nil
	}
	return filepath.Join(v.Root, VenvDir, "bin", name), nil
}

// Validate checks that the located interpreter actually runs by asking it
// for its version.
func (v *VenvLocator) Validate(ctx context.Context) error {
	python, err := v.Python()
	if err != nil {
		return err
	}
	if err := runVersionProbe(ctx, python); err != nil {
		return fmt.Errorf("environment interpreter %s is not runnable: %w", python, err)
	}
	ctxlog.FromContext(ctx).Debug("Environment interpreter validated.", "python", python)
	return nil
}

// runVersionProbe checks an interpreter by asking it to print its version.
func runVersionProbe(ctx context.Context, python string) error {
	return exec.CommandContext(ctx, python, "-c", "import sys; print(sys.version)").Run()
}

// FixedLocator returns a preconfigured interpreter path, used when a
// project manifest overrides environment lookup.
type FixedLocator struct {
	Path string
}

func (f *FixedLocator) Python() (string, error) {
	if f.Path == "" {
		return "", fmt.Errorf("no interpreter configured")
	}
	return f.Path, nil
}
