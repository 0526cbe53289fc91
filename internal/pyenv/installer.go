package pyenv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/vk/pyworks/internal/ctxlog"
)

// RequirementsFile is the dependency declaration expected in a project root.
const RequirementsFile = "requirements.txt"

// Installer installs a project's declared requirements into its
// environment, streaming installer output line by line.
type Installer struct {
	// Pip is the path to the environment's pip.
	Pip string
}

// Install runs "pip install -r requirementsPath" and forwards every output
// line to onLine in stream order. It returns an error when the requirements
// file is missing, pip cannot start, or pip exits non-zero.
func (i *Installer) Install(ctx context.Context, requirementsPath string, onLine func(string)) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(requirementsPath); err != nil {
		return fmt.Errorf("requirements file not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, i.Pip, "install", "-r", requirementsPath)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return fmt.Errorf("failed to start pip: %w", err)
	}
	logger.Debug("Installing requirements.", "pip", i.Pip, "requirements", requirementsPath)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done
	pr.Close()

	if waitErr != nil {
		return fmt.Errorf("pip install failed: %w", waitErr)
	}
	logger.Info("Requirements installed.", "requirements", requirementsPath)
	return nil
}

// CountRequirements returns the number of non-comment, non-blank lines in a
// requirements file. Frontends use it to scale install progress.
func CountRequirements(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			count++
		}
	}
	return count, nil
}
