package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenvLocator(t *testing.T) {
	t.Run("missing environment errors", func(t *testing.T) {
		v := &VenvLocator{Root: t.TempDir()}
		assert.False(t, v.Exists())
		_, err := v.Python()
		assert.ErrorContains(t, err, ".venv")
	})

	t.Run("resolves interpreter and pip inside the venv", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("posix layout")
		}
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, VenvDir, "bin"), 0o755))

		v := &VenvLocator{Root: root}
		require.True(t, v.Exists())

		python, err := v.Python()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, VenvDir, "bin", "python"), python)

		pip, err := v.Pip()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, VenvDir, "bin", "pip"), pip)
	})

	t.Run("validate fails on a non-runnable interpreter", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, VenvDir, "bin"), 0o755))
		v := &VenvLocator{Root: root}
		assert.Error(t, v.Validate(context.Background()))
	})
}

func TestFixedLocator(t *testing.T) {
	python, err := (&FixedLocator{Path: "/opt/python"}).Python()
	require.NoError(t, err)
	assert.Equal(t, "/opt/python", python)

	_, err = (&FixedLocator{}).Python()
	assert.Error(t, err)
}

func TestInstaller(t *testing.T) {
	t.Run("missing requirements file errors before launch", func(t *testing.T) {
		i := &Installer{Pip: "/nonexistent/pip"}
		err := i.Install(context.Background(), filepath.Join(t.TempDir(), RequirementsFile), nil)
		assert.ErrorContains(t, err, "requirements file not found")
	})

	t.Run("streams lines and honors exit status", func(t *testing.T) {
		// /bin/sh stands in for pip; it receives ("install", "-r", path)
		// but a shell ignores arguments it is not asked to read.
		root := t.TempDir()
		reqs := filepath.Join(root, RequirementsFile)
		require.NoError(t, os.WriteFile(reqs, []byte("requests>=2.0\n"), 0o644))

		script := filepath.Join(root, "fakepip")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho Collecting requests\necho Successfully installed requests\n"), 0o755))

		var lines []string
		i := &Installer{Pip: script}
		err := i.Install(context.Background(), reqs, func(line string) { lines = append(lines, line) })
		require.NoError(t, err)
		assert.Equal(t, []string{"Collecting requests", "Successfully installed requests"}, lines)
	})

	t.Run("non-zero pip exit is an error", func(t *testing.T) {
		root := t.TempDir()
		reqs := filepath.Join(root, RequirementsFile)
		require.NoError(t, os.WriteFile(reqs, []byte("x\n"), 0o644))

		script := filepath.Join(root, "fakepip")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 3\n"), 0o755))

		err := (&Installer{Pip: script}).Install(context.Background(), reqs, nil)
		assert.ErrorContains(t, err, "pip install failed")
	})
}

func TestCountRequirements(t *testing.T) {
	path := filepath.Join(t.TempDir(), RequirementsFile)
	require.NoError(t, os.WriteFile(path, []byte("# comment\n\nnumpy>=1.21\npandas\n  # indented comment\n"), 0o644))

	count, err := CountRequirements(path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
