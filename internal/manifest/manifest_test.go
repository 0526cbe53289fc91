package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, Filename), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("missing manifest yields defaults", func(t *testing.T) {
		root := t.TempDir()
		m, err := Load(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(root), m.Name)
		assert.Equal(t, filepath.Join(root, DefaultLayoutFile), m.LayoutPath)
		assert.Empty(t, m.Interpreter)
		assert.Empty(t, m.Env)
	})

	t.Run("full manifest with root interpolation", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, `
project {
  name        = "demo"
  interpreter = "${root}/.venv/bin/python"
  layout      = "${root}/alt-layout.json"
  env = {
    PYTHONDONTWRITEBYTECODE = "1"
  }
}
`)
		m, err := Load(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, "demo", m.Name)
		assert.Equal(t, filepath.Join(root, ".venv", "bin", "python"), m.Interpreter)
		assert.Equal(t, filepath.Join(root, "alt-layout.json"), m.LayoutPath)
		assert.Equal(t, map[string]string{"PYTHONDONTWRITEBYTECODE": "1"}, m.Env)
	})

	t.Run("relative layout resolves under root", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, `
project {
  layout = "layouts/main.json"
}
`)
		m, err := Load(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "layouts", "main.json"), m.LayoutPath)
	})

	t.Run("empty project block keeps defaults", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "project {}\n")
		m, err := Load(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(root), m.Name)
	})

	t.Run("unparsable manifest errors", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "project {\n  name =\n")
		_, err := Load(ctx, root)
		assert.ErrorContains(t, err, "failed to parse manifest")
	})

	t.Run("env must convert to a string map", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, `
project {
  env = [1, 2, 3]
}
`)
		_, err := Load(ctx, root)
		assert.ErrorContains(t, err, "env must be a map of strings")
	})
}
