package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pyworks/internal/registry"
)

func TestCreate(t *testing.T) {
	t.Run("scaffolds a valid project", func(t *testing.T) {
		root, err := Create("demo", t.TempDir())
		require.NoError(t, err)

		assert.True(t, Validate(root))
		assert.Equal(t, "demo", Name(root))
		assert.FileExists(t, filepath.Join(root, "requirements.txt"))
		assert.FileExists(t, filepath.Join(root, "nodes", "example.py"))
	})

	t.Run("scaffolded nodes are discoverable", func(t *testing.T) {
		root, err := Create("demo", t.TempDir())
		require.NoError(t, err)

		reg := registry.New()
		require.NoError(t, reg.Discover(context.Background(), root))
		_, ok := reg.Get("example.get_data")
		assert.True(t, ok)
		_, ok = reg.Get("example.process_data")
		assert.True(t, ok)
	})

	t.Run("refuses an existing path", func(t *testing.T) {
		location := t.TempDir()
		_, err := Create("demo", location)
		require.NoError(t, err)
		_, err = Create("demo", location)
		assert.ErrorContains(t, err, "already exists")
	})
}

func TestValidate(t *testing.T) {
	t.Run("missing layout fails", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "nodes"), 0o755))
		assert.False(t, Validate(root))
	})

	t.Run("layout without required keys fails", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "nodes"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".layout.json"), []byte(`{"version": "1.0"}`), 0o644))
		assert.False(t, Validate(root))
	})

	t.Run("nonexistent path fails", func(t *testing.T) {
		assert.False(t, Validate(filepath.Join(t.TempDir(), "nope")))
	})
}
