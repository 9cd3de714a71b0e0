package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))
	target := filepath.Join(root, "a", "project.toml")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0644))

	t.Run("found in parent", func(t *testing.T) {
		path, ok := FindUp(nested, "project.toml")
		require.True(t, ok)
		assert.Equal(t, target, path)
	})

	t.Run("found in start dir", func(t *testing.T) {
		path, ok := FindUp(filepath.Join(root, "a"), "project.toml")
		require.True(t, ok)
		assert.Equal(t, target, path)
	})

	t.Run("directories do not match", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(nested, "dir.toml"), 0755))
		_, ok := FindUp(nested, "dir.toml")
		assert.False(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := FindUp(nested, "nothing-here.toml")
		assert.False(t, ok)
	})
}
