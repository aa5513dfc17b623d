package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offsync/internal/domain/catalog"
)

func TestLoadCatalog(t *testing.T) {
	t.Run("default without file", func(t *testing.T) {
		c, err := LoadCatalog("")

		require.NoError(t, err)
		assert.Equal(t, catalog.Default().Names(), c.Names())
	})

	t.Run("yaml keeps file order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		content := `tables:
  - name: Organization
    composite:
      - name: settings
  - name: Project
  - name: Task
    composite:
      - name: labels
        strategy: json
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		c, err := LoadCatalog(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"Organization", "Project", "Task"}, c.Names())
		task, err := c.Lookup("Task")
		require.NoError(t, err)
		f, ok := task.CompositeField("labels")
		require.True(t, ok)
		assert.Equal(t, catalog.StrategyJSON, f.Strategy)
	})

	t.Run("duplicate table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tables:\n  - name: A\n  - name: A\n"), 0o600))

		_, err := LoadCatalog(path)

		assert.ErrorIs(t, err, catalog.ErrDuplicateTable)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.Error(t, err)
	})
}
