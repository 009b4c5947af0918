package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add handover variance", "add_handover_variance"},
		{"Add-Cash-Floats", "add_cash_floats"},
		{"CASH__TRANSACTIONS", "cash_transactions"},
		{"limits v2", "limits_v2"},
		{"   spaces   ", "spaces"},
		{"drop!@#$index", "dropindex"},
		{"_leading", "leading"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("first migration in an empty directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		mf, err := CreateMigration(dir, "cash floats", "Create cash_floats")
		require.NoError(t, err)

		assert.Equal(t, uint(1), mf.Version)
		assert.Equal(t, filepath.Join(dir, "000001_cash_floats.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000001_cash_floats.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- cash_floats")
		assert.Contains(t, string(up), "Create cash_floats")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "(rollback)")
	})

	t.Run("numbers after the highest existing version", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000001_cash_custody.up.sql", "000001_cash_custody.down.sql",
			"000007_outbox_events.up.sql", "000007_outbox_events.down.sql",
		)

		mf, err := CreateMigration(dir, "Add variance index", "")
		require.NoError(t, err)
		assert.Equal(t, uint(8), mf.Version)
		assert.Equal(t, "000008_add_variance_index.up.sql", filepath.Base(mf.UpPath))
	})

	t.Run("unusable name", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		assert.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("ordered by version", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir,
			"000002_outbox_events.up.sql", "000002_outbox_events.down.sql",
			"000001_cash_custody.up.sql", "000001_cash_custody.down.sql",
			"000010_action_log_device.up.sql",
		)

		list, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, list, 3)

		assert.Equal(t, "000001_cash_custody", list[0].String())
		assert.Equal(t, "000002_outbox_events", list[1].String())
		assert.Equal(t, uint(10), list[2].Version)
		assert.False(t, list[2].HasDown)
		assert.Equal(t, "000010_action_log_device (no down)", list[2].String())
	})

	t.Run("ignores unrelated files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, "000001_init.up.sql", "000001_init.down.sql", "README.md", ".gitkeep", "embed.go")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000002_dir.up.sql"), 0o755))

		list, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "init", list[0].Name)
	})

	t.Run("missing directory", func(t *testing.T) {
		list, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	list, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, info := range list {
		assert.Equal(t, uint(i+1), info.Version, "versions are contiguous")
		assert.True(t, info.HasDown, "%s has a down migration", info)
	}
}
