package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUserConfig(t *testing.T, content string) string {
	t.Helper()
	path := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBackupUserConfig_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackupUserConfig_CreatesTimestampedCopy(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	writeUserConfig(t, "version: 1\n")

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)
	assert.Contains(t, filepath.Base(backupPath), "config.yaml.bak.")

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestBackupUserConfig_PrunesOldBackups(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configPath := writeUserConfig(t, "version: 1\n")

	// Given more backups than the retention limit, with distinct mtimes
	base := time.Now().Add(-time.Hour)
	for i := 0; i < MaxBackups+2; i++ {
		path := configPath + ".bak.2026010" + string(rune('1'+i)) + "-000000"
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
		require.NoError(t, os.Chtimes(path, base, base.Add(time.Duration(i)*time.Minute)))
	}

	// When creating a fresh backup
	_, err := BackupUserConfig()
	require.NoError(t, err)

	// Then only MaxBackups remain
	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}

func TestListUserConfigBackups_NewestFirst(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configPath := writeUserConfig(t, "version: 1\n")

	old := configPath + ".bak.20260101-000000"
	recent := configPath + ".bak.20260201-000000"
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("recent"), 0o644))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, recent, backups[0])
	assert.Equal(t, old, backups[1])
}

func TestRestoreUserConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	configPath := writeUserConfig(t, "version: 1\n")

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)

	// Overwrite the live config, then restore from the backup
	require.NoError(t, os.WriteFile(configPath, []byte("version: 2\n"), 0o644))
	require.NoError(t, RestoreUserConfig(backupPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestRestoreUserConfig_MissingBackup(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	err := RestoreUserConfig("/nonexistent/backup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
