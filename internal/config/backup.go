package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// MaxBackups is the number of timestamped config backups to retain.
const MaxBackups = 3

// BackupUserConfig creates a timestamped backup of the user configuration
// file and returns the backup path. If no user config exists, it returns
// an empty path and no error.
func BackupUserConfig() (string, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return "", nil // Nothing to back up
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s.bak.%s", configPath, timestamp)

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config backup: %w", err)
	}

	// Backup succeeded; pruning failures are non-fatal
	_ = cleanupOldBackups(configPath)

	return backupPath, nil
}

// ListUserConfigBackups returns backup paths for the user configuration,
// newest first.
func ListUserConfigBackups() ([]string, error) {
	configPath := GetUserConfigPath()

	matches, err := filepath.Glob(configPath + ".bak.*")
	if err != nil {
		return nil, fmt.Errorf("failed to list config backups: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		iInfo, iErr := os.Stat(matches[i])
		jInfo, jErr := os.Stat(matches[j])
		if iErr != nil || jErr != nil {
			return matches[i] > matches[j]
		}
		return iInfo.ModTime().After(jInfo.ModTime())
	})

	return matches, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, oldest first.
func cleanupOldBackups(configPath string) error {
	matches, err := filepath.Glob(configPath + ".bak.*")
	if err != nil {
		return err
	}

	if len(matches) <= MaxBackups {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		iInfo, iErr := os.Stat(matches[i])
		jInfo, jErr := os.Stat(matches[j])
		if iErr != nil || jErr != nil {
			return matches[i] < matches[j]
		}
		return iInfo.ModTime().Before(jInfo.ModTime())
	})

	for _, path := range matches[:len(matches)-MaxBackups] {
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	return nil
}

// RestoreUserConfig restores the user configuration from a backup file.
// The current config (if any) is backed up first.
func RestoreUserConfig(backupPath string) error {
	if !fileExists(backupPath) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if _, err := BackupUserConfig(); err != nil {
		return fmt.Errorf("failed to back up current config before restore: %w", err)
	}

	configPath := GetUserConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to restore config: %w", err)
	}

	return nil
}
