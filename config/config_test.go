package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessConfigDefaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{TargetDir: filepath.Join("games", "target")}
		processConfigDefaults(&cfg)

		assert.Equal(t, DefaultCompressionLevel, cfg.CompressionLevel)
		assert.Equal(t, "status", cfg.SortMode)
		assert.Equal(t, "mod-deployer.log", cfg.LogFile)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, filepath.Join("games", "library"), cfg.LibraryDir)
		assert.Equal(t, filepath.Join("games", "backups"), cfg.BackupDir)
		assert.Equal(t, filepath.Join("games", "backups", ".trash"), cfg.TrashDir)
	})

	t.Run("respects existing values", func(t *testing.T) {
		viper.Reset()
		viper.Set("BACKUP_COMPRESSION_LEVEL", "0")
		cfg := Config{
			LibraryDir: "lib",
			BackupDir:  "bak",
			TrashDir:   "trash",
			SortMode:   "name",
			LogLevel:   "debug",
		}
		processConfigDefaults(&cfg)

		assert.Equal(t, 0, cfg.CompressionLevel, "0 stores without compression")
		assert.Equal(t, "lib", cfg.LibraryDir)
		assert.Equal(t, "bak", cfg.BackupDir)
		assert.Equal(t, "trash", cfg.TrashDir)
		assert.Equal(t, "name", cfg.SortMode)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("negative level selects directory backups", func(t *testing.T) {
		viper.Reset()
		viper.Set("BACKUP_COMPRESSION_LEVEL", "-1")
		cfg := Config{}
		processConfigDefaults(&cfg)
		assert.Equal(t, -1, cfg.CompressionLevel)
	})

	t.Run("invalid level falls back", func(t *testing.T) {
		viper.Reset()
		viper.Set("BACKUP_COMPRESSION_LEVEL", "max")
		cfg := Config{}
		processConfigDefaults(&cfg)
		assert.Equal(t, DefaultCompressionLevel, cfg.CompressionLevel)
	})
}

func TestValidateAndEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing target dir", func(t *testing.T) {
		cfg := Config{TargetDir: ""}
		err := validateAndEnsureDirectories(&cfg)
		assert.Error(t, err)
	})

	t.Run("creates directories", func(t *testing.T) {
		cfg := Config{
			TargetDir:  filepath.Join(tmpDir, "target"),
			LibraryDir: filepath.Join(tmpDir, "library"),
			BackupDir:  filepath.Join(tmpDir, "backups"),
		}
		require.NoError(t, validateAndEnsureDirectories(&cfg))

		for _, dir := range []string{cfg.TargetDir, cfg.LibraryDir, cfg.BackupDir} {
			_, err := os.Stat(dir)
			assert.NoError(t, err, "directory %s was not created", dir)
		}
		assert.Equal(t, filepath.Join(tmpDir, "backups", "journal.db"), cfg.DatabasePath)
	})
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	env := "TARGET_DIR=" + filepath.Join(dir, "target") + "\n" +
		"DEV_MODE=true\n" +
		"BACKUP_COMPRESSION_LEVEL=9\n" +
		"SORT_MODE=category\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 9, cfg.CompressionLevel)
	assert.Equal(t, "category", cfg.SortMode)
	assert.Equal(t, filepath.Join(dir, "library"), cfg.LibraryDir)
	assert.DirExists(t, cfg.BackupDir)
}
