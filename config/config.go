package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	LibraryDir       string `mapstructure:"LIBRARY_DIR"`
	BackupDir        string `mapstructure:"BACKUP_DIR"`
	TargetDir        string `mapstructure:"TARGET_DIR"`
	TrashDir         string `mapstructure:"TRASH_DIR"`
	CompressionLevel int    `mapstructure:"-"` // parsed by hand, 0 is a valid value
	DevMode          bool   `mapstructure:"DEV_MODE"`
	SortMode         string `mapstructure:"SORT_MODE"`
	LogFile          string `mapstructure:"LOG_FILE"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	DatabasePath     string `mapstructure:"-"` // Not from env, derived
}

const (
	DefaultCompressionLevel = 6
	DefaultLogFile          = "mod-deployer.log"
	DefaultLogLevel         = "info"
	DefaultSortMode         = "status"
)

var envKeys = []string{
	"LIBRARY_DIR",
	"BACKUP_DIR",
	"TARGET_DIR",
	"TRASH_DIR",
	"BACKUP_COMPRESSION_LEVEL",
	"DEV_MODE",
	"SORT_MODE",
	"LOG_FILE",
	"LOG_LEVEL",
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vip_err := viper.ReadInConfig()
	if _, ok := vip_err.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vip_err != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vip_err)
	}

	// Viper will check for an environment variable matching the key name (e.g., TARGET_DIR)
	viper.AutomaticEnv()
	for _, key := range envKeys {
		if err := viper.BindEnv(strings.ToLower(key), key); err != nil {
			slog.Warn("Unable to bind env var", "key", key, "error", err)
		}
	}

	vip_err = viper.Unmarshal(&config)
	if vip_err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vip_err)
	}

	processConfigDefaults(&config)
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// processConfigDefaults fills every optional setting left empty.
func processConfigDefaults(config *Config) {
	// An unset level must not read as 0 (store), so the raw string is checked.
	config.CompressionLevel = DefaultCompressionLevel
	if raw := viper.GetString("BACKUP_COMPRESSION_LEVEL"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level > 9 {
			slog.Warn("Invalid BACKUP_COMPRESSION_LEVEL, using default", "value", raw, "default", DefaultCompressionLevel)
		} else {
			config.CompressionLevel = level
		}
	}

	if config.SortMode == "" {
		config.SortMode = DefaultSortMode
	}
	if config.LogFile == "" {
		config.LogFile = DefaultLogFile
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if config.LibraryDir == "" && config.TargetDir != "" {
		config.LibraryDir = filepath.Join(filepath.Dir(filepath.Clean(config.TargetDir)), "library")
		slog.Info("LIBRARY_DIR not set, using default", "path", config.LibraryDir)
	}
	if config.BackupDir == "" && config.TargetDir != "" {
		config.BackupDir = filepath.Join(filepath.Dir(filepath.Clean(config.TargetDir)), "backups")
		slog.Info("BACKUP_DIR not set, using default", "path", config.BackupDir)
	}
	if config.TrashDir == "" && config.BackupDir != "" {
		config.TrashDir = filepath.Join(config.BackupDir, ".trash")
	}
}

// validateAndEnsureDirectories checks required settings and creates the
// working directories when they do not exist yet.
func validateAndEnsureDirectories(config *Config) error {
	if config.TargetDir == "" {
		slog.Error("TARGET_DIR is not set")
		return fmt.Errorf("TARGET_DIR is required")
	}
	if config.LibraryDir == "" || config.BackupDir == "" {
		return fmt.Errorf("LIBRARY_DIR and BACKUP_DIR are required")
	}

	for _, dir := range []string{config.TargetDir, config.LibraryDir, config.BackupDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			slog.Info("Directory does not exist, creating it", "path", dir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				slog.Error("Failed to create directory", "path", dir, "error", err)
				return err
			}
		} else if err != nil {
			slog.Error("Failed to check directory", "path", dir, "error", err)
			return err
		}
	}

	// The journal lives next to the backups it describes
	config.DatabasePath = filepath.Join(config.BackupDir, "journal.db")
	return nil
}
