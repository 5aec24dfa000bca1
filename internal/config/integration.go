package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

//nolint:gochecknoglobals // Singleton configuration shared by the CLI commands.
var (
	globalConfig     *Config
	globalConfigMu   sync.RWMutex
	globalConfigInit bool
)

// InitGlobalConfig initializes the global configuration from New, once.
func InitGlobalConfig() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	if globalConfigInit {
		return
	}

	globalConfig = New()
	globalConfigInit = true
}

// SetGlobalConfig replaces the global configuration.
func SetGlobalConfig(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	globalConfig = cfg
	globalConfigInit = cfg != nil
}

// ResetGlobalConfigForTest resets the global config for testing purposes.
func ResetGlobalConfigForTest() {
	SetGlobalConfig(nil)
}

// GetGlobalConfig returns the global configuration, initializing it if needed.
func GetGlobalConfig() *Config {
	InitGlobalConfig()

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// GetBatchSize returns the configured rows per statement.
func GetBatchSize() int {
	return GetGlobalConfig().Rewrite.BatchSize
}

// GetConfigDir returns the sqlbatch configuration directory: $SQLBATCH_HOME,
// or ~/.sqlbatch.
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".sqlbatch"), nil
}

// DefaultConfigPath returns the global config file path.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// EnsureConfigDir ensures the configuration directory exists.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}
