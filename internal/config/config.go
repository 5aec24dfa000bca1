// Package config loads sqlbatch settings from defaults, YAML files and the
// environment.
//
// Resolution order, later wins: built-in defaults, the global config file
// ($SQLBATCH_HOME/config.yaml, default ~/.sqlbatch/config.yaml, or the
// --config path), the nearest project file (.sqlbatch.yaml), environment
// variables, then command-line flags applied by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rshade/sqlbatch/internal/logging"
	"github.com/rshade/sqlbatch/internal/rewrite"
)

// Defaults for a fresh configuration.
const (
	DefaultInput     = "wilayah_indonesia_pg.sql"
	DefaultLogLevel  = "info"
	DefaultLogFormat = logging.FormatConsole
	configFileName   = "config.yaml"
)

// Environment variables read by ApplyEnv.
const (
	EnvHome        = "SQLBATCH_HOME"
	EnvBatchSize   = "SQLBATCH_BATCH_SIZE"
	EnvLogLevel    = "SQLBATCH_LOG_LEVEL"
	EnvLogFormat   = "SQLBATCH_LOG_FORMAT"
	EnvLogFile     = "SQLBATCH_LOG_FILE"
	EnvDatabaseURL = "DATABASE_URL"
)

// Validation errors.
var (
	ErrInvalidBatchSize = errors.New("rewrite.batch_size must be at least 1")
	ErrInvalidLogLevel  = errors.New("invalid logging.level")
	ErrInvalidLogFormat = errors.New("invalid logging.format")
)

// Config is the complete sqlbatch configuration.
type Config struct {
	Rewrite RewriteConfig `yaml:"rewrite"`
	Apply   ApplyConfig   `yaml:"apply"`
	Logging LoggingConfig `yaml:"logging"`

	configPath string
}

// RewriteConfig controls the batch rewriter.
type RewriteConfig struct {
	// BatchSize is the maximum number of rows per emitted INSERT statement.
	BatchSize int `yaml:"batch_size"`
	// Input is the dump read when no input argument is given.
	Input string `yaml:"input"`
	// Output is the file written; empty means "<input stem>_batched.sql".
	Output string `yaml:"output,omitempty"`
	// Verify re-reads the output and compares row fingerprints.
	Verify bool `yaml:"verify"`
}

// ApplyConfig controls the apply command.
type ApplyConfig struct {
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return &Config{
		Rewrite: RewriteConfig{
			BatchSize: rewrite.DefaultBatchSize,
			Input:     DefaultInput,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// New returns the defaults overlaid with the global config file, if one
// exists, and the environment. Errors reading the file leave the defaults in place.
func New() *Config {
	cfg := Default()
	if path, err := DefaultConfigPath(); err == nil {
		cfg.configPath = path
		_ = cfg.loadFile(path)
	}
	_ = cfg.ApplyEnv()
	return cfg
}

// Load builds a configuration from the file at path. A missing file is not
// an error; a malformed one is. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.configPath = path
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SQLBATCH_* variables and DATABASE_URL.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvBatchSize, v, err)
		}
		c.Rewrite.BatchSize = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Apply.DatabaseURL = v
	}
	return nil
}

// Validate checks the configuration for values the tool cannot run with.
func (c *Config) Validate() error {
	if c.Rewrite.BatchSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.Rewrite.BatchSize)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logging.FormatJSON, logging.FormatConsole, logging.FormatText:
	default:
		return fmt.Errorf("%w: %q (want json, console or text)", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}

// ConfigPath returns the file this configuration was loaded from or will be saved to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath sets the file Save writes to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration as YAML to ConfigPath, creating its directory.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// DefaultOutputPath derives the output file name from an input path:
// "dump.sql" becomes "dump_batched.sql" in the same directory.
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_batched" + ext
}
