package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rshade/sqlbatch/internal/logging"
)

// ProjectFileName is the per-directory config overlay.
const ProjectFileName = ".sqlbatch.yaml"

// ResolveProjectFile returns the nearest .sqlbatch.yaml at or above startDir,
// or "" when there is none.
func ResolveProjectFile(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadForCLI loads the configuration the CLI runs with: the global file
// (configPath, or the default location when empty), the project overlay
// found from startDir, and the environment.
//
// An explicit configPath that does not exist is an error; a missing default
// file is not. A broken project overlay is logged and skipped. The merged
// result is validated before it is returned.
func LoadForCLI(ctx context.Context, configPath, startDir string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		path, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = path
	} else if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %s does not exist", configPath)
	}

	cfg := Default()
	cfg.configPath = configPath
	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}

	if overlay := ResolveProjectFile(startDir); overlay != "" {
		if err := ShallowMergeYAML(cfg, overlay); err != nil {
			logger := logging.FromContext(ctx)
			logger.Warn().
				Str("component", "config").
				Str("operation", "merge_project_config").
				Err(err).
				Str("overlay_path", overlay).
				Msg("failed to merge project config, using global settings")
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
