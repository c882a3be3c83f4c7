package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the per-project config file name, searched
	// for upward from the working directory.
	ProjectConfigFile = "draftforge.yaml"

	// UserConfigDir and UserConfigFile locate the user-level config
	// under the home directory.
	UserConfigDir  = ".config/draftforge"
	UserConfigFile = "config.yaml"
)

// Loader assembles the effective config from its layers.
type Loader struct {
	logger *slog.Logger
}

// NewLoader returns a loader. A nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds the config by layering, later layers winning:
// defaults, then the user config, then the nearest project config, then
// an explicitly named file. Only the explicit file is required to load.
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	l.overlay(config, l.userConfigPath(), "user")

	if projectPath := l.findProjectConfig(); projectPath != "" {
		l.overlay(config, projectPath, "project")
	} else {
		l.logger.Debug("No project config found")
	}

	if explicitPath != "" {
		explicit, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", explicitPath, err)
		}
		l.logger.Debug("Loaded config layer", "layer", "explicit", "path", explicitPath)
		config.Merge(explicit)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// overlay merges the file at path into cfg when it loads. A missing
// file is normal for optional layers; any other failure logs a warning.
func (l *Loader) overlay(cfg *Config, path, layer string) {
	if path == "" {
		return
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Failed to load config layer", "layer", layer, "path", path, "error", err)
		}
		return
	}
	l.logger.Debug("Loaded config layer", "layer", layer, "path", path)
	cfg.Merge(loaded)
}

// EnsureUserConfig writes a default user config file unless one exists.
func (l *Loader) EnsureUserConfig() error {
	path := l.userConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	l.logger.Info("Created default user config", "path", path)
	return nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig walks from the working directory toward the
// filesystem root looking for the project config file.
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for dir := cwd; ; {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
