package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file into DefaultConfig's starting
// point, so unset fields retain their defaults. Unknown keys are treated as
// fatal errors.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", slog.String("path", path))

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("config: unknown key(s) in %s: %s", path, strings.Join(keys, ", "))
	}

	logger.Debug("config file parsed successfully", slog.String("path", path))

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns DefaultConfig.
// Environment variables and CLI flags can then supply the workspace path
// and hub URL, but not hub credentials, so Resolve without a config file
// fails validation.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", slog.String("path", path))

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// CLIOverrides holds config values sourced from command-line flags, the
// highest-priority layer of the override chain.
type CLIOverrides struct {
	ConfigPath string
	Workspace  string
	HubURL     string
}

// ResolveConfigPath determines the config file path using the three-layer
// priority: CLI flag > environment variable > platform default.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) string {
	path := DefaultConfigPath()
	source := "default"

	if env.ConfigPath != "" {
		path = env.ConfigPath
		source = "env"
	}

	if cli.ConfigPath != "" {
		path = cli.ConfigPath
		source = "cli"
	}

	logger.Debug("config path resolved", slog.String("path", path), slog.String("source", source))

	return path
}

// Resolve loads the config file (if any) and applies the remaining layers
// of the override chain: environment variables, then CLI flags. It fills
// Sync.DatabasePath with the platform default when left unset, and
// validates the final result.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Config, error) {
	path := ResolveConfigPath(env, cli, logger)

	cfg, err := LoadOrDefault(path, logger)
	if err != nil {
		return nil, fmt.Errorf("config: loading: %w", err)
	}

	if env.Workspace != "" {
		cfg.Workspace.Path = env.Workspace
	}

	if env.HubURL != "" {
		cfg.Hub.BaseURL = env.HubURL
	}

	if cli.Workspace != "" {
		cfg.Workspace.Path = cli.Workspace
	}

	if cli.HubURL != "" {
		cfg.Hub.BaseURL = cli.HubURL
	}

	if cfg.Sync.DatabasePath == "" {
		cfg.Sync.DatabasePath = DefaultDatabasePath()
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}
