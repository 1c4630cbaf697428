package config

import (
	"fmt"
	"time"
)

// Validate checks that cfg is internally consistent and usable to start the
// engine: a workspace path, a hub base URL with credentials (an API key or
// a complete client-credentials triple), and parseable durations. The hub
// itself is not contacted.
func Validate(cfg *Config) error {
	if cfg.Workspace.Path == "" {
		return fmt.Errorf("config: workspace.path is required")
	}

	if cfg.Hub.BaseURL == "" {
		return fmt.Errorf("config: hub.base_url is required")
	}

	hasAPIKey := cfg.Hub.APIKey != ""
	hasClientCredentials := cfg.Hub.ClientID != "" && cfg.Hub.ClientSecret != "" && cfg.Hub.TokenURL != ""

	if !hasAPIKey && !hasClientCredentials {
		return fmt.Errorf("config: hub.api_key, or hub.client_id/client_secret/token_url, is required")
	}

	if _, err := time.ParseDuration(cfg.Sync.PollInterval); err != nil {
		return fmt.Errorf("config: sync.poll_interval %q: %w", cfg.Sync.PollInterval, err)
	}

	if _, err := time.ParseDuration(cfg.Sync.ShutdownTimeout); err != nil {
		return fmt.Errorf("config: sync.shutdown_timeout %q: %w", cfg.Sync.ShutdownTimeout, err)
	}

	return nil
}
