// Package config loads and resolves trsync's configuration through the
// same four-layer override chain the teacher uses: built-in defaults, a
// TOML config file, environment variables, then CLI flags, each layer
// overriding only the fields it sets.
package config

// Config is the fully-typed shape of a trsync config file.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Hub       HubConfig       `toml:"hub"`
	Sync      SyncConfig      `toml:"sync"`
	Logging   LoggingConfig   `toml:"logging"`
}

// WorkspaceConfig identifies the local directory kept in sync with the hub.
type WorkspaceConfig struct {
	Path string `toml:"path"`
}

// HubConfig describes how to reach and authenticate against the remote hub.
// Exactly one of APIKey or the OAuth2 client-credentials fields should be
// set; Validate rejects configs that set neither.
type HubConfig struct {
	BaseURL      string   `toml:"base_url"`
	APIKey       string   `toml:"api_key"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// SyncConfig controls the reconciliation engine's runtime behavior.
type SyncConfig struct {
	DatabasePath    string `toml:"database_path"`
	PollInterval    string `toml:"poll_interval"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// LoggingConfig controls the slog handler built at startup. Level sets the
// handler's level; Format is accepted in the file but not read when the
// handler is built (output is always text).
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}
