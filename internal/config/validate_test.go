package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Workspace.Path = "/home/user/workspace"
	cfg.Hub.BaseURL = "https://hub.example.com"
	cfg.Hub.APIKey = "secret-key"

	return cfg
}

func TestValidate_Success(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_MissingWorkspacePath(t *testing.T) {
	cfg := validConfig()
	cfg.Workspace.Path = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace.path")
}

func TestValidate_MissingHubBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.BaseURL = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hub.base_url")
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.APIKey = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidate_ClientCredentialsSatisfyAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.APIKey = ""
	cfg.Hub.ClientID = "client"
	cfg.Hub.ClientSecret = "secret"
	cfg.Hub.TokenURL = "https://hub.example.com/token"

	require.NoError(t, Validate(cfg))
}

func TestValidate_PartialClientCredentialsFails(t *testing.T) {
	cfg := validConfig()
	cfg.Hub.APIKey = ""
	cfg.Hub.ClientID = "client"
	cfg.Hub.ClientSecret = "secret"
	// TokenURL left empty.

	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_InvalidPollInterval(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.PollInterval = "not-a-duration"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestValidate_InvalidShutdownTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Sync.ShutdownTimeout = "not-a-duration"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown_timeout")
}
