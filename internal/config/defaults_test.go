package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_PopulatesSyncAndLoggingDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, defaultPollInterval, cfg.Sync.PollInterval)
	assert.Equal(t, defaultShutdownTimeout, cfg.Sync.ShutdownTimeout)
	assert.Equal(t, defaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, defaultLogFormat, cfg.Logging.Format)
}

func TestDefaultConfig_LeavesWorkspaceAndHubEmpty(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Workspace.Path)
	assert.Empty(t, cfg.Hub.BaseURL)
	assert.Empty(t, cfg.Hub.APIKey)
}

func TestDefaultConfig_ReturnsFreshInstanceEachCall(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	a.Workspace.Path = "/mutated"
	assert.Empty(t, b.Workspace.Path)
}
