package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runtimeIsNotLinux() bool {
	return runtime.GOOS != platformLinux
}

func TestDefaultConfigDir_RespectsXDGConfigHome(t *testing.T) {
	if runtimeIsNotLinux() {
		t.Skip("XDG paths only apply on linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg/config")

	assert.Equal(t, filepath.Join("/custom/xdg/config", appName), DefaultConfigDir())
}

func TestDefaultConfigDir_FallsBackToHomeConfig(t *testing.T) {
	if runtimeIsNotLinux() {
		t.Skip("XDG paths only apply on linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")

	assert.Equal(t, filepath.Join("/home/testuser", ".config", appName), DefaultConfigDir())
}

func TestDefaultDataDir_RespectsXDGDataHome(t *testing.T) {
	if runtimeIsNotLinux() {
		t.Skip("XDG paths only apply on linux")
	}

	t.Setenv("XDG_DATA_HOME", "/custom/xdg/data")

	assert.Equal(t, filepath.Join("/custom/xdg/data", appName), DefaultDataDir())
}

func TestDefaultDataDir_FallsBackToHomeLocalShare(t *testing.T) {
	if runtimeIsNotLinux() {
		t.Skip("XDG paths only apply on linux")
	}

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/testuser")

	assert.Equal(t, filepath.Join("/home/testuser", ".local", "share", appName), DefaultDataDir())
}

func TestDefaultConfigPath_JoinsDirAndFileName(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")
	t.Setenv("XDG_CONFIG_HOME", "")

	assert.Equal(t, filepath.Join(DefaultConfigDir(), "config.toml"), DefaultConfigPath())
}

func TestDefaultDatabasePath_JoinsDataDirAndFileName(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")
	t.Setenv("XDG_DATA_HOME", "")

	assert.Equal(t, filepath.Join(DefaultDataDir(), "index.db"), DefaultDatabasePath())
}

func TestDefaultPidFilePath_JoinsDataDirAndFileName(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")
	t.Setenv("XDG_DATA_HOME", "")

	assert.Equal(t, filepath.Join(DefaultDataDir(), "trsync.pid"), DefaultPidFilePath())
}
