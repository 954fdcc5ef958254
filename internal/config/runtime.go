package config

import (
	"os"
	"path/filepath"
	"strings"
)

// RuntimeMode represents the execution environment
type RuntimeMode string

const (
	// DockerMode indicates running inside a container image
	DockerMode RuntimeMode = "docker"
	// NativeMode indicates running on the host system
	NativeMode RuntimeMode = "native"
)

// RuntimeConfig holds the directories the service writes to
type RuntimeConfig struct {
	Mode      RuntimeMode
	ConfigDir string // config.yml lives here
	DataDir   string // SQLite database and settings file
}

// DetectRuntime determines the current runtime environment and returns the
// matching directory layout. Nothing is created on disk.
func DetectRuntime() *RuntimeConfig {
	mode := detectMode()
	if mode == DockerMode {
		return &RuntimeConfig{
			Mode:      DockerMode,
			ConfigDir: "/etc/aura",
			DataDir:   "/data",
		}
	}
	return &RuntimeConfig{
		Mode:      NativeMode,
		ConfigDir: filepath.Join(xdgConfigHome(), "aura"),
		DataDir:   filepath.Join(xdgDataHome(), "aura"),
	}
}

// detectMode determines if we're running in Docker or natively
func detectMode() RuntimeMode {
	if os.Getenv("AURA_CONTAINER") == "true" {
		return DockerMode
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return DockerMode
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		if strings.Contains(string(data), "docker") || strings.Contains(string(data), "containerd") {
			return DockerMode
		}
	}
	return NativeMode
}

// DBPath is the default SQLite location
func (rc *RuntimeConfig) DBPath() string {
	return filepath.Join(rc.DataDir, "aura.db")
}

// SettingsPath is the default workstation settings file
func (rc *RuntimeConfig) SettingsPath() string {
	return filepath.Join(rc.DataDir, "settings.json")
}

// ConfigPath is the default YAML config location
func (rc *RuntimeConfig) ConfigPath() string {
	return filepath.Join(rc.ConfigDir, "config.yml")
}

func xdgConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

func xdgDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}
