// Package paths resolves the qpc configuration and data directories
// following XDG conventions.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "qpc"

// Dirs holds the resolved directory paths for qpc config and data.
type Dirs struct {
	ConfigDir string
	DataDir   string
}

// Env is the interface for environment variable lookups.
// Implementations must return "" for unset variables.
type Env interface {
	Get(key string) string
}

// OSEnv reads the process environment.
type OSEnv struct{}

// Get implements Env.
func (OSEnv) Get(key string) string { return os.Getenv(key) }

// ResolveDirs computes the config and data directories.
//
// Resolution order for the config directory:
//  1. QPC_CONFIG_DIR
//  2. XDG_CONFIG_HOME/qpc
//  3. ~/.config/qpc
//
// Resolution order for the data directory:
//  1. QPC_DATA_DIR
//  2. XDG_DATA_HOME/qpc
//  3. ~/.local/share/qpc
//
// Nothing is created on disk.
func ResolveDirs(env Env, homeDir string) Dirs {
	return Dirs{
		ConfigDir: resolve(env, "QPC_CONFIG_DIR", "XDG_CONFIG_HOME", filepath.Join(homeDir, ".config")),
		DataDir:   resolve(env, "QPC_DATA_DIR", "XDG_DATA_HOME", filepath.Join(homeDir, ".local", "share")),
	}
}

func resolve(env Env, override, xdg, fallback string) string {
	if v := env.Get(override); v != "" {
		return v
	}
	if v := env.Get(xdg); v != "" {
		return filepath.Join(v, appName)
	}
	return filepath.Join(fallback, appName)
}

// Default resolves the directories for the current user. When the home
// directory is unknown the working directory stands in for it.
func Default() Dirs {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return ResolveDirs(OSEnv{}, home)
}

// ConfigFile is the default config file path.
func (d Dirs) ConfigFile() string {
	return filepath.Join(d.ConfigDir, "config.yaml")
}

// StoreFile is the default template store path for the given backend.
func (d Dirs) StoreFile(backend string) string {
	if backend == "sqlite" {
		return filepath.Join(d.DataDir, "templates.db")
	}
	return filepath.Join(d.DataDir, "templates.yaml")
}
