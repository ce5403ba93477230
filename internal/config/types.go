package config

import "time"

// Config is the root configuration.
type Config struct {
	Workspace WorkspaceConfig   `mapstructure:"workspace" yaml:"workspace"`
	Session   SessionConfig     `mapstructure:"session" yaml:"session"`
	Store     StoreConfig       `mapstructure:"store" yaml:"store"`
	Provision ProvisionConfig   `mapstructure:"provision" yaml:"provision"`
	Log       LogConfig         `mapstructure:"log" yaml:"log"`
	UI        UIConfig          `mapstructure:"ui" yaml:"ui"`
	Headless  map[string]string `mapstructure:"headless" yaml:"headless"`
}

// WorkspaceConfig selects where new projects are created.
type WorkspaceConfig struct {
	// Dir is the workspace folder. Empty means the working directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SessionConfig configures the command session host.
type SessionConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	MaxVisible   int           `mapstructure:"max_visible" yaml:"max_visible"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	NamePrefix   string        `mapstructure:"name_prefix" yaml:"name_prefix"`
	Shell        string        `mapstructure:"shell" yaml:"shell"`
}

// StoreConfig configures template persistence.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the store file. Empty means the XDG data directory.
	Path  string `mapstructure:"path" yaml:"path"`
	Watch bool   `mapstructure:"watch" yaml:"watch"`
}

// ProvisionConfig configures the provisioner.
type ProvisionConfig struct {
	CheckChildExit bool `mapstructure:"check_child_exit" yaml:"check_child_exit"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// UIConfig configures terminal output.
type UIConfig struct {
	NoColor        bool `mapstructure:"no_color" yaml:"no_color"`
	NonInteractive bool `mapstructure:"non_interactive" yaml:"non_interactive"`
}
