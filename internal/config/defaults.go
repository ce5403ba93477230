package config

import "time"

// Default value constants.
const (
	DefaultSessionHost  = "auto"
	DefaultMaxVisible   = 3
	DefaultPollInterval = 500 * time.Millisecond
	DefaultNamePrefix   = "qpc"
	DefaultShell        = "sh"

	DefaultStoreBackend = "file"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// NewDefaultConfig returns a Config with all fields set to compiled defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Host:         DefaultSessionHost,
			MaxVisible:   DefaultMaxVisible,
			PollInterval: DefaultPollInterval,
			NamePrefix:   DefaultNamePrefix,
			Shell:        DefaultShell,
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Watch:   true,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Headless: map[string]string{},
	}
}

// defaultKeys flattens the defaults into viper keys. Registering every key
// lets AutomaticEnv override it.
func defaultKeys() map[string]any {
	d := NewDefaultConfig()
	return map[string]any{
		"workspace.dir":              d.Workspace.Dir,
		"session.host":               d.Session.Host,
		"session.max_visible":        d.Session.MaxVisible,
		"session.poll_interval":      d.Session.PollInterval,
		"session.name_prefix":        d.Session.NamePrefix,
		"session.shell":              d.Session.Shell,
		"store.backend":              d.Store.Backend,
		"store.path":                 d.Store.Path,
		"store.watch":                d.Store.Watch,
		"provision.check_child_exit": d.Provision.CheckChildExit,
		"log.level":                  d.Log.Level,
		"log.format":                 d.Log.Format,
		"ui.no_color":                d.UI.NoColor,
		"ui.non_interactive":         d.UI.NonInteractive,
	}
}
