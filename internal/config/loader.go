package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. QPC_SESSION_HOST.
const EnvPrefix = "QPC"

// LoadOptions controls Load.
type LoadOptions struct {
	// File is the config file. Explicit files must exist.
	File string
	// Explicit marks File as user supplied (--config).
	Explicit bool
	// Fs is the filesystem the file is read from. Defaults to the OS.
	Fs afero.Fs
	// Overrides are applied last, e.g. bound command-line flags.
	Overrides map[string]any
}

// Load merges compiled defaults, the config file, QPC_* environment
// variables and overrides, in increasing priority, then validates.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}
	for key, value := range defaultKeys() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			switch {
			case errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist):
				if opts.Explicit {
					return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, opts.File)
				}
			default:
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidYAML, opts.File, err)
			}
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Headless == nil {
		cfg.Headless = map[string]string{}
	}

	cfg.Workspace.Dir = expandPath(cfg.Workspace.Dir)
	cfg.Store.Path = expandPath(cfg.Store.Path)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPath expands a leading ~ and set environment variables. Unset
// variables are left in place for validation to report.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return os.Expand(p, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}
