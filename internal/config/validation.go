package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Dynamic token patterns that must not survive expansion.
var dynamicTokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\{[^}]+\}`),   // ${VAR}
	regexp.MustCompile(`\{\{[^}]+\}\}`), // {{VAR}}
}

var (
	validHosts      = []string{"auto", "tmux", "exec"}
	validBackends   = []string{"file", "sqlite"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks the configuration for correctness.
func Validate(cfg *Config) error {
	var errs []ValidationError

	errs = append(errs, checkOneOf("session.host", cfg.Session.Host, validHosts)...)
	errs = append(errs, checkOneOf("store.backend", cfg.Store.Backend, validBackends)...)
	errs = append(errs, checkOneOf("log.level", strings.ToLower(cfg.Log.Level), validLogLevels)...)
	errs = append(errs, checkOneOf("log.format", cfg.Log.Format, validLogFormats)...)

	if cfg.Session.MaxVisible < 1 {
		errs = append(errs, ValidationError{
			Field:   "session.max_visible",
			Message: "must be at least 1",
			Value:   cfg.Session.MaxVisible,
			Wrapped: ErrInvalidConfig,
		})
	}
	if cfg.Session.PollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "session.poll_interval",
			Message: "must be positive",
			Value:   cfg.Session.PollInterval,
			Wrapped: ErrInvalidConfig,
		})
	}

	errs = append(errs, checkStringField("workspace.dir", cfg.Workspace.Dir)...)
	errs = append(errs, checkStringField("store.path", cfg.Store.Path)...)

	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func checkOneOf(field, value string, valid []string) []ValidationError {
	if slices.Contains(valid, value) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
		Value:   value,
		Wrapped: ErrInvalidConfig,
	}}
}

// checkStringField checks a single string field for dynamic token patterns.
func checkStringField(field, value string) []ValidationError {
	if value == "" {
		return nil
	}
	for _, pattern := range dynamicTokenPatterns {
		if match := pattern.FindString(value); match != "" {
			return []ValidationError{
				{
					Field:   field,
					Message: fmt.Sprintf("contains unexpanded dynamic token: %s", match),
					Value:   value,
					Wrapped: ErrDynamicToken,
				},
			}
		}
	}
	return nil
}
