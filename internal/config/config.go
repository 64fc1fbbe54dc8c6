// Package config loads the sonarbind configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete sonarbind configuration.
type Config struct {
	Version     int                `json:"version" mapstructure:"version"`
	Connections []ConnectionConfig `json:"connections" mapstructure:"connections"`
	Scopes      []ScopeConfig      `json:"scopes" mapstructure:"scopes"`
	Suggestions SuggestionsConfig  `json:"suggestions" mapstructure:"suggestions"`
	Logging     LoggingConfig      `json:"logging" mapstructure:"logging"`
}

// ConnectionConfig declares one server connection.
type ConnectionConfig struct {
	ID           string `json:"id" mapstructure:"id"`
	Kind         string `json:"kind" mapstructure:"kind"` // "sonarqube" or "sonarcloud"
	URL          string `json:"url,omitempty" mapstructure:"url"`
	Organization string `json:"organization,omitempty" mapstructure:"organization"`
	Token        string `json:"token,omitempty" mapstructure:"token"`
}

// ScopeConfig declares one configuration scope and its workspace root.
type ScopeConfig struct {
	ID       string        `json:"id" mapstructure:"id"`
	ParentID string        `json:"parentId,omitempty" mapstructure:"parentId"`
	Name     string        `json:"name" mapstructure:"name"`
	Root     string        `json:"root" mapstructure:"root"`
	Bindable bool          `json:"bindable" mapstructure:"bindable"`
	Binding  BindingConfig `json:"binding" mapstructure:"binding"`
}

// BindingConfig is the declared binding state of a scope.
type BindingConfig struct {
	ConnectionID        string `json:"connectionId,omitempty" mapstructure:"connectionId"`
	ProjectKey          string `json:"projectKey,omitempty" mapstructure:"projectKey"`
	SuggestionsDisabled bool   `json:"suggestionsDisabled" mapstructure:"suggestionsDisabled"`
}

// SuggestionsConfig tunes the suggestion engine.
type SuggestionsConfig struct {
	CacheTTLMinutes       int `json:"cacheTtlMinutes" mapstructure:"cacheTtlMinutes"`
	FileLookupTimeoutSecs int `json:"fileLookupTimeoutSecs" mapstructure:"fileLookupTimeoutSecs"`
	ShutdownTimeoutMs     int `json:"shutdownTimeoutMs" mapstructure:"shutdownTimeoutMs"`
	QueueSize             int `json:"queueSize" mapstructure:"queueSize"`
}

// CacheTTL returns the project cache TTL as a duration.
func (s SuggestionsConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLMinutes) * time.Minute
}

// FileLookupTimeout returns the workspace file lookup timeout as a duration.
func (s SuggestionsConfig) FileLookupTimeout() time.Duration {
	return time.Duration(s.FileLookupTimeoutSecs) * time.Second
}

// ShutdownTimeout returns the worker shutdown grace period as a duration.
func (s SuggestionsConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Suggestions: SuggestionsConfig{
			CacheTTLMinutes:       60,
			FileLookupTimeoutSecs: 60,
			ShutdownTimeoutMs:     1000,
			QueueSize:             100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// LoadConfig reads sonarbind.{json,yaml,yml} from the given directory.
// A missing file yields the defaults; a malformed file is an error.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("suggestions.cacheTtlMinutes", defaults.Suggestions.CacheTTLMinutes)
	v.SetDefault("suggestions.fileLookupTimeoutSecs", defaults.Suggestions.FileLookupTimeoutSecs)
	v.SetDefault("suggestions.shutdownTimeoutMs", defaults.Suggestions.ShutdownTimeoutMs)
	v.SetDefault("suggestions.queueSize", defaults.Suggestions.QueueSize)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetConfigName("sonarbind")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Connections))
	for _, c := range cfg.Connections {
		if c.ID == "" {
			return fmt.Errorf("connection with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate connection id %q", c.ID)
		}
		seen[c.ID] = true
		switch c.Kind {
		case "sonarqube":
			if c.URL == "" {
				return fmt.Errorf("connection %q: sonarqube connections need a url", c.ID)
			}
		case "sonarcloud":
		default:
			return fmt.Errorf("connection %q: unknown kind %q", c.ID, c.Kind)
		}
	}

	scopeIDs := make(map[string]bool, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		if s.ID == "" {
			return fmt.Errorf("scope with empty id")
		}
		if scopeIDs[s.ID] {
			return fmt.Errorf("duplicate scope id %q", s.ID)
		}
		scopeIDs[s.ID] = true
	}

	return nil
}
