// Package config provides configuration file support for adp.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the config file, looked up in the project root.
const ConfigFileName = ".adp.yaml"

// Defaults applied when neither flag, env var, nor config file sets a value.
const (
	DefaultAgentCommand = "claude"
	DefaultTimeout      = 10 * time.Minute
)

// Duration is a custom type that handles YAML duration parsing.
// Supports both Go duration format ("5m", "300s") and numeric seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v) * time.Second)
	default:
		return fmt.Errorf("invalid duration type: %T", v)
	}
	return nil
}

// AsDuration returns the underlying time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Config represents the adp configuration file. Pointer fields distinguish
// "unset" from zero so precedence resolution can fall through correctly.
type Config struct {
	AgentCommand *string      `yaml:"agent_command"`
	Timeout      *Duration    `yaml:"timeout"`
	ExtraPath    *string      `yaml:"extra_path"`
	Filters      FilterConfig `yaml:"filters"`
}

// FilterConfig holds filter-related configuration.
type FilterConfig struct {
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// LoadFromDir reads .adp.yaml from the given directory.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadFromDir(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
	}
	return &cfg, nil
}

// EnvState holds values read from ADP_* environment variables.
type EnvState struct {
	AgentCommand string
	Timeout      time.Duration
	TimeoutSet   bool
	ExtraPath    string
}

// LoadEnvState reads the supported environment variables.
// An unparseable ADP_TIMEOUT is ignored rather than fatal.
func LoadEnvState() EnvState {
	var env EnvState
	env.AgentCommand = os.Getenv("ADP_AGENT_CMD")
	env.ExtraPath = os.Getenv("ADP_EXTRA_PATH")
	if raw := os.Getenv("ADP_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			env.Timeout = parsed
			env.TimeoutSet = true
		}
	}
	return env
}

// FlagState records which flags were explicitly set on the command line.
type FlagState struct {
	AgentCommandSet bool
	TimeoutSet      bool
	ExtraPathSet    bool
}

// ResolvedConfig is the final configuration after precedence resolution.
type ResolvedConfig struct {
	AgentCommand    string
	Timeout         time.Duration
	ExtraPath       string
	ExcludePatterns []string
}

// Resolve merges configuration sources with precedence:
// flags > env vars > config file > defaults.
func Resolve(cfg *Config, env EnvState, flags FlagState, flagValues ResolvedConfig) ResolvedConfig {
	resolved := ResolvedConfig{
		AgentCommand: DefaultAgentCommand,
		Timeout:      DefaultTimeout,
	}

	if cfg != nil {
		if cfg.AgentCommand != nil {
			resolved.AgentCommand = *cfg.AgentCommand
		}
		if cfg.Timeout != nil {
			resolved.Timeout = cfg.Timeout.AsDuration()
		}
		if cfg.ExtraPath != nil {
			resolved.ExtraPath = *cfg.ExtraPath
		}
		resolved.ExcludePatterns = cfg.Filters.ExcludePatterns
	}

	if env.AgentCommand != "" {
		resolved.AgentCommand = env.AgentCommand
	}
	if env.TimeoutSet {
		resolved.Timeout = env.Timeout
	}
	if env.ExtraPath != "" {
		resolved.ExtraPath = env.ExtraPath
	}

	if flags.AgentCommandSet {
		resolved.AgentCommand = flagValues.AgentCommand
	}
	if flags.TimeoutSet {
		resolved.Timeout = flagValues.Timeout
	}
	if flags.ExtraPathSet {
		resolved.ExtraPath = flagValues.ExtraPath
	}

	return resolved
}
