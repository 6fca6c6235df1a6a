package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for hookcast.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Endpoint EndpointConfig `json:"endpoint"`
	Dispatch DispatchConfig `json:"dispatch"`
	Relay    RelayConfig    `json:"relay"`
	History  HistoryConfig  `json:"history"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
}

// EndpointConfig identifies the webhook endpoint and the default sender
// identity applied to messages that carry no override of their own.
type EndpointConfig struct {
	URL       string `json:"url"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type DispatchConfig struct {
	QueueSize      int     `json:"queueSize"`
	Workers        int     `json:"workers"`
	RatePerMinute  float64 `json:"ratePerMinute"`
	Burst          int     `json:"burst"`
	TimeoutSeconds int     `json:"timeoutSeconds"`
	MaxRetries     int     `json:"maxRetries"`
}

type RelayConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
	Secret  string `json:"secret,omitempty"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfigDir returns the default config directory (~/.hookcast).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hookcast"
	}
	return filepath.Join(home, ".hookcast")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is
// unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Endpoint.URL != "" &&
		!strings.HasPrefix(cfg.Endpoint.URL, "http://") &&
		!strings.HasPrefix(cfg.Endpoint.URL, "https://") {
		errs = append(errs, "endpoint.url must be an http(s) URL")
	}

	if cfg.Dispatch.QueueSize < 1 || cfg.Dispatch.QueueSize > 10000 {
		errs = append(errs, "dispatch.queueSize must be between 1 and 10000")
	}
	if cfg.Dispatch.Workers < 1 || cfg.Dispatch.Workers > 64 {
		errs = append(errs, "dispatch.workers must be between 1 and 64")
	}
	if cfg.Dispatch.RatePerMinute <= 0 {
		errs = append(errs, "dispatch.ratePerMinute must be > 0")
	}
	if cfg.Dispatch.Burst < 1 {
		errs = append(errs, "dispatch.burst must be >= 1")
	}
	if cfg.Dispatch.TimeoutSeconds < 1 || cfg.Dispatch.TimeoutSeconds > 600 {
		errs = append(errs, "dispatch.timeoutSeconds must be between 1 and 600")
	}
	if cfg.Dispatch.MaxRetries < 0 || cfg.Dispatch.MaxRetries > 10 {
		errs = append(errs, "dispatch.maxRetries must be between 0 and 10")
	}

	if cfg.Relay.Port < 0 || cfg.Relay.Port > 65535 {
		errs = append(errs, "relay.port must be between 0 and 65535")
	}
	if cfg.Relay.Path != "" && !strings.HasPrefix(cfg.Relay.Path, "/") {
		errs = append(errs, "relay.path must start with /")
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
