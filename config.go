package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultPort        = 8080
	DefaultDataFile    = "data.json"
	DefaultAPIKey      = "zyniscool"
	DefaultEnvironment = "development"
	DefaultTimestamp   = "no-timestamp"
)

// Environment variables read by applyEnv.
const (
	envPort        = "PORT"
	envDataFile    = "DATA_FILE"
	envAPIKey      = "API_KEY"
	envEnvironment = "RAILWAY_ENVIRONMENT"
	envTimestamp   = "RAILWAY_TIMESTAMP"
)

// Config holds the server settings.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// DataFile is the JSON array file holding all entries.
	DataFile string `yaml:"data_file"`

	// APIKeys lists every accepted API key. API_KEY replaces the list with a
	// single key. The default placeholder must be overridden in any real
	// deployment.
	APIKeys []string `yaml:"api_keys"`

	// Environment is the deployment label reported by /status.
	Environment string `yaml:"environment"`

	// Timestamp is stamped onto every stored entry.
	Timestamp string `yaml:"timestamp"`
}

// loadConfig builds the configuration from defaults, the optional YAML file at
// path, and the environment, in increasing precedence.
func loadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Port:        DefaultPort,
		DataFile:    DefaultDataFile,
		APIKeys:     []string{DefaultAPIKey},
		Environment: DefaultEnvironment,
		Timestamp:   DefaultTimestamp,
	}
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(envPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s %q is not a number", envPort, v)
		}
		cfg.Port = port
	}
	if v := getenv(envDataFile); v != "" {
		cfg.DataFile = v
	}
	if v := getenv(envAPIKey); v != "" {
		cfg.APIKeys = []string{v}
	}
	if v := getenv(envEnvironment); v != "" {
		cfg.Environment = v
	}
	if v := getenv(envTimestamp); v != "" {
		cfg.Timestamp = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range [1, 65535]", c.Port)
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file must not be empty")
	}
	n := 0
	for _, k := range c.APIKeys {
		if k != "" {
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("at least one non-empty api key is required")
	}
	return nil
}
