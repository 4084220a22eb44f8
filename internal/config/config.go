// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env file support for mxw-send.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mxwizard/sdk-go/mailer"
)

// Config holds the complete application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Sender  SenderConfig  `yaml:"sender"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the MX Wizard endpoint and credentials.
type APIConfig struct {
	URL     string        `yaml:"url"`
	TokenID int           `yaml:"token_id"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML accepts the timeout in the same forms as MXW_TIMEOUT.
// Keys missing from the document keep their current values.
func (a *APIConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		URL     string `yaml:"url"`
		TokenID int    `yaml:"token_id"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	}{URL: a.URL, TokenID: a.TokenID, Token: a.Token}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	a.URL, a.TokenID, a.Token = raw.URL, raw.TokenID, raw.Token
	if raw.Timeout != "" {
		timeout, err := parseTimeout(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", raw.Timeout, err)
		}
		a.Timeout = timeout
	}
	return nil
}

// SenderConfig holds defaults applied to every message.
type SenderConfig struct {
	Address string   `yaml:"address"`
	Name    string   `yaml:"name"`
	Headers []string `yaml:"headers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile exports the variables of a .env file into the process
// environment. Variables that are already set are left alone and a missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// CredentialsConfigured returns true if both the token ID and token are set.
func (c *Config) CredentialsConfigured() bool {
	return c.API.TokenID > 0 && c.API.Token != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.API.URL = mailer.DefaultURL
	c.API.Timeout = mailer.DefaultTimeout
	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("MXW_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("MXW_TOKEN_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MXW_TOKEN_ID %q: %w", v, err)
		}
		c.API.TokenID = id
	}
	if v := os.Getenv("MXW_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("MXW_TIMEOUT"); v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid MXW_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = timeout
	}

	if v := os.Getenv("MXW_FROM"); v != "" {
		c.Sender.Address = v
	}
	if v := os.Getenv("MXW_FROM_NAME"); v != "" {
		c.Sender.Name = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	return nil
}

// parseTimeout accepts a Go duration ("30s") or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}
