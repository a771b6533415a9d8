// Package config holds all aide configuration. Values come from
// ~/.aide/config.yaml, then environment overrides, then CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all aide configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend configuration
	Backend BackendConfig `yaml:"backend"`

	// Session behavior
	Session SessionConfig `yaml:"session"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures the inference backend connection.
type BackendConfig struct {
	Host         string `yaml:"host"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	Timeout      string `yaml:"timeout"`
}

// SessionConfig configures the interactive session loop.
type SessionConfig struct {
	// MaxToolIterations caps tool invocations per user turn so a
	// misbehaving model cannot loop forever.
	MaxToolIterations int `yaml:"max_tool_iterations"`

	// QuietMode suppresses the startup banner.
	QuietMode bool `yaml:"quiet_mode"`

	// WorkspaceRoot, when set, is the boundary the path resolver will not
	// resolve above. Empty means unbounded.
	WorkspaceRoot string `yaml:"workspace_root"`
}

// ExecutionConfig configures tool execution.
type ExecutionConfig struct {
	// CommandTimeout bounds foreground shell commands.
	CommandTimeout string `yaml:"command_timeout"`

	// ProcessOutputWindow is how long start_process waits for initial output.
	ProcessOutputWindow string `yaml:"process_output_window"`

	// MaxOutputBytes truncates tool output folded back to the model.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// LoggingConfig configures debug logging.
type LoggingConfig struct {
	DebugMode bool   `yaml:"debug_mode"`
	Level     string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "aide",
		Version: "1.0.0",

		Backend: BackendConfig{
			Host:    "http://localhost:11434",
			Timeout: "120s",
		},

		Session: SessionConfig{
			MaxToolIterations: 8,
		},

		Execution: ExecutionConfig{
			CommandTimeout:      "60s",
			ProcessOutputWindow: "2s",
			MaxOutputBytes:      50000,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// HomeDir returns the aide dot-directory (~/.aide).
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aide"
	}
	return filepath.Join(home, ".aide")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// AIDE_* takes priority over the OLLAMA_* conventions.
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Backend.Host = host
	}
	if host := os.Getenv("AIDE_HOST"); host != "" {
		c.Backend.Host = host
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if model := os.Getenv("AIDE_MODEL"); model != "" {
		c.Backend.Model = model
	}
	if os.Getenv("AIDE_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// Validate checks for configuration errors worth refusing startup over.
func (c *Config) Validate() error {
	if c.Backend.Host == "" {
		return fmt.Errorf("backend host cannot be empty")
	}
	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend timeout %q: %w", c.Backend.Timeout, err)
	}
	if c.Session.MaxToolIterations < 1 {
		return fmt.Errorf("max_tool_iterations must be at least 1, got %d", c.Session.MaxToolIterations)
	}
	return nil
}

// GetBackendTimeout returns the backend timeout as a duration.
func (c *Config) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetCommandTimeout returns the shell command timeout as a duration.
func (c *Config) GetCommandTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.CommandTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetProcessOutputWindow returns the start_process capture window.
func (c *Config) GetProcessOutputWindow() time.Duration {
	d, err := time.ParseDuration(c.Execution.ProcessOutputWindow)
	if err != nil {
		return 2 * time.Second
	}
	return d
}
