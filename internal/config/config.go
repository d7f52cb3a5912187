// Package config loads engine configuration from a YAML file with
// environment-variable overrides, following the validate-after-load pattern
// the MCP host config uses (pkg/bubbly/devtools/mcp/config.go's Validate).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every core-relevant knob an implementation may honor (§6):
// the core itself requires none of these, but an embedding host needs a
// place to set them.
type Config struct {
	// DBPath is the SQLite file the durable log and persistent store open.
	DBPath string `yaml:"db_path"`

	// IterationCap overrides engine.DefaultIterationCap per execution.
	// Validate rejects values below 1, so a loaded Config always carries an
	// explicit cap; only engine.Config treats zero as the engine default.
	IterationCap int `yaml:"iteration_cap"`

	// MCP configures the optional host-layer MCP server (§6, host/mcp).
	MCP MCPConfig `yaml:"mcp"`
}

// MCPConfig configures the optional MCP host layer.
type MCPConfig struct {
	Enabled              bool          `yaml:"enabled"`
	HTTPPort             int           `yaml:"http_port"`
	HTTPHost             string        `yaml:"http_host"`
	WriteEnabled         bool          `yaml:"write_enabled"`
	MaxClients           int           `yaml:"max_clients"`
	SubscriptionThrottle time.Duration `yaml:"subscription_throttle"`
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		DBPath:       "orchestra.db",
		IterationCap: 200,
		MCP: MCPConfig{
			Enabled:              false,
			HTTPPort:             8765,
			HTTPHost:             "localhost",
			WriteEnabled:         false,
			MaxClients:           5,
			SubscriptionThrottle: 100 * time.Millisecond,
		},
	}
}

// Load reads path (if it exists) over the defaults, then applies
// environment-variable overrides, then validates the result.
//
// Recognized overrides:
//   - TICKENGINE_DB_PATH
//   - TICKENGINE_ITERATION_CAP
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TICKENGINE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TICKENGINE_ITERATION_CAP"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.IterationCap = n
		}
	}
}

// Validate checks that every field is in a usable range before the engine
// starts, mirroring the host MCP config's fail-fast Validate().
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.IterationCap <= 0 {
		return fmt.Errorf("iteration_cap must be positive, got %d", c.IterationCap)
	}
	if c.MCP.Enabled {
		if c.MCP.HTTPPort < 0 || c.MCP.HTTPPort > 65535 {
			return fmt.Errorf("mcp.http_port must be between 0 and 65535, got %d", c.MCP.HTTPPort)
		}
		if c.MCP.HTTPHost == "" {
			return fmt.Errorf("mcp.http_host cannot be empty when mcp is enabled")
		}
		if c.MCP.MaxClients <= 0 {
			return fmt.Errorf("mcp.max_clients must be positive, got %d", c.MCP.MaxClients)
		}
	}
	return nil
}
