// Package config provides configuration loading for scenariod.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/scenariod/internal/critic"
	"github.com/fyrsmithlabs/scenariod/internal/knowledge"
	"github.com/fyrsmithlabs/scenariod/internal/logging"
	"github.com/fyrsmithlabs/scenariod/internal/oracle"
	"github.com/fyrsmithlabs/scenariod/internal/orchestrator"
)

// Config is the root configuration for the scenariod daemon.
type Config struct {
	Server    ServerConfig        `koanf:"server"`
	Logging   logging.Config      `koanf:"logging"`
	Oracle    OracleConfig        `koanf:"oracle"`
	Knowledge knowledge.Config    `koanf:"knowledge"`
	Critic    critic.Config       `koanf:"critic"`
	Audit     AuditConfig         `koanf:"audit"`
	Run       orchestrator.Config `koanf:"run"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8420".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// OracleConfig selects and configures the oracle backend.
type OracleConfig struct {
	// Backend is "openai" or "stub". Default: "openai".
	Backend string `koanf:"backend"`

	Client oracle.ClientConfig `koanf:"client"`
}

// AuditConfig configures the forensic sink.
type AuditConfig struct {
	// Dir is where per-scenario JSONL audit files land.
	// Default: "./audit".
	Dir string `koanf:"dir"`
}

// ApplyDefaults fills unset fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8420"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging = *logging.NewDefaultConfig()
	}
	if c.Oracle.Backend == "" {
		c.Oracle.Backend = "openai"
	}
	c.Oracle.Client.ApplyDefaults()
	c.Knowledge.ApplyDefaults()
	c.Critic.ApplyDefaults()
	if c.Audit.Dir == "" {
		c.Audit.Dir = "./audit"
	}
	c.Run.ApplyDefaults()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Oracle.Backend {
	case "openai", "stub":
	default:
		return fmt.Errorf("oracle backend must be 'openai' or 'stub', got %q", c.Oracle.Backend)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server shutdown_timeout must be >= 0")
	}
	if c.Run.RefineBudget < 0 {
		return fmt.Errorf("run refine_budget must be >= 0")
	}
	return nil
}
