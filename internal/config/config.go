// Package config loads and finalizes the Claimward service configuration.
// Values resolve in three phases: TOML file (base plus environment overlay),
// environment variable overrides, then validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmcalloway/claimward/internal/claims"
	"github.com/jmcalloway/claimward/internal/dispatch"
	"github.com/jmcalloway/claimward/internal/reasoning"
	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvClaimwardEnv             = "CLAIMWARD_ENV"
	EnvClaimwardShutdownTimeout = "CLAIMWARD_SHUTDOWN_TIMEOUT"
	EnvClaimwardVersion         = "CLAIMWARD_VERSION"
	EnvClaimwardCatalogSeed     = "CLAIMWARD_CATALOG_SEED"
)

var databaseEnv = &database.Env{
	Host:            "CLAIMWARD_DB_HOST",
	Port:            "CLAIMWARD_DB_PORT",
	Name:            "CLAIMWARD_DB_NAME",
	User:            "CLAIMWARD_DB_USER",
	Password:        "CLAIMWARD_DB_PASSWORD",
	SSLMode:         "CLAIMWARD_DB_SSL_MODE",
	MaxOpenConns:    "CLAIMWARD_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CLAIMWARD_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CLAIMWARD_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CLAIMWARD_DB_CONN_TIMEOUT",
}

var reasoningEnv = &reasoning.Env{
	Mode:              "CLAIMWARD_REASONING_MODE",
	Model:             "CLAIMWARD_REASONING_MODEL",
	Token:             "CLAIMWARD_REASONING_TOKEN",
	BaseURL:           "CLAIMWARD_REASONING_BASE_URL",
	Timeout:           "CLAIMWARD_REASONING_TIMEOUT",
	MaxTokens:         "CLAIMWARD_REASONING_MAX_TOKENS",
	RequestsPerMinute: "CLAIMWARD_REASONING_RPM",
}

var retrievalEnv = &retrieval.Env{
	Mode:    "CLAIMWARD_RETRIEVAL_MODE",
	BaseURL: "CLAIMWARD_RETRIEVAL_BASE_URL",
	Timeout: "CLAIMWARD_RETRIEVAL_TIMEOUT",
}

var dispatchEnv = &dispatch.Env{
	Channel:  "CLAIMWARD_DISPATCH_CHANNEL",
	Endpoint: "CLAIMWARD_DISPATCH_ENDPOINT",
	SMTPHost: "CLAIMWARD_DISPATCH_SMTP_HOST",
	SMTPPort: "CLAIMWARD_DISPATCH_SMTP_PORT",
	SMTPUser: "CLAIMWARD_DISPATCH_SMTP_USER",
	SMTPPass: "CLAIMWARD_DISPATCH_SMTP_PASS",
	From:     "CLAIMWARD_DISPATCH_FROM",
	Timeout:  "CLAIMWARD_DISPATCH_TIMEOUT",
}

var workflowEnv = &claims.Env{
	ExcerptLimit:   "CLAIMWARD_WORKFLOW_EXCERPT_LIMIT",
	GatewayTimeout: "CLAIMWARD_WORKFLOW_GATEWAY_TIMEOUT",
	Channel:        "CLAIMWARD_WORKFLOW_CHANNEL",
}

// Config is the root configuration for the Claimward service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Reasoning       reasoning.Config `toml:"reasoning"`
	Retrieval       retrieval.Config `toml:"retrieval"`
	Dispatch        dispatch.Config  `toml:"dispatch"`
	Workflow        claims.Config    `toml:"workflow"`
	API             APIConfig        `toml:"api"`
	CatalogSeed     string           `toml:"catalog_seed"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CLAIMWARD_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvClaimwardEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.CatalogSeed != "" {
		c.CatalogSeed = overlay.CatalogSeed
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Reasoning.Merge(&overlay.Reasoning)
	c.Retrieval.Merge(&overlay.Retrieval)
	c.Dispatch.Merge(&overlay.Dispatch)
	c.Workflow.Merge(&overlay.Workflow)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Reasoning.Finalize(reasoningEnv); err != nil {
		return fmt.Errorf("reasoning: %w", err)
	}
	if err := c.Retrieval.Finalize(retrievalEnv); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if err := c.Dispatch.Finalize(dispatchEnv); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	// The engine falls back to the dispatch section's channel unless the
	// workflow section names one explicitly.
	if c.Workflow.Channel == "manual" && c.Dispatch.Channel != "" {
		c.Workflow.Channel = c.Dispatch.Channel
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvClaimwardShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvClaimwardVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvClaimwardCatalogSeed); v != "" {
		c.CatalogSeed = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvClaimwardEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
