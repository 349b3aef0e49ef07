package claims

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds workflow engine tuning parameters.
type Config struct {
	ExcerptLimit   int    `toml:"excerpt_limit"`
	GatewayTimeout string `toml:"gateway_timeout"`
	Channel        string `toml:"channel"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ExcerptLimit   string
	GatewayTimeout string
	Channel        string
}

// GatewayTimeoutDuration returns GatewayTimeout as a time.Duration.
func (c *Config) GatewayTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.GatewayTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ExcerptLimit != 0 {
		c.ExcerptLimit = overlay.ExcerptLimit
	}
	if overlay.GatewayTimeout != "" {
		c.GatewayTimeout = overlay.GatewayTimeout
	}
	if overlay.Channel != "" {
		c.Channel = overlay.Channel
	}
}

func (c *Config) loadDefaults() {
	if c.ExcerptLimit == 0 {
		c.ExcerptLimit = 5
	}
	if c.GatewayTimeout == "" {
		c.GatewayTimeout = "30s"
	}
	if c.Channel == "" {
		c.Channel = "manual"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ExcerptLimit != "" {
		if v := os.Getenv(env.ExcerptLimit); v != "" {
			if limit, err := strconv.Atoi(v); err == nil {
				c.ExcerptLimit = limit
			}
		}
	}
	if env.GatewayTimeout != "" {
		if v := os.Getenv(env.GatewayTimeout); v != "" {
			c.GatewayTimeout = v
		}
	}
	if env.Channel != "" {
		if v := os.Getenv(env.Channel); v != "" {
			c.Channel = v
		}
	}
}

func (c *Config) validate() error {
	if c.ExcerptLimit < 1 {
		return fmt.Errorf("excerpt_limit must be positive")
	}
	if _, err := time.ParseDuration(c.GatewayTimeout); err != nil {
		return fmt.Errorf("invalid gateway_timeout: %w", err)
	}
	return nil
}
