package reasoning

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Recognized reasoning modes.
const (
	ModeDemo   = "demo"
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds reasoning gateway parameters.
type Config struct {
	Mode              string `toml:"mode"`
	Model             string `toml:"model"`
	Token             string `toml:"token"`
	BaseURL           string `toml:"base_url"`
	Timeout           string `toml:"timeout"`
	MaxTokens         int    `toml:"max_tokens"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode              string
	Model             string
	Token             string
	BaseURL           string
	Timeout           string
	MaxTokens         string
	RequestsPerMinute string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.RequestsPerMinute != 0 {
		c.RequestsPerMinute = overlay.RequestsPerMinute
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDemo
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Mode != "" {
		if v := os.Getenv(env.Mode); v != "" {
			c.Mode = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxTokens != "" {
		if v := os.Getenv(env.MaxTokens); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxTokens = n
			}
		}
	}
	if env.RequestsPerMinute != "" {
		if v := os.Getenv(env.RequestsPerMinute); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RequestsPerMinute = n
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDemo, ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.Mode == ModeRemote && c.Token == "" {
		return fmt.Errorf("token required for remote mode")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
