package dispatch

import (
	"fmt"
	"os"
	"time"
)

// Recognized dispatch channels.
const (
	ChannelManual = "manual"
	ChannelAPI    = "api"
	ChannelSMTP   = "smtp"
)

// Config holds dispatch channel parameters. Channel selects the default
// delivery channel; the others stay registered so an explicit request can
// still target them.
type Config struct {
	Channel  string `toml:"channel"`
	Endpoint string `toml:"endpoint"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	From     string `toml:"from"`
	Timeout  string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Channel  string
	Endpoint string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	From     string
	Timeout  string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Addr returns the SMTP host:port address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
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
	if overlay.Channel != "" {
		c.Channel = overlay.Channel
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.SMTPHost != "" {
		c.SMTPHost = overlay.SMTPHost
	}
	if overlay.SMTPPort != 0 {
		c.SMTPPort = overlay.SMTPPort
	}
	if overlay.SMTPUser != "" {
		c.SMTPUser = overlay.SMTPUser
	}
	if overlay.SMTPPass != "" {
		c.SMTPPass = overlay.SMTPPass
	}
	if overlay.From != "" {
		c.From = overlay.From
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Channel == "" {
		c.Channel = ChannelManual
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.Timeout == "" {
		c.Timeout = "15s"
	}
}

func (c *Config) loadEnv(env *Env) {
	setString := func(envVar string, field *string) {
		if envVar != "" {
			if v := os.Getenv(envVar); v != "" {
				*field = v
			}
		}
	}

	setString(env.Channel, &c.Channel)
	setString(env.Endpoint, &c.Endpoint)
	setString(env.SMTPHost, &c.SMTPHost)
	setString(env.SMTPUser, &c.SMTPUser)
	setString(env.SMTPPass, &c.SMTPPass)
	setString(env.From, &c.From)
	setString(env.Timeout, &c.Timeout)

	if env.SMTPPort != "" {
		if v := os.Getenv(env.SMTPPort); v != "" {
			var port int
			if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
				c.SMTPPort = port
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Channel {
	case ChannelManual, ChannelAPI, ChannelSMTP:
	default:
		return fmt.Errorf("invalid channel: %s", c.Channel)
	}
	if c.Channel == ChannelAPI && c.Endpoint == "" {
		return fmt.Errorf("endpoint required for api channel")
	}
	if c.Channel == ChannelSMTP && c.SMTPHost == "" {
		return fmt.Errorf("smtp_host required for smtp channel")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
