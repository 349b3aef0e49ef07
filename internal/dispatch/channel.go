package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// Channel performs the actual external delivery of a payload. Send returns
// the provider's message identifier when one is available.
type Channel interface {
	Name() string
	Send(ctx context.Context, payload Payload) (string, error)
}

// Channels builds the channel registry from configuration. The manual channel
// is always present; api and smtp register only when configured.
func Channels(cfg *Config) map[string]Channel {
	registry := map[string]Channel{
		ChannelManual: &manualChannel{},
	}

	if cfg.Endpoint != "" {
		registry[ChannelAPI] = &apiChannel{
			endpoint: cfg.Endpoint,
			client:   &http.Client{Timeout: cfg.TimeoutDuration()},
		}
	}

	if cfg.SMTPHost != "" {
		registry[ChannelSMTP] = &smtpChannel{cfg: cfg}
	}

	return registry
}

// manualChannel records the payload without any external delivery; an
// operator sends it out of band from the ledger entry.
type manualChannel struct{}

func (c *manualChannel) Name() string {
	return ChannelManual
}

func (c *manualChannel) Send(ctx context.Context, payload Payload) (string, error) {
	return "manual-" + uuid.NewString(), nil
}

// apiChannel posts the payload to a configured delivery endpoint.
type apiChannel struct {
	endpoint string
	client   *http.Client
}

type apiResponse struct {
	MessageID string `json:"message_id"`
}

func (c *apiChannel) Name() string {
	return ChannelAPI
}

func (c *apiChannel) Send(ctx context.Context, payload Payload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("delivery request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("delivery endpoint returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", nil
	}
	return parsed.MessageID, nil
}

// smtpChannel delivers the payload as a plain-text email.
type smtpChannel struct {
	cfg *Config
}

func (c *smtpChannel) Name() string {
	return ChannelSMTP
}

func (c *smtpChannel) Send(ctx context.Context, payload Payload) (string, error) {
	if payload.Recipient == "" {
		return "", fmt.Errorf("%w: recipient required", ErrInvalidPayload)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", payload.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", payload.Subject)
	msg.WriteString("\r\n")
	msg.WriteString(payload.Body)

	var auth smtp.Auth
	if c.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", c.cfg.SMTPUser, c.cfg.SMTPPass, c.cfg.SMTPHost)
	}

	if err := smtp.SendMail(
		c.cfg.Addr(),
		auth,
		c.cfg.From,
		[]string{payload.Recipient},
		[]byte(msg.String()),
	); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	return "", nil
}
