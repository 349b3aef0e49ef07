package reasoning

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// New creates the gateway selected by cfg.Mode, wrapped with a rate limiter
// so bursty advance loops cannot flood the provider.
func New(cfg *Config, logger *slog.Logger) (Gateway, error) {
	var gw Gateway

	switch cfg.Mode {
	case ModeDemo:
		gw = NewDemoGateway()
	case ModeLocal:
		gw = NewOllamaGateway(cfg)
	case ModeRemote:
		g, err := NewOpenAIGateway(cfg)
		if err != nil {
			return nil, fmt.Errorf("remote gateway: %w", err)
		}
		gw = g
	default:
		return nil, fmt.Errorf("unknown reasoning mode: %s", cfg.Mode)
	}

	logger.Info("reasoning gateway initialized", "provider", gw.Name(), "mode", cfg.Mode)

	limit := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return newLimitedGateway(gw, rate.NewLimiter(limit, 1)), nil
}
