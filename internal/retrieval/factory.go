package retrieval

import (
	"fmt"
	"log/slog"
)

// New creates the gateway selected by cfg.Mode. Demo mode starts with an
// empty index; callers seed it through DemoGateway.Index.
func New(cfg *Config, logger *slog.Logger) (Gateway, error) {
	var gw Gateway

	switch cfg.Mode {
	case ModeDemo:
		gw = NewDemoGateway(nil)
	case ModeRemote:
		gw = NewRemoteGateway(cfg)
	default:
		return nil, fmt.Errorf("unknown retrieval mode: %s", cfg.Mode)
	}

	logger.Info("retrieval gateway initialized", "provider", gw.Name(), "mode", cfg.Mode)
	return gw, nil
}
