// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, gateways) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jmcalloway/claimward/internal/config"
	"github.com/jmcalloway/claimward/internal/reasoning"
	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/pkg/database"
	"github.com/jmcalloway/claimward/pkg/lifecycle"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, and the external gateways.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Reasoner  reasoning.Gateway
	Searcher  retrieval.Gateway
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	reasoner, err := reasoning.New(&cfg.Reasoning, logger)
	if err != nil {
		return nil, fmt.Errorf("reasoning init failed: %w", err)
	}

	searcher, err := retrieval.New(&cfg.Retrieval, logger)
	if err != nil {
		return nil, fmt.Errorf("retrieval init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Reasoner:  reasoner,
		Searcher:  searcher,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
