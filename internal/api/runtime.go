package api

import (
	"github.com/jmcalloway/claimward/internal/config"
	"github.com/jmcalloway/claimward/internal/infrastructure"
	"github.com/jmcalloway/claimward/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Reasoner:  infra.Reasoner,
			Searcher:  infra.Searcher,
		},
		Pagination: cfg.API.Pagination,
	}
}
