package api

import (
	"context"
	"fmt"

	"github.com/jmcalloway/claimward/internal/checkpoints"
	"github.com/jmcalloway/claimward/internal/claims"
	"github.com/jmcalloway/claimward/internal/config"
	"github.com/jmcalloway/claimward/internal/dispatch"
	"github.com/jmcalloway/claimward/internal/policies"
	"github.com/jmcalloway/claimward/internal/retrieval"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Claims      claims.System
	Policies    policies.System
	Checkpoints checkpoints.System
	Dispatch    dispatch.System

	searcher retrieval.Gateway
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	catalog := policies.New(db, runtime.Logger, runtime.Pagination)

	store := checkpoints.New(db, runtime.Logger, claims.TerminalStageNames())

	ledger := dispatch.New(db, dispatch.Channels(&cfg.Dispatch), runtime.Logger)

	engine := claims.NewEngine(
		&cfg.Workflow,
		store,
		ledger,
		catalog,
		runtime.Reasoner,
		runtime.Searcher,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Claims:      engine,
		Policies:    catalog,
		Checkpoints: store,
		Dispatch:    ledger,
		searcher:    runtime.Searcher,
	}
}

// SeedCatalog loads a YAML catalog seed, upserts it through the policy
// system, and indexes policy sections into the demo retrieval gateway when
// one is configured.
func (d *Domain) SeedCatalog(ctx context.Context, path string) error {
	catalog, err := policies.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("load catalog seed: %w", err)
	}

	if err := d.Policies.Seed(ctx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	if demo, ok := d.searcher.(*retrieval.DemoGateway); ok {
		for _, p := range catalog.Policies {
			demo.Index(p.ID, p.Sections)
		}
	}

	return nil
}
