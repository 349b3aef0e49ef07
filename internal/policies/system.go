package policies

import (
	"context"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/rules"
	"github.com/jmcalloway/claimward/pkg/pagination"
)

// System defines the public contract for catalog and policy operations.
type System interface {
	Handler() *Handler

	ListPolicies(
		ctx context.Context,
		page pagination.PageRequest,
	) (*pagination.PageResult[Policy], error)

	ListProducts(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Product], error)

	FindPolicy(ctx context.Context, id string) (*Policy, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// Select matches extracted product text against catalog names and aliases
	// and returns the owning policy. ErrNoMatch when nothing matches.
	Select(ctx context.Context, productText string) (*Policy, error)

	// Rules returns the evaluator rule set for a policy. Lookups are cached.
	Rules(ctx context.Context, policyID string) (*rules.RuleSet, error)

	// Seed upserts catalog entries from a parsed seed file.
	Seed(ctx context.Context, catalog *Catalog) error
}
