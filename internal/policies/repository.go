package policies

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jmcalloway/claimward/internal/rules"
	"github.com/jmcalloway/claimward/pkg/pagination"
	"github.com/jmcalloway/claimward/pkg/query"
	"github.com/jmcalloway/claimward/pkg/repository"
)

const (
	ruleCacheTTL     = 5 * time.Minute
	ruleCacheCleanup = 10 * time.Minute
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	ruleCache  *gocache.Cache
}

// New creates a policy repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "policies"),
		pagination: pagination,
		ruleCache:  gocache.New(ruleCacheTTL, ruleCacheCleanup),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) ListPolicies(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Policy], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(policyProjection, defaultSort).
		WhereSearch(page.Search, "Name")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count policies: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPolicy)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) ListProducts(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Product], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(productProjection, defaultSort).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) FindPolicy(ctx context.Context, id string) (*Policy, error) {
	q, args := query.NewBuilder(policyProjection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPolicy)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) FindProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	q, args := query.NewBuilder(productProjection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProduct)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

// Select matches the extracted product text against every product's name and
// aliases, longest match first, so "pro" does not shadow "blender pro 500".
func (r *repo) Select(ctx context.Context, productText string) (*Policy, error) {
	needle := strings.ToLower(strings.TrimSpace(productText))
	if needle == "" {
		return nil, ErrNoMatch
	}

	q := `
		SELECT id, name, aliases, policy_id, created_at
		FROM products
		ORDER BY name ASC`

	products, err := repository.QueryMany(ctx, r.db, q, nil, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	var best *Product
	bestLen := 0

	for i := range products {
		p := &products[i]
		for _, candidate := range append([]string{p.Name}, p.Aliases...) {
			c := strings.ToLower(candidate)
			if c == "" || !strings.Contains(needle, c) {
				continue
			}
			if len(c) > bestLen {
				best = p
				bestLen = len(c)
			}
		}
	}

	if best == nil {
		return nil, ErrNoMatch
	}

	r.logger.Debug("policy selected", "product", best.Name, "policy_id", best.PolicyID)
	return r.FindPolicy(ctx, best.PolicyID)
}

func (r *repo) Rules(ctx context.Context, policyID string) (*rules.RuleSet, error) {
	if cached, ok := r.ruleCache.Get(policyID); ok {
		rs := cached.(rules.RuleSet)
		return &rs, nil
	}

	p, err := r.FindPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	rs := p.RuleSet()
	r.ruleCache.Set(policyID, rs, gocache.DefaultExpiration)
	return &rs, nil
}

// Seed upserts the parsed catalog: policies first, then the products that
// reference them. Existing rows are overwritten so the seed file stays the
// source of truth for demo data.
func (r *repo) Seed(ctx context.Context, catalog *Catalog) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for _, p := range catalog.Policies {
			exclusions, err := json.Marshal(p.Exclusions)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal exclusions: %w", err)
			}
			evidence, err := json.Marshal(p.RequiredEvidence)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal required_evidence: %w", err)
			}
			sections, err := json.Marshal(p.Sections)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal sections: %w", err)
			}

			q := `
				INSERT INTO policies(id, name, warranty_days, exclusions, required_evidence, sections)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					warranty_days = EXCLUDED.warranty_days,
					exclusions = EXCLUDED.exclusions,
					required_evidence = EXCLUDED.required_evidence,
					sections = EXCLUDED.sections`

			if _, err := tx.ExecContext(
				ctx, q,
				p.ID, p.Name, p.WarrantyDays, exclusions, evidence, sections,
			); err != nil {
				return struct{}{}, fmt.Errorf("upsert policy %s: %w", p.ID, err)
			}
		}

		for _, p := range catalog.Products {
			aliases, err := json.Marshal(p.Aliases)
			if err != nil {
				return struct{}{}, fmt.Errorf("marshal aliases: %w", err)
			}

			q := `
				INSERT INTO products(id, name, aliases, policy_id)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (name) DO UPDATE SET
					aliases = EXCLUDED.aliases,
					policy_id = EXCLUDED.policy_id`

			if _, err := tx.ExecContext(
				ctx, q,
				uuid.New(), p.Name, aliases, p.PolicyID,
			); err != nil {
				return struct{}{}, fmt.Errorf("upsert product %s: %w", p.Name, err)
			}
		}

		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	r.ruleCache.Flush()
	r.logger.Info(
		"catalog seeded",
		"policies", len(catalog.Policies),
		"products", len(catalog.Products),
	)
	return nil
}
