package policies

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/rules"
	"github.com/jmcalloway/claimward/pkg/pagination"
)

// MemoryCatalog is an in-memory System used by tests and offline runs.
// It is populated through Seed and serves reads without a database.
type MemoryCatalog struct {
	logger     *slog.Logger
	pagination pagination.Config
	policies   map[string]Policy
	products   []Product
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog(logger *slog.Logger, pagination pagination.Config) *MemoryCatalog {
	return &MemoryCatalog{
		logger:     logger.With("system", "policies"),
		pagination: pagination,
		policies:   make(map[string]Policy),
	}
}

func (m *MemoryCatalog) Handler() *Handler {
	return NewHandler(m, m.logger, m.pagination)
}

func (m *MemoryCatalog) ListPolicies(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Policy], error) {
	page.Normalize(m.pagination)

	items := make([]Policy, 0, len(m.policies))
	for _, p := range m.policies {
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	result := pagination.NewPageResult(items, len(items), page.Page, page.PageSize)
	return &result, nil
}

func (m *MemoryCatalog) ListProducts(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Product], error) {
	page.Normalize(m.pagination)

	items := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if filters.PolicyID != nil && p.PolicyID != *filters.PolicyID {
			continue
		}
		items = append(items, p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	result := pagination.NewPageResult(items, len(items), page.Page, page.PageSize)
	return &result, nil
}

func (m *MemoryCatalog) FindPolicy(ctx context.Context, id string) (*Policy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryCatalog) FindProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryCatalog) Select(ctx context.Context, productText string) (*Policy, error) {
	needle := strings.ToLower(strings.TrimSpace(productText))
	if needle == "" {
		return nil, ErrNoMatch
	}

	var best *Product
	bestLen := 0

	for i := range m.products {
		p := &m.products[i]
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

	return m.FindPolicy(ctx, best.PolicyID)
}

func (m *MemoryCatalog) Rules(ctx context.Context, policyID string) (*rules.RuleSet, error) {
	p, err := m.FindPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	rs := p.RuleSet()
	return &rs, nil
}

func (m *MemoryCatalog) Seed(ctx context.Context, catalog *Catalog) error {
	now := time.Now()

	for _, p := range catalog.Policies {
		m.policies[p.ID] = Policy{
			ID:               p.ID,
			Name:             p.Name,
			WarrantyDays:     p.WarrantyDays,
			Exclusions:       p.Exclusions,
			RequiredEvidence: p.RequiredEvidence,
			Sections:         p.Sections,
			CreatedAt:        now,
		}
	}

	for _, p := range catalog.Products {
		m.products = append(m.products, Product{
			ID:        uuid.New(),
			Name:      p.Name,
			Aliases:   p.Aliases,
			PolicyID:  p.PolicyID,
			CreatedAt: now,
		})
	}

	return nil
}
