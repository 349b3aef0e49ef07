package policies_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/jmcalloway/claimward/internal/policies"
	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/internal/rules"
	"github.com/jmcalloway/claimward/pkg/pagination"
)

const validCatalog = `
policies:
  - id: hairdryer-standard
    name: Hair Dryer Standard Warranty
    warranty_days: 90
    exclusions:
      - category: commercial use
        keywords: [salon, barbershop]
    required_evidence: [serial_number, proof_of_purchase]
    sections:
      - name: Coverage
        content: covers heating element failure
  - id: blender-extended
    name: Blender Extended Warranty
    warranty_days: 365

products:
  - name: AeroDry 2000
    aliases: [aerodry, hair dryer]
    policy_id: hairdryer-standard
  - name: Pro
    policy_id: hairdryer-standard
  - name: VortexBlend Pro 500
    aliases: [vortexblend]
    policy_id: blender-extended
`

func parse(t *testing.T, doc string) *policies.Catalog {
	t.Helper()
	c, err := policies.ParseCatalog(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

func seededCatalog(t *testing.T) *policies.MemoryCatalog {
	t.Helper()
	m := policies.NewMemoryCatalog(
		slog.New(slog.DiscardHandler),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
	if err := m.Seed(context.Background(), parse(t, validCatalog)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return m
}

func TestParseCatalog(t *testing.T) {
	c := parse(t, validCatalog)

	if len(c.Policies) != 2 {
		t.Fatalf("policies: got %d, want 2", len(c.Policies))
	}
	if len(c.Products) != 3 {
		t.Fatalf("products: got %d, want 3", len(c.Products))
	}

	p := c.Policies[0]
	if p.ID != "hairdryer-standard" || p.WarrantyDays != 90 {
		t.Errorf("first policy: %+v", p)
	}
	if len(p.Exclusions) != 1 || p.Exclusions[0].Category != "commercial use" {
		t.Errorf("exclusions: %+v", p.Exclusions)
	}
	if len(p.Sections) != 1 || p.Sections[0].Name != "Coverage" {
		t.Errorf("sections: %+v", p.Sections)
	}
}

func TestParseCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "missing policy id",
			doc: `
policies:
  - name: No Identifier
    warranty_days: 90
`,
			wantErr: "missing id",
		},
		{
			name: "non-positive warranty",
			doc: `
policies:
  - id: broken
    warranty_days: 0
`,
			wantErr: "warranty_days",
		},
		{
			name: "product without name",
			doc: `
policies:
  - id: ok
    warranty_days: 30
products:
  - policy_id: ok
`,
			wantErr: "missing name",
		},
		{
			name: "dangling policy reference",
			doc: `
policies:
  - id: ok
    warranty_days: 30
products:
  - name: Widget
    policy_id: no-such-policy
`,
			wantErr: "unknown policy",
		},
		{
			name:    "malformed yaml",
			doc:     "policies: [",
			wantErr: "decode catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policies.ParseCatalog(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSelectMatchesProductName(t *testing.T) {
	m := seededCatalog(t)

	p, err := m.Select(context.Background(), "my aerodry 2000 stopped working")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if p.ID != "hairdryer-standard" {
		t.Errorf("policy: got %s, want hairdryer-standard", p.ID)
	}
}

func TestSelectMatchesAlias(t *testing.T) {
	m := seededCatalog(t)

	p, err := m.Select(context.Background(), "the hair dryer quit on me")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if p.ID != "hairdryer-standard" {
		t.Errorf("policy: got %s, want hairdryer-standard", p.ID)
	}
}

func TestSelectPrefersLongestMatch(t *testing.T) {
	m := seededCatalog(t)

	// "Pro" also matches, but the longer product name must win.
	p, err := m.Select(context.Background(), "issue with my vortexblend pro 500 blender")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if p.ID != "blender-extended" {
		t.Errorf("policy: got %s, want blender-extended", p.ID)
	}
}

func TestSelectNoMatch(t *testing.T) {
	m := seededCatalog(t)

	_, err := m.Select(context.Background(), "my toaster caught fire")
	if !errors.Is(err, policies.ErrNoMatch) {
		t.Fatalf("got %v, want ErrNoMatch", err)
	}
}

func TestSelectEmptyText(t *testing.T) {
	m := seededCatalog(t)

	_, err := m.Select(context.Background(), "   ")
	if !errors.Is(err, policies.ErrNoMatch) {
		t.Fatalf("got %v, want ErrNoMatch", err)
	}
}

func TestRulesFromPolicy(t *testing.T) {
	m := seededCatalog(t)

	rs, err := m.Rules(context.Background(), "hairdryer-standard")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	if rs.PolicyID != "hairdryer-standard" {
		t.Errorf("rule set policy: got %s", rs.PolicyID)
	}
	if rs.WarrantyDays != 90 {
		t.Errorf("warranty days: got %d, want 90", rs.WarrantyDays)
	}
	if len(rs.Exclusions) != 1 {
		t.Errorf("exclusions: got %d, want 1", len(rs.Exclusions))
	}
	if len(rs.RequiredEvidence) != 2 {
		t.Errorf("required evidence: got %d, want 2", len(rs.RequiredEvidence))
	}
}

func TestRulesUnknownPolicy(t *testing.T) {
	m := seededCatalog(t)

	_, err := m.Rules(context.Background(), "no-such-policy")
	if !errors.Is(err, policies.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestFindPolicy(t *testing.T) {
	m := seededCatalog(t)
	ctx := context.Background()

	p, err := m.FindPolicy(ctx, "blender-extended")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if p.Name != "Blender Extended Warranty" {
		t.Errorf("name: got %s", p.Name)
	}

	if _, err := m.FindPolicy(ctx, "missing"); !errors.Is(err, policies.ErrNotFound) {
		t.Errorf("find missing: got %v, want ErrNotFound", err)
	}
}

func TestListProductsFilteredByPolicy(t *testing.T) {
	m := seededCatalog(t)

	policyID := "hairdryer-standard"
	result, err := m.ListProducts(
		context.Background(),
		pagination.PageRequest{},
		policies.Filters{PolicyID: &policyID},
	)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}

	if len(result.Data) != 2 {
		t.Fatalf("products: got %d, want 2", len(result.Data))
	}
	for _, p := range result.Data {
		if p.PolicyID != policyID {
			t.Errorf("product %s policy: got %s", p.Name, p.PolicyID)
		}
	}
}

func TestPolicyRuleSetCarriesEvidence(t *testing.T) {
	p := policies.Policy{
		ID:               "widget-basic",
		WarrantyDays:     30,
		Exclusions:       []rules.Exclusion{{Category: "misuse", Keywords: []string{"hammer"}}},
		RequiredEvidence: []string{rules.EvidenceSerialNumber},
		Sections:         []retrieval.Section{{Name: "Coverage", Content: "covers everything"}},
	}

	rs := p.RuleSet()
	if rs.PolicyID != "widget-basic" || rs.WarrantyDays != 30 {
		t.Errorf("rule set: %+v", rs)
	}
	if len(rs.Exclusions) != 1 || len(rs.RequiredEvidence) != 1 {
		t.Errorf("rule set contents: %+v", rs)
	}
}
