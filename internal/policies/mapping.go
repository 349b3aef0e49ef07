package policies

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jmcalloway/claimward/pkg/query"
	"github.com/jmcalloway/claimward/pkg/repository"
)

var policyProjection = query.
	NewProjectionMap("public", "policies", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("warranty_days", "WarrantyDays").
	Project("exclusions", "Exclusions").
	Project("required_evidence", "RequiredEvidence").
	Project("sections", "Sections").
	Project("created_at", "CreatedAt")

var productProjection = query.
	NewProjectionMap("public", "products", "pr").
	Project("id", "ID").
	Project("name", "Name").
	Project("aliases", "Aliases").
	Project("policy_id", "PolicyID").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for catalog queries.
// Nil fields are ignored.
type Filters struct {
	PolicyID *string `json:"policy_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("PolicyID", f.PolicyID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if p := values.Get("policy_id"); p != "" {
		f.PolicyID = &p
	}

	return f
}

func scanPolicy(s repository.Scanner) (Policy, error) {
	var p Policy
	var exclusionsRaw, evidenceRaw, sectionsRaw []byte

	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.WarrantyDays,
		&exclusionsRaw,
		&evidenceRaw,
		&sectionsRaw,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	if len(exclusionsRaw) > 0 {
		if err := json.Unmarshal(exclusionsRaw, &p.Exclusions); err != nil {
			return p, fmt.Errorf("unmarshal exclusions: %w", err)
		}
	}

	if len(evidenceRaw) > 0 {
		if err := json.Unmarshal(evidenceRaw, &p.RequiredEvidence); err != nil {
			return p, fmt.Errorf("unmarshal required_evidence: %w", err)
		}
	}

	if len(sectionsRaw) > 0 {
		if err := json.Unmarshal(sectionsRaw, &p.Sections); err != nil {
			return p, fmt.Errorf("unmarshal sections: %w", err)
		}
	}

	if p.RequiredEvidence == nil {
		p.RequiredEvidence = []string{}
	}

	return p, nil
}

func scanProduct(s repository.Scanner) (Product, error) {
	var p Product
	var aliasesRaw []byte

	err := s.Scan(
		&p.ID,
		&p.Name,
		&aliasesRaw,
		&p.PolicyID,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	if len(aliasesRaw) > 0 {
		if err := json.Unmarshal(aliasesRaw, &p.Aliases); err != nil {
			return p, fmt.Errorf("unmarshal aliases: %w", err)
		}
	}

	if p.Aliases == nil {
		p.Aliases = []string{}
	}

	return p, nil
}
