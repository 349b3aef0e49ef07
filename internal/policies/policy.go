// Package policies implements the product catalog and warranty policy domain.
// It stores products with matchable aliases, the rule sets attached to their
// policies, and the policy document sections that back excerpt retrieval.
package policies

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/internal/rules"
)

// Product is a catalog entry. Aliases are lowercase alternative names matched
// against extracted product text during policy selection.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Aliases   []string  `json:"aliases"`
	PolicyID  string    `json:"policy_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Policy is a warranty policy: the rule set evaluated against a claim plus
// the document sections served to the retrieval index.
type Policy struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	WarrantyDays     int                 `json:"warranty_days"`
	Exclusions       []rules.Exclusion   `json:"exclusions"`
	RequiredEvidence []string            `json:"required_evidence"`
	Sections         []retrieval.Section `json:"sections"`
	CreatedAt        time.Time           `json:"created_at"`
}

// RuleSet converts the policy to the evaluator's input form.
func (p *Policy) RuleSet() rules.RuleSet {
	return rules.RuleSet{
		PolicyID:         p.ID,
		WarrantyDays:     p.WarrantyDays,
		Exclusions:       p.Exclusions,
		RequiredEvidence: p.RequiredEvidence,
	}
}
