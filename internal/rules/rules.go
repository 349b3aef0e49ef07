// Package rules implements the deterministic policy evaluator for warranty claims.
// Evaluation is a pure function over extracted claim facts and a policy rule set;
// it never consults external services and produces identical output for identical input.
package rules

import "time"

// Outcome is the categorical result of a policy evaluation.
type Outcome string

// Evaluation outcomes. ApproveEligible is reserved for merged analysis records;
// the deterministic evaluator itself defers clean claims to Inconclusive.
const (
	OutcomeApproveEligible Outcome = "APPROVE"
	OutcomeReject          Outcome = "REJECT"
	OutcomeNeedInfo        Outcome = "NEED_INFO"
	OutcomeInconclusive    Outcome = "INCONCLUSIVE"
)

// Well-known required evidence identifiers.
const (
	EvidenceSerialNumber    = "serial_number"
	EvidenceProofOfPurchase = "proof_of_purchase"
	EvidencePurchaseDate    = "purchase_date"
)

// Exclusion groups keywords under a policy exclusion category
// (e.g. "commercial use" covering "salon", "barbershop").
type Exclusion struct {
	Category string   `json:"category" yaml:"category"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// RuleSet is the externally supplied policy contract for one product policy.
// It is immutable during a single evaluation.
type RuleSet struct {
	PolicyID         string      `json:"policy_id" yaml:"policy_id"`
	WarrantyDays     int         `json:"warranty_days" yaml:"warranty_days"`
	Exclusions       []Exclusion `json:"exclusions" yaml:"exclusions"`
	RequiredEvidence []string    `json:"required_evidence" yaml:"required_evidence"`
}

// Facts holds the deterministic inputs extracted from a claim.
// Extra carries satisfaction flags for policy-specific evidence requirements
// beyond the well-known fields.
type Facts struct {
	IssueDescription   string
	AttachmentText     string
	PurchaseDate       *time.Time
	SerialNumber       string
	HasProofOfPurchase bool
	Extra              map[string]bool
}

// Verdict is the evaluator's result: an outcome plus the supporting detail
// for that outcome. Confidence is 1.0 for deterministic conclusions and 0
// for Inconclusive, where the reasoning gateway takes over.
type Verdict struct {
	Outcome       Outcome  `json:"outcome"`
	Reason        string   `json:"reason,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Facts         []string `json:"facts,omitempty"`
	Confidence    float64  `json:"confidence"`
}
