// Package claims implements the durable workflow engine for warranty claims.
// A claim advances through ordered stages, suspends at human gates, and
// persists a checkpoint at every stage boundary so a process restart resumes
// exactly where processing stopped.
package claims

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/dispatch"
	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/internal/rules"
)

// Stage is a named point in the claim lifecycle.
type Stage string

// Lifecycle stages in pipeline order. ArchivedSpam, ArchivedNonClaim,
// Dispatched, and Finalized are terminal; AwaitingHumanReview and
// AwaitingDispatchConfirmation are suspend points.
const (
	StageIngested             Stage = "INGESTED"
	StageTriaged              Stage = "TRIAGED"
	StageExtracted            Stage = "EXTRACTED"
	StageArchivedSpam         Stage = "ARCHIVED_SPAM"
	StageArchivedNonClaim     Stage = "ARCHIVED_NON_CLAIM"
	StagePolicySelected       Stage = "POLICY_SELECTED"
	StageExcerptsRetrieved    Stage = "EXCERPTS_RETRIEVED"
	StageAnalyzed             Stage = "ANALYZED"
	StageReviewPacketReady    Stage = "REVIEW_PACKET_READY"
	StageAwaitingHumanReview  Stage = "AWAITING_HUMAN_REVIEW"
	StageDecisionRecorded     Stage = "DECISION_RECORDED"
	StageResponseDrafted      Stage = "RESPONSE_DRAFTED"
	StageAwaitingDispatch     Stage = "AWAITING_DISPATCH_CONFIRMATION"
	StageDispatched           Stage = "DISPATCHED"
	StageFinalized            Stage = "FINALIZED"
)

// TransitionCancelled names the operator-initiated rewind edge, the one
// sanctioned exception to monotonic stage progression.
const TransitionCancelled = "CANCELLED_TO_PENDING"

// Terminal reports whether the stage ends the claim's lifecycle.
func (s Stage) Terminal() bool {
	switch s {
	case StageArchivedSpam, StageArchivedNonClaim, StageDispatched, StageFinalized:
		return true
	}
	return false
}

// Suspended reports whether the stage is a human gate awaiting external input.
func (s Stage) Suspended() bool {
	return s == StageAwaitingHumanReview || s == StageAwaitingDispatch
}

// TerminalStageNames returns the terminal stage set for checkpoint store
// construction.
func TerminalStageNames() []string {
	return []string{
		string(StageArchivedSpam),
		string(StageArchivedNonClaim),
		string(StageDispatched),
		string(StageFinalized),
	}
}

// Triage classifications.
const (
	TriageClaim    = "CLAIM"
	TriageNonClaim = "NON_CLAIM"
	TriageSpam     = "SPAM"
)

// Human decision outcomes.
const (
	DecisionApprove  = "APPROVE"
	DecisionReject   = "REJECT"
	DecisionNeedInfo = "NEED_INFO"
)

// RawClaim is the inbound payload as submitted by the ingestion collaborator.
type RawClaim struct {
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Sender     string    `json:"sender"`
	ReceivedAt time.Time `json:"received_at"`
}

// Triage is the classification verdict for the inbound message.
type Triage struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// Extraction holds structured fields pulled from the raw claim. Every field
// is optional until its producing stage runs; nil pointers mean unknown.
type Extraction struct {
	CustomerName       string     `json:"customer_name,omitempty"`
	CustomerEmail      string     `json:"customer_email,omitempty"`
	ProductName        string     `json:"product_name,omitempty"`
	ProductSerial      string     `json:"product_serial,omitempty"`
	PurchaseDate       *time.Time `json:"purchase_date,omitempty"`
	OrderNumber        string     `json:"order_number,omitempty"`
	IssueDescription   string     `json:"issue_description,omitempty"`
	HasProofOfPurchase bool       `json:"has_proof_of_purchase"`
}

// Recommendation is the reasoning gateway's substantive verdict, produced
// only when the deterministic evaluator defers with Inconclusive.
type Recommendation struct {
	Outcome     rules.Outcome `json:"outcome"`
	Confidence  float64       `json:"confidence"`
	Facts       []string      `json:"facts,omitempty"`
	Assumptions []string      `json:"assumptions,omitempty"`
	Reasoning   string        `json:"reasoning,omitempty"`
}

// Analysis merges the deterministic verdict with the reasoning
// recommendation into the record presented to the human reviewer.
type Analysis struct {
	Outcome    rules.Outcome `json:"outcome"`
	Confidence float64       `json:"confidence"`
	Facts      []string      `json:"facts,omitempty"`
	Reasoning  string        `json:"reasoning,omitempty"`
}

// Decision is the human reviewer's outcome recorded at the review gate.
type Decision struct {
	Outcome   string    `json:"outcome"`
	Note      string    `json:"note,omitempty"`
	Reviewer  string    `json:"reviewer,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ClaimState is the unit of work. It is exclusively owned by the engine
// during processing; readers observe it only through checkpoints.
type ClaimState struct {
	ID               uuid.UUID           `json:"id"`
	Stage            Stage               `json:"stage"`
	Raw              RawClaim            `json:"raw"`
	Triage           *Triage             `json:"triage,omitempty"`
	Extracted        *Extraction         `json:"extracted,omitempty"`
	PolicyID         string              `json:"policy_id,omitempty"`
	Excerpts         []retrieval.Excerpt `json:"excerpts,omitempty"`
	RuleVerdict      *rules.Verdict      `json:"rule_verdict,omitempty"`
	Recommendation   *Recommendation     `json:"recommendation,omitempty"`
	Analysis         *Analysis           `json:"analysis,omitempty"`
	ReviewPacket     string              `json:"review_packet,omitempty"`
	HumanDecision    *Decision           `json:"human_decision,omitempty"`
	Draft            string              `json:"draft,omitempty"`
	DispatchOutcome  *dispatch.Record    `json:"dispatch_outcome,omitempty"`
	DispatchAttempt  int                 `json:"dispatch_attempt"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Seq              int64               `json:"-"`
}

// Submission carries the data needed to create a claim.
type Submission struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

// DecisionCommand carries the resume input for a suspend stage. Stage must
// match the claim's current suspend point.
type DecisionCommand struct {
	Stage    Stage  `json:"stage"`
	Outcome  string `json:"outcome"`
	Note     string `json:"note,omitempty"`
	Reviewer string `json:"reviewer,omitempty"`
}
