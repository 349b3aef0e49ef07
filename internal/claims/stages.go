package claims

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmcalloway/claimward/internal/policies"
	"github.com/jmcalloway/claimward/internal/reasoning"
	"github.com/jmcalloway/claimward/internal/rules"
	"github.com/jmcalloway/claimward/pkg/formatting"
)

// step executes exactly one automatic stage transition, mutating state in
// place. The caller persists the result before invoking step again.
func (e *Engine) step(ctx context.Context, state *ClaimState) error {
	switch state.Stage {
	case StageIngested:
		return e.triage(ctx, state)
	case StageTriaged:
		return e.route(ctx, state)
	case StageExtracted:
		return e.selectPolicy(ctx, state)
	case StagePolicySelected:
		return e.retrieve(ctx, state)
	case StageExcerptsRetrieved:
		return e.analyze(ctx, state)
	case StageAnalyzed:
		return e.buildPacket(state)
	case StageReviewPacketReady:
		state.Stage = StageAwaitingHumanReview
		return nil
	case StageDecisionRecorded:
		return e.draft(ctx, state)
	case StageResponseDrafted:
		state.Stage = StageAwaitingDispatch
		return nil
	default:
		return fmt.Errorf("no automatic transition from stage %s", state.Stage)
	}
}

type triageResult struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

const systemPrompt = `You assist a warranty claims team. Follow the ` +
	`instruction exactly and respond in the requested format only.`

const triagePrompt = `Classify the message as CLAIM, NON_CLAIM, or SPAM. ` +
	`Respond with JSON: {"classification": ..., "confidence": ..., "reason": ...}`

// triage classifies the inbound message. Obvious spam is archived by the
// indicator scan before the oracle is consulted, so it never costs a gateway
// call. A gateway failure routes the message forward as a claim so a human
// eventually sees it; only a positive classification archives it.
func (e *Engine) triage(ctx context.Context, state *ClaimState) error {
	material := state.Raw.Subject + "\n\n" + state.Raw.Body

	if n := reasoning.SpamIndicators(material); n >= reasoning.SpamThreshold {
		state.Triage = &Triage{
			Classification: TriageSpam,
			Confidence:     1.0,
			Reason:         fmt.Sprintf("%d spam indicators detected", n),
		}
		state.Stage = StageTriaged
		return nil
	}

	gctx, cancel := e.gatewayContext(ctx)
	defer cancel()

	resp, err := e.reasoner.Complete(gctx, reasoning.Request{
		Kind:    reasoning.KindTriage,
		System:  systemPrompt,
		Prompt:  triagePrompt,
		Payload: material,
	})
	if err != nil {
		e.logger.Warn("triage unavailable", "claim_id", state.ID, "error", err)
		state.Triage = &Triage{
			Classification: TriageClaim,
			Reason:         "classification unavailable, routed to manual review",
		}
		state.Stage = StageTriaged
		return nil
	}

	result, err := formatting.Parse[triageResult](resp.Content)
	if err != nil {
		e.logger.Warn("triage response malformed", "claim_id", state.ID, "error", err)
		state.Triage = &Triage{
			Classification: TriageClaim,
			Reason:         "classification unreadable, routed to manual review",
		}
		state.Stage = StageTriaged
		return nil
	}

	classification := strings.ToUpper(strings.TrimSpace(result.Classification))
	switch classification {
	case TriageClaim, TriageNonClaim, TriageSpam:
	default:
		classification = TriageClaim
	}

	state.Triage = &Triage{
		Classification: classification,
		Confidence:     result.Confidence,
		Reason:         result.Reason,
	}
	state.Stage = StageTriaged
	return nil
}

// route archives spam and non-claims; everything else proceeds to extraction.
func (e *Engine) route(ctx context.Context, state *ClaimState) error {
	switch state.Triage.Classification {
	case TriageSpam:
		state.Stage = StageArchivedSpam
		return nil
	case TriageNonClaim:
		state.Stage = StageArchivedNonClaim
		return nil
	default:
		return e.extract(ctx, state)
	}
}

type extractResult struct {
	CustomerName       string `json:"customer_name"`
	CustomerEmail      string `json:"customer_email"`
	ProductName        string `json:"product_name"`
	ProductSerial      string `json:"product_serial"`
	PurchaseDate       string `json:"purchase_date"`
	OrderNumber        string `json:"order_number"`
	IssueDescription   string `json:"issue_description"`
	HasProofOfPurchase bool   `json:"has_proof_of_purchase"`
}

const extractPrompt = `Extract structured warranty claim fields from the message. ` +
	`Respond with JSON containing customer_name, customer_email, product_name, ` +
	`product_serial, purchase_date (ISO date), order_number, issue_description, ` +
	`and has_proof_of_purchase. Use null for unknown fields.`

func (e *Engine) extract(ctx context.Context, state *ClaimState) error {
	gctx, cancel := e.gatewayContext(ctx)
	defer cancel()

	extracted := e.fallbackExtract(state)

	resp, err := e.reasoner.Complete(gctx, reasoning.Request{
		Kind:    reasoning.KindExtract,
		System:  systemPrompt,
		Prompt:  extractPrompt,
		Payload: state.Raw.Subject + "\n\n" + state.Raw.Body,
	})
	if err != nil {
		e.logger.Warn("extraction unavailable, using pattern fallback", "claim_id", state.ID, "error", err)
	} else if result, perr := formatting.Parse[extractResult](resp.Content); perr != nil {
		e.logger.Warn("extraction response malformed, using pattern fallback", "claim_id", state.ID, "error", perr)
	} else {
		merge := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		merge(&extracted.CustomerName, result.CustomerName)
		merge(&extracted.CustomerEmail, result.CustomerEmail)
		merge(&extracted.ProductName, result.ProductName)
		merge(&extracted.ProductSerial, result.ProductSerial)
		merge(&extracted.OrderNumber, result.OrderNumber)
		merge(&extracted.IssueDescription, result.IssueDescription)
		if result.HasProofOfPurchase {
			extracted.HasProofOfPurchase = true
		}
		if d, derr := time.Parse("2006-01-02", result.PurchaseDate); derr == nil {
			extracted.PurchaseDate = &d
		}
	}

	state.Extracted = extracted
	state.Stage = StageExtracted
	return nil
}

var fallbackDatePattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

// fallbackExtract derives a minimal extraction from the raw message alone,
// so downstream stages always have an Extraction to work with.
func (e *Engine) fallbackExtract(state *ClaimState) *Extraction {
	extracted := &Extraction{
		CustomerEmail:      state.Raw.Sender,
		IssueDescription:   strings.TrimSpace(state.Raw.Subject),
		HasProofOfPurchase: strings.Contains(strings.ToLower(state.Raw.Body), "receipt"),
	}

	if m := fallbackDatePattern.FindString(state.Raw.Body); m != "" {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			extracted.PurchaseDate = &d
		}
	}

	return extracted
}

// selectPolicy matches extracted product text against the catalog. A claim
// with no matching product proceeds without a policy; analysis then yields
// NEED_INFO rather than failing the workflow.
func (e *Engine) selectPolicy(ctx context.Context, state *ClaimState) error {
	candidates := []string{
		state.Extracted.ProductName,
		state.Raw.Subject + " " + state.Raw.Body,
	}

	for _, text := range candidates {
		policy, err := e.catalog.Select(ctx, text)
		if err == nil {
			state.PolicyID = policy.ID
			break
		}
		if !errors.Is(err, policies.ErrNoMatch) {
			return fmt.Errorf("select policy: %w", err)
		}
	}

	if state.PolicyID == "" {
		e.logger.Warn("no policy matched", "claim_id", state.ID)
	}

	state.Stage = StagePolicySelected
	return nil
}

// retrieve pulls ranked policy excerpts for the claim's issue. Retrieval
// failures are non-fatal; the analysis simply runs without excerpts.
func (e *Engine) retrieve(ctx context.Context, state *ClaimState) error {
	state.Stage = StageExcerptsRetrieved

	if state.PolicyID == "" {
		return nil
	}

	query := state.Extracted.IssueDescription
	if query == "" {
		query = state.Raw.Subject
	}

	gctx, cancel := e.gatewayContext(ctx)
	defer cancel()

	seq, err := e.searcher.Search(gctx, state.PolicyID, query, e.cfg.ExcerptLimit)
	if err != nil {
		e.logger.Warn("retrieval unavailable", "claim_id", state.ID, "error", err)
		return nil
	}

	// Insertion order preserves the gateway's ranking.
	for excerpt := range seq {
		state.Excerpts = append(state.Excerpts, excerpt)
	}
	return nil
}

type analyzeResult struct {
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	Facts          []string `json:"facts"`
	Assumptions    []string `json:"assumptions"`
	Reasoning      string   `json:"reasoning"`
}

const analyzePrompt = `Assess the warranty claim against the policy excerpts. ` +
	`Respond with JSON containing recommendation (APPROVE, REJECT, or NEED_INFO), ` +
	`confidence, facts, assumptions, and reasoning.`

// analyze runs the deterministic evaluator first; only an inconclusive
// verdict consults the reasoning gateway. The evaluator's conclusions are
// never overridden by the oracle.
func (e *Engine) analyze(ctx context.Context, state *ClaimState) error {
	state.Stage = StageAnalyzed

	if state.PolicyID == "" {
		state.Analysis = &Analysis{
			Outcome:   rules.OutcomeNeedInfo,
			Reasoning: "no warranty policy matched the claim; product identification required",
		}
		return nil
	}

	rs, err := e.catalog.Rules(ctx, state.PolicyID)
	if err != nil {
		return fmt.Errorf("load rules for policy %s: %w", state.PolicyID, err)
	}

	verdict := rules.Evaluate(e.facts(state), *rs, e.now())
	state.RuleVerdict = &verdict

	if verdict.Outcome != rules.OutcomeInconclusive {
		state.Analysis = &Analysis{
			Outcome:    verdict.Outcome,
			Confidence: verdict.Confidence,
			Facts:      verdict.Facts,
			Reasoning:  verdict.Reason,
		}
		if verdict.Outcome == rules.OutcomeNeedInfo {
			state.Analysis.Reasoning = "missing required information: " +
				strings.Join(verdict.MissingFields, ", ")
		}
		return nil
	}

	rec := e.recommend(ctx, state)
	if rec == nil {
		state.Analysis = &Analysis{
			Outcome:   rules.OutcomeNeedInfo,
			Facts:     verdict.Facts,
			Reasoning: "automated analysis was unavailable; manual assessment required",
		}
		return nil
	}

	state.Recommendation = rec
	state.Analysis = &Analysis{
		Outcome:    rec.Outcome,
		Confidence: rec.Confidence,
		Facts:      append(append([]string{}, verdict.Facts...), rec.Facts...),
		Reasoning:  rec.Reasoning,
	}
	return nil
}

// recommend consults the reasoning gateway for an inconclusive claim.
// Returns nil on any gateway failure.
func (e *Engine) recommend(ctx context.Context, state *ClaimState) *Recommendation {
	var payload strings.Builder
	payload.WriteString("Issue: ")
	payload.WriteString(state.Extracted.IssueDescription)
	payload.WriteString("\n\n")
	payload.WriteString(state.Raw.Body)
	for _, excerpt := range state.Excerpts {
		payload.WriteString("\n\n[")
		payload.WriteString(excerpt.Section)
		payload.WriteString("] ")
		payload.WriteString(excerpt.Content)
	}

	gctx, cancel := e.gatewayContext(ctx)
	defer cancel()

	resp, err := e.reasoner.Complete(gctx, reasoning.Request{
		Kind:    reasoning.KindAnalyze,
		System:  systemPrompt,
		Prompt:  analyzePrompt,
		Payload: payload.String(),
	})
	if err != nil {
		e.logger.Warn("analysis unavailable", "claim_id", state.ID, "error", err)
		return nil
	}

	result, err := formatting.Parse[analyzeResult](resp.Content)
	if err != nil {
		e.logger.Warn("analysis response malformed", "claim_id", state.ID, "error", err)
		return nil
	}

	outcome := rules.Outcome(strings.ToUpper(strings.TrimSpace(result.Recommendation)))
	switch outcome {
	case rules.OutcomeApproveEligible, rules.OutcomeReject, rules.OutcomeNeedInfo:
	default:
		outcome = rules.OutcomeNeedInfo
	}

	return &Recommendation{
		Outcome:     outcome,
		Confidence:  result.Confidence,
		Facts:       result.Facts,
		Assumptions: result.Assumptions,
		Reasoning:   result.Reasoning,
	}
}

func (e *Engine) facts(state *ClaimState) rules.Facts {
	issue := state.Extracted.IssueDescription
	if issue == "" {
		issue = state.Raw.Subject
	}

	return rules.Facts{
		IssueDescription:   issue,
		AttachmentText:     state.Raw.Body,
		PurchaseDate:       state.Extracted.PurchaseDate,
		SerialNumber:       state.Extracted.ProductSerial,
		HasProofOfPurchase: state.Extracted.HasProofOfPurchase,
	}
}

func (e *Engine) buildPacket(state *ClaimState) error {
	state.ReviewPacket = renderPacket(state)
	state.Stage = StageReviewPacketReady
	return nil
}

const draftPrompt = `Rewrite the response below as a courteous customer service ` +
	`message. Keep every factual statement unchanged.`

// draft composes the customer response from the decision outcome template,
// then lets the reasoning gateway refine the wording. The template stands on
// its own when the gateway is unavailable.
func (e *Engine) draft(ctx context.Context, state *ClaimState) error {
	base := draftTemplate(state)

	gctx, cancel := e.gatewayContext(ctx)
	defer cancel()

	resp, err := e.reasoner.Complete(gctx, reasoning.Request{
		Kind:    reasoning.KindDraft,
		System:  systemPrompt,
		Prompt:  draftPrompt,
		Payload: base,
	})
	if err != nil {
		e.logger.Warn("draft refinement unavailable", "claim_id", state.ID, "error", err)
		state.Draft = base
	} else if strings.TrimSpace(resp.Content) == "" {
		state.Draft = base
	} else {
		state.Draft = resp.Content
	}

	state.Stage = StageResponseDrafted
	return nil
}

func draftTemplate(state *ClaimState) string {
	name := "customer"
	if state.Extracted != nil && state.Extracted.CustomerName != "" {
		name = state.Extracted.CustomerName
	}

	var note string
	if state.HumanDecision != nil && state.HumanDecision.Note != "" {
		note = "\n\n" + state.HumanDecision.Note
	}

	switch state.HumanDecision.Outcome {
	case DecisionApprove:
		return fmt.Sprintf(
			"Dear %s,\n\nYour warranty claim has been approved. "+
				"We will ship a replacement or arrange a repair within 5 business days.%s",
			name, note,
		)
	case DecisionReject:
		reason := "the claim falls outside the terms of the warranty policy"
		if state.Analysis != nil && state.Analysis.Reasoning != "" {
			reason = state.Analysis.Reasoning
		}
		return fmt.Sprintf(
			"Dear %s,\n\nAfter review, we are unable to approve your warranty claim: %s.%s",
			name, reason, note,
		)
	default:
		var missing string
		if state.RuleVerdict != nil && len(state.RuleVerdict.MissingFields) > 0 {
			missing = "\n\nPlease provide: " + strings.Join(state.RuleVerdict.MissingFields, ", ") + "."
		}
		return fmt.Sprintf(
			"Dear %s,\n\nWe need additional information before we can process your warranty claim.%s%s",
			name, missing, note,
		)
	}
}
