package claims

import (
	"fmt"
	"strings"
)

// renderPacket builds the human-readable review packet presented at the
// review gate. Markdown keeps it portable across operator surfaces.
func renderPacket(state *ClaimState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Warranty Claim Review: %s\n\n", state.ID)

	fmt.Fprintf(&b, "## Message\n\n")
	fmt.Fprintf(&b, "- **From:** %s\n", state.Raw.Sender)
	fmt.Fprintf(&b, "- **Subject:** %s\n", state.Raw.Subject)
	fmt.Fprintf(&b, "- **Received:** %s\n\n", state.Raw.ReceivedAt.Format("2006-01-02 15:04 MST"))

	if state.Triage != nil {
		fmt.Fprintf(&b, "## Triage\n\n")
		fmt.Fprintf(&b, "- **Classification:** %s (%.2f)\n", state.Triage.Classification, state.Triage.Confidence)
		if state.Triage.Reason != "" {
			fmt.Fprintf(&b, "- **Reason:** %s\n", state.Triage.Reason)
		}
		b.WriteString("\n")
	}

	if ex := state.Extracted; ex != nil {
		fmt.Fprintf(&b, "## Extracted Fields\n\n")
		writeField(&b, "Customer", ex.CustomerName)
		writeField(&b, "Email", ex.CustomerEmail)
		writeField(&b, "Product", ex.ProductName)
		writeField(&b, "Serial", ex.ProductSerial)
		if ex.PurchaseDate != nil {
			writeField(&b, "Purchase date", ex.PurchaseDate.Format("2006-01-02"))
		}
		writeField(&b, "Order", ex.OrderNumber)
		writeField(&b, "Issue", ex.IssueDescription)
		fmt.Fprintf(&b, "- **Proof of purchase:** %t\n\n", ex.HasProofOfPurchase)
	}

	if state.PolicyID != "" {
		fmt.Fprintf(&b, "## Policy\n\n- **Policy:** %s\n\n", state.PolicyID)
	}

	if len(state.Excerpts) > 0 {
		fmt.Fprintf(&b, "## Relevant Policy Excerpts\n\n")
		for i, excerpt := range state.Excerpts {
			fmt.Fprintf(&b, "%d. **%s** (%.2f): %s\n", i+1, excerpt.Section, excerpt.Score, excerpt.Content)
		}
		b.WriteString("\n")
	}

	if v := state.RuleVerdict; v != nil {
		fmt.Fprintf(&b, "## Deterministic Evaluation\n\n")
		fmt.Fprintf(&b, "- **Outcome:** %s\n", v.Outcome)
		if v.Reason != "" {
			fmt.Fprintf(&b, "- **Reason:** %s\n", v.Reason)
		}
		if len(v.MissingFields) > 0 {
			fmt.Fprintf(&b, "- **Missing:** %s\n", strings.Join(v.MissingFields, ", "))
		}
		for _, fact := range v.Facts {
			fmt.Fprintf(&b, "- %s\n", fact)
		}
		b.WriteString("\n")
	}

	if a := state.Analysis; a != nil {
		fmt.Fprintf(&b, "## Recommendation\n\n")
		fmt.Fprintf(&b, "- **Outcome:** %s (%.2f)\n", a.Outcome, a.Confidence)
		if a.Reasoning != "" {
			fmt.Fprintf(&b, "- **Reasoning:** %s\n", a.Reasoning)
		}
		for _, fact := range a.Facts {
			fmt.Fprintf(&b, "- %s\n", fact)
		}
		if state.Recommendation != nil {
			for _, assumption := range state.Recommendation.Assumptions {
				fmt.Fprintf(&b, "- *Assumes:* %s\n", assumption)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "- **%s:** %s\n", label, value)
	}
}
