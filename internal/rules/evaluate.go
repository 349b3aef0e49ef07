package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	negationPattern   = regexp.MustCompile(`\b(no|not|never)\b`)
)

// negationWindow is how far back (in characters) to look for a negating word
// before a matched exclusion keyword.
const negationWindow = 12

// Evaluate runs the deterministic policy checks against the claim facts.
//
// Check order is fixed and significant:
//  1. exclusion keyword scan over issue description and attachment text;
//     any hit rejects immediately, even when other fields are also missing
//  2. warranty window: missing purchase date needs info, elapsed window rejects
//  3. required evidence: every missing item is listed, not just the first
//  4. all checks pass: Inconclusive, deferring to the reasoning gateway
func Evaluate(facts Facts, rs RuleSet, now time.Time) Verdict {
	if v, hit := checkExclusions(facts, rs); hit {
		return v
	}

	if v, conclusive := checkWarrantyWindow(facts, rs, now); conclusive {
		return v
	}

	if v, missing := checkRequiredEvidence(facts, rs); missing {
		return v
	}

	return Verdict{
		Outcome: OutcomeInconclusive,
		Facts:   []string{"no exclusions triggered", "warranty window valid", "required evidence present"},
	}
}

func checkExclusions(facts Facts, rs RuleSet) (Verdict, bool) {
	text := normalize(facts.IssueDescription + " " + facts.AttachmentText)

	for _, excl := range rs.Exclusions {
		for _, kw := range excl.Keywords {
			if keywordPresent(text, normalize(kw)) {
				return Verdict{
					Outcome:    OutcomeReject,
					Reason:     excl.Category,
					Facts:      []string{fmt.Sprintf("exclusion keyword %q matched category %q", kw, excl.Category)},
					Confidence: 1.0,
				}, true
			}
		}
	}

	return Verdict{}, false
}

func checkWarrantyWindow(facts Facts, rs RuleSet, now time.Time) (Verdict, bool) {
	if facts.PurchaseDate == nil {
		return Verdict{
			Outcome:       OutcomeNeedInfo,
			MissingFields: []string{EvidencePurchaseDate},
			Facts:         []string{"purchase date not provided, cannot verify warranty window"},
			Confidence:    1.0,
		}, true
	}

	elapsed := int(now.Sub(*facts.PurchaseDate).Hours() / 24)
	if elapsed > rs.WarrantyDays {
		return Verdict{
			Outcome:    OutcomeReject,
			Reason:     "warranty expired",
			Facts:      []string{fmt.Sprintf("purchased %d days ago, warranty window is %d days", elapsed, rs.WarrantyDays)},
			Confidence: 1.0,
		}, true
	}

	return Verdict{}, false
}

func checkRequiredEvidence(facts Facts, rs RuleSet) (Verdict, bool) {
	var missing []string
	for _, req := range rs.RequiredEvidence {
		if !evidenceSatisfied(facts, req) {
			missing = append(missing, req)
		}
	}

	if len(missing) == 0 {
		return Verdict{}, false
	}

	return Verdict{
		Outcome:       OutcomeNeedInfo,
		MissingFields: missing,
		Facts:         []string{fmt.Sprintf("%d required evidence item(s) missing", len(missing))},
		Confidence:    1.0,
	}, true
}

func evidenceSatisfied(facts Facts, requirement string) bool {
	switch requirement {
	case EvidenceSerialNumber:
		return facts.SerialNumber != ""
	case EvidenceProofOfPurchase:
		return facts.HasProofOfPurchase
	case EvidencePurchaseDate:
		return facts.PurchaseDate != nil
	default:
		return facts.Extra[requirement]
	}
}

// keywordPresent reports whether keyword occurs in text without a negating
// word ("no", "not", "never") in the preceding window. Both inputs must
// already be normalized.
func keywordPresent(text, keyword string) bool {
	if keyword == "" {
		return false
	}

	idx := strings.Index(text, keyword)
	if idx == -1 {
		return false
	}

	start := max(idx-negationWindow, 0)
	return !negationPattern.MatchString(text[start:idx])
}

func normalize(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(strings.ToLower(s), " "))
}
