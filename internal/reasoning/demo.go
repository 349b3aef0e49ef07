package reasoning

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// DemoGateway produces deterministic stage-appropriate responses without any
// network dependency, so the full pipeline runs offline. Heuristics mirror the
// cheap pre-filters used ahead of the real oracle: keyword spam scoring for
// triage and pattern extraction for structured fields.
type DemoGateway struct{}

// NewDemoGateway creates the offline gateway.
func NewDemoGateway() *DemoGateway {
	return &DemoGateway{}
}

func (g *DemoGateway) Name() string {
	return "demo"
}

func (g *DemoGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrTimeout
	}

	var content string
	switch req.Kind {
	case KindTriage:
		content = demoTriage(req.Payload)
	case KindExtract:
		content = demoExtract(req.Payload)
	case KindAnalyze:
		content = demoAnalyze(req.Payload)
	case KindDraft:
		content = demoDraft(req.Payload)
	default:
		return nil, ErrMalformed
	}

	return &Response{Content: content, Model: "demo"}, nil
}

var claimTerms = []string{
	"warranty", "broken", "defect", "stopped working", "not working",
	"won't turn on", "no heat", "refund", "replace", "repair",
}

func demoTriage(payload string) string {
	body := strings.ToLower(payload)

	classification := "NON_CLAIM"
	reason := "no claim language detected"
	switch {
	case SpamIndicators(payload) >= SpamThreshold:
		classification = "SPAM"
		reason = "multiple spam indicators detected"
	default:
		for _, term := range claimTerms {
			if strings.Contains(body, term) {
				classification = "CLAIM"
				reason = "claim language detected: " + term
				break
			}
		}
	}

	return mustJSON(map[string]any{
		"classification": classification,
		"confidence":     0.9,
		"reason":         reason,
	})
}

var (
	serialPattern = regexp.MustCompile(`(?i)\b(?:serial(?:\s+number)?|s/?n)\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{4,})`)
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	orderPattern  = regexp.MustCompile(`(?i)\b(?:order(?:\s+number)?|confirmation)\s*[:#]?\s*([A-Za-z0-9-]{6,})\b`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

var signatureMarkers = []string{"thanks", "thank you", "sincerely", "regards", "best", "cheers"}

func demoExtract(payload string) string {
	fields := map[string]any{
		"customer_name":         signatureName(payload),
		"customer_email":        firstMatch(emailPattern, payload, 0),
		"product_name":          nil,
		"product_serial":        firstMatch(serialPattern, payload, 1),
		"purchase_date":         firstMatch(datePattern, payload, 0),
		"order_number":          firstMatch(orderPattern, payload, 1),
		"issue_description":     issueLine(payload),
		"has_proof_of_purchase": strings.Contains(strings.ToLower(payload), "receipt"),
	}
	return mustJSON(fields)
}

var defectTerms = []string{"stopped working", "no heat", "won't turn on", "not working", "dead", "bad switch"}

func demoAnalyze(payload string) string {
	body := strings.ToLower(payload)

	for _, term := range defectTerms {
		if strings.Contains(body, term) {
			return mustJSON(map[string]any{
				"recommendation": "APPROVE",
				"confidence":     0.75,
				"facts":          []string{"reported issue matches a known defect pattern: " + term},
				"assumptions":    []string{"customer description is accurate"},
				"reasoning":      "deterministic checks passed and the described failure is a covered defect",
			})
		}
	}

	return mustJSON(map[string]any{
		"recommendation": "NEED_INFO",
		"confidence":     0.5,
		"facts":          []string{},
		"assumptions":    []string{},
		"reasoning":      "issue description does not clearly indicate a covered defect",
	})
}

func demoDraft(payload string) string {
	return "Thank you for contacting us about your warranty claim.\n\n" +
		payload +
		"\n\nIf you have any questions, reply to this message and our team will follow up."
}

func firstMatch(re *regexp.Regexp, text string, group int) any {
	m := re.FindStringSubmatch(text)
	if m == nil || len(m) <= group {
		return nil
	}
	return m[group]
}

// signatureName scans for a closing marker and returns the following line
// when it looks like a personal name.
func signatureName(body string) any {
	var lines []string
	for line := range strings.Lines(body) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	for i, line := range lines {
		low := strings.Trim(strings.ToLower(line), " :,")
		for _, marker := range signatureMarkers {
			if low == marker || strings.HasPrefix(low, marker+",") {
				if i+1 < len(lines) {
					candidate := strings.Trim(lines[i+1], " ,")
					if nameLike(candidate) {
						return candidate
					}
				}
			}
		}
	}

	if len(lines) > 0 {
		if tail := strings.Trim(lines[len(lines)-1], " ,"); nameLike(tail) {
			return tail
		}
	}
	return nil
}

func nameLike(s string) bool {
	return len(s) >= 2 && len(s) <= 60 &&
		!strings.Contains(s, "@") &&
		!strings.ContainsAny(s, "0123456789")
}

func issueLine(body string) any {
	for line := range strings.Lines(strings.ToLower(body)) {
		for _, term := range claimTerms {
			if strings.Contains(line, term) {
				return strings.TrimSpace(line)
			}
		}
	}
	return nil
}

func mustJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
