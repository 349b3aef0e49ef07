package reasoning

import "strings"

// SpamThreshold is the indicator count at which a message is treated as spam
// without consulting the oracle.
const SpamThreshold = 2

// SpamIndicators counts cheap spam signals in the message text. The triage
// stage runs this scan ahead of any gateway call, so obvious spam is archived
// for free in every provider mode; the demo gateway reuses it for its own
// deterministic classification.
func SpamIndicators(text string) int {
	body := strings.ToLower(text)

	n := 0
	if strings.Contains(body, "unsubscribe") {
		n++
	}
	if strings.Contains(body, "click here") && strings.Contains(body, "http") {
		n++
	}
	if strings.Contains(body, "act now") || strings.Contains(body, "act fast") {
		n++
	}
	if strings.Contains(body, "wholesale") && strings.Contains(body, "price") {
		n++
	}
	if strings.Count(body, "!") > 10 {
		n++
	}
	return n
}
