package retrieval

import (
	"context"
	"iter"
	"regexp"
	"sort"
	"strings"
)

// Section is a named span of policy text loaded into the demo index.
type Section struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// DemoGateway serves excerpts from an in-memory index using token-overlap
// scoring, so the pipeline runs without the external search service.
type DemoGateway struct {
	sections map[string][]Section
}

// NewDemoGateway creates the offline gateway over the given per-policy sections.
func NewDemoGateway(sections map[string][]Section) *DemoGateway {
	if sections == nil {
		sections = make(map[string][]Section)
	}
	return &DemoGateway{sections: sections}
}

func (g *DemoGateway) Name() string {
	return "demo"
}

// Index adds or replaces the sections for a policy.
func (g *DemoGateway) Index(policyID string, sections []Section) {
	g.sections[policyID] = sections
}

func (g *DemoGateway) Search(ctx context.Context, policyID, query string, limit int) (iter.Seq[Excerpt], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)

	var results []Excerpt
	for i, section := range g.sections[policyID] {
		score := overlapScore(queryTokens, tokenize(section.Content+" "+section.Name))
		if score <= 0 {
			continue
		}
		results = append(results, Excerpt{
			PolicyID:   policyID,
			Section:    section.Name,
			Content:    section.Content,
			ChunkIndex: i,
			Score:      score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return sequence(results), nil
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		tokens[t] = true
	}
	return tokens
}

// overlapScore is the fraction of query tokens present in the candidate.
func overlapScore(query, candidate map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}

	hits := 0
	for t := range query {
		if candidate[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
