package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"sort"
	"strings"
)

// RemoteGateway queries an external similarity-search service over HTTP.
type RemoteGateway struct {
	baseURL string
	client  *http.Client
}

type searchRequest struct {
	PolicyID string `json:"policy_id"`
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
}

type searchResponse struct {
	Results []Excerpt `json:"results"`
}

// NewRemoteGateway creates a gateway against the configured search endpoint.
func NewRemoteGateway(cfg *Config) *RemoteGateway {
	return &RemoteGateway{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.TimeoutDuration()},
	}
}

func (g *RemoteGateway) Name() string {
	return "remote"
}

func (g *RemoteGateway) Search(ctx context.Context, policyID, query string, limit int) (iter.Seq[Excerpt], error) {
	body, err := json.Marshal(searchRequest{PolicyID: policyID, Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.baseURL+"/search",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	// Ranking order is significant downstream: descending relevance.
	results := parsed.Results
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return sequence(results), nil
}
