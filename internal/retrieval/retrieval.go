// Package retrieval wraps the external similarity-search service behind a
// narrow gateway that returns ranked policy excerpts for a query. No indexing
// logic lives here; the service owns the index.
package retrieval

import (
	"context"
	"errors"
	"iter"
)

// Excerpt is one ranked policy snippet. Score is the relevance score assigned
// by the search service; results are ordered by Score descending.
type Excerpt struct {
	PolicyID   string  `json:"policy_id"`
	Section    string  `json:"section"`
	Content    string  `json:"content"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Gateway is the synchronous contract with the search service. Search returns
// a lazy, finite, one-shot sequence of excerpts ranked by descending score;
// iterating it a second time yields nothing.
type Gateway interface {
	Name() string
	Search(ctx context.Context, policyID, query string, limit int) (iter.Seq[Excerpt], error)
}

// ErrUnavailable indicates the search service could not be reached.
var ErrUnavailable = errors.New("retrieval service unavailable")

// sequence wraps a ranked result slice in a one-shot iter.Seq.
func sequence(excerpts []Excerpt) iter.Seq[Excerpt] {
	consumed := false
	return func(yield func(Excerpt) bool) {
		if consumed {
			return
		}
		consumed = true
		for _, e := range excerpts {
			if !yield(e) {
				return
			}
		}
	}
}
