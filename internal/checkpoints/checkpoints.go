// Package checkpoints implements the durable append-only checkpoint log for
// claim workflow state. Snapshots are opaque to the store; the workflow engine
// owns their shape. Past checkpoints are never mutated or destroyed; every
// stage transition appends a new snapshot with the next sequence number.
package checkpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is one immutable snapshot of a claim's workflow state.
// Seq is monotonic per claim, starting at 1.
type Checkpoint struct {
	ClaimID   uuid.UUID       `json:"claim_id"`
	Seq       int64           `json:"seq"`
	Stage     string          `json:"stage"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// System defines the checkpoint store contract. Append is atomic and durable
// before it returns success, and concurrent appends for the same claim are
// serialized; appends for different claims proceed independently.
type System interface {
	Append(ctx context.Context, claimID uuid.UUID, stage string, state json.RawMessage) (int64, error)
	Latest(ctx context.Context, claimID uuid.UUID) (*Checkpoint, error)
	History(ctx context.Context, claimID uuid.UUID) ([]Checkpoint, error)
	ListResumable(ctx context.Context) ([]uuid.UUID, error)
}

// Store errors.
var (
	ErrNotFound = errors.New("no checkpoint for claim")
)

// MapHTTPStatus maps checkpoint store errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
