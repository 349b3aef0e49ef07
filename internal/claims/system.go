package claims

import (
	"context"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/checkpoints"
	"github.com/jmcalloway/claimward/internal/dispatch"
)

// System defines the public contract of the workflow engine.
type System interface {
	Handler() *Handler

	// Submit creates a claim and checkpoints its initial state.
	Submit(ctx context.Context, sub Submission) (*ClaimState, error)

	// SubmitBatch creates one claim per submission concurrently. Results
	// are returned in submission order.
	SubmitBatch(ctx context.Context, subs []Submission) ([]*ClaimState, error)

	// Advance runs automatic stages until the next suspend or terminal
	// stage. Idempotent when the claim is already suspended or terminal.
	Advance(ctx context.Context, id uuid.UUID) (*ClaimState, error)

	// Resume continues a suspended claim with an external decision. Fails
	// with StaleStageError when cmd.Stage does not match the current stage.
	Resume(ctx context.Context, id uuid.UUID, cmd DecisionCommand) (*ClaimState, error)

	// Cancel rewinds a suspended claim to its pre-gate stage.
	Cancel(ctx context.Context, id uuid.UUID) (*ClaimState, error)

	// Get returns the latest checkpointed state.
	Get(ctx context.Context, id uuid.UUID) (*ClaimState, error)

	// History returns the claim's full checkpoint log.
	History(ctx context.Context, id uuid.UUID) ([]checkpoints.Checkpoint, error)

	// ListResumable returns every claim whose latest checkpoint is
	// non-terminal.
	ListResumable(ctx context.Context) ([]uuid.UUID, error)

	// Dispatch delivers the drafted response through the named channel
	// under the given idempotency key.
	Dispatch(ctx context.Context, id uuid.UUID, channel, key string) (*dispatch.Record, error)
}
