package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmcalloway/claimward/internal/checkpoints"
	"github.com/jmcalloway/claimward/internal/dispatch"
	"github.com/jmcalloway/claimward/internal/policies"
	"github.com/jmcalloway/claimward/internal/reasoning"
	"github.com/jmcalloway/claimward/internal/retrieval"
	"github.com/jmcalloway/claimward/pkg/pagination"
)

const maxBatchWorkers = 8

// Engine is the workflow state machine. Per-claim mutual exclusion comes
// entirely from the checkpoint store's append serialization; the engine
// holds no locks of its own.
type Engine struct {
	cfg        *Config
	store      checkpoints.System
	ledger     dispatch.System
	catalog    policies.System
	reasoner   reasoning.Gateway
	searcher   retrieval.Gateway
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// NewEngine creates the workflow engine over its collaborator systems.
func NewEngine(
	cfg *Config,
	store checkpoints.System,
	ledger dispatch.System,
	catalog policies.System,
	reasoner reasoning.Gateway,
	searcher retrieval.Gateway,
	logger *slog.Logger,
	pagination pagination.Config,
) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      store,
		ledger:     ledger,
		catalog:    catalog,
		reasoner:   reasoner,
		searcher:   searcher,
		logger:     logger.With("system", "claims"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (e *Engine) Handler() *Handler {
	return NewHandler(e, e.logger, e.pagination)
}

func (e *Engine) Submit(ctx context.Context, sub Submission) (*ClaimState, error) {
	if strings.TrimSpace(sub.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrValidation)
	}

	now := e.now()
	state := &ClaimState{
		ID:    uuid.New(),
		Stage: StageIngested,
		Raw: RawClaim{
			Subject:    sub.Subject,
			Body:       sub.Body,
			Sender:     sub.Sender,
			ReceivedAt: now,
		},
		CreatedAt: now,
	}

	if err := e.persist(ctx, state); err != nil {
		return nil, err
	}

	e.logger.Info("claim submitted", "claim_id", state.ID, "sender", sub.Sender)
	return state, nil
}

func (e *Engine) SubmitBatch(ctx context.Context, subs []Submission) ([]*ClaimState, error) {
	results := make([]*ClaimState, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchWorkers)

	for i, sub := range subs {
		g.Go(func() error {
			state, err := e.Submit(gctx, sub)
			if err != nil {
				return fmt.Errorf("submission %d: %w", i, err)
			}
			results[i] = state
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Advance runs automatic stages until the claim suspends or terminates.
// Each stage transition commits with its checkpoint before the next begins,
// so a crash mid-run loses at most the stage in flight.
func (e *Engine) Advance(ctx context.Context, id uuid.UUID) (*ClaimState, error) {
	state, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, state)
}

func (e *Engine) run(ctx context.Context, state *ClaimState) (*ClaimState, error) {
	for !state.Stage.Suspended() && !state.Stage.Terminal() {
		prev := state.Stage
		if err := e.step(ctx, state); err != nil {
			return nil, err
		}
		if err := e.persist(ctx, state); err != nil {
			return nil, err
		}
		e.logger.Info(
			"stage advanced",
			"claim_id", state.ID,
			"from", prev,
			"to", state.Stage,
			"seq", state.Seq,
		)
	}
	return state, nil
}

func (e *Engine) Resume(ctx context.Context, id uuid.UUID, cmd DecisionCommand) (*ClaimState, error) {
	if !cmd.Stage.Suspended() {
		return nil, fmt.Errorf("%w: %s is not a suspend stage", ErrValidation, cmd.Stage)
	}

	state, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if state.Stage != cmd.Stage {
		return nil, &StaleStageError{ClaimID: id, Requested: cmd.Stage, Current: state.Stage}
	}

	switch state.Stage {
	case StageAwaitingHumanReview:
		switch cmd.Outcome {
		case DecisionApprove, DecisionReject, DecisionNeedInfo:
		default:
			return nil, fmt.Errorf("%w: unrecognized outcome %q", ErrValidation, cmd.Outcome)
		}

		state.HumanDecision = &Decision{
			Outcome:   cmd.Outcome,
			Note:      cmd.Note,
			Reviewer:  cmd.Reviewer,
			DecidedAt: e.now(),
		}
		state.Stage = StageDecisionRecorded
		if err := e.persist(ctx, state); err != nil {
			return nil, err
		}

		e.logger.Info(
			"decision recorded",
			"claim_id", id,
			"outcome", cmd.Outcome,
			"reviewer", cmd.Reviewer,
		)
		return e.run(ctx, state)

	case StageAwaitingDispatch:
		if cmd.Outcome != DecisionApprove {
			return nil, fmt.Errorf(
				"%w: dispatch gate accepts outcome %s; use cancel to rewind",
				ErrValidation, DecisionApprove,
			)
		}
		return e.confirmDispatch(ctx, state, "", "")

	default:
		return nil, &StaleStageError{ClaimID: id, Requested: cmd.Stage, Current: state.Stage}
	}
}

// Cancel rewinds a suspended claim to the stage just before its gate. This
// is the one sanctioned exception to monotonic stage progression.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID) (*ClaimState, error) {
	state, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var target Stage
	switch state.Stage {
	case StageAwaitingHumanReview:
		target = StageReviewPacketReady
	case StageAwaitingDispatch:
		target = StageResponseDrafted
	default:
		return nil, fmt.Errorf(
			"%w: cancel is valid only from a suspend stage, claim is at %s",
			ErrValidation, state.Stage,
		)
	}

	from := state.Stage
	state.Stage = target
	if err := e.persist(ctx, state); err != nil {
		return nil, err
	}

	e.logger.Info(
		"claim cancelled to pending",
		"claim_id", id,
		"transition", TransitionCancelled,
		"from", from,
		"to", target,
	)
	return state, nil
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*ClaimState, error) {
	return e.load(ctx, id)
}

func (e *Engine) History(ctx context.Context, id uuid.UUID) ([]checkpoints.Checkpoint, error) {
	history, err := e.store.History(ctx, id)
	if err != nil {
		if errors.Is(err, checkpoints.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return history, nil
}

func (e *Engine) ListResumable(ctx context.Context) ([]uuid.UUID, error) {
	return e.store.ListResumable(ctx)
}

// Dispatch delivers the drafted response under an explicit channel and
// idempotency key. A replay against a claim that already dispatched returns
// the ledger record for the key without a second send.
func (e *Engine) Dispatch(ctx context.Context, id uuid.UUID, channel, key string) (*dispatch.Record, error) {
	state, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if state.Stage != StageAwaitingDispatch {
		if key != "" {
			if rec, err := e.ledger.Find(ctx, key); err == nil {
				rec.Duplicate = true
				return rec, nil
			}
		}
		return nil, &StaleStageError{ClaimID: id, Requested: StageAwaitingDispatch, Current: state.Stage}
	}

	state, err = e.confirmDispatch(ctx, state, channel, key)
	if err != nil {
		return nil, err
	}
	return state.DispatchOutcome, nil
}

// confirmDispatch performs the at-most-once send and records the outcome.
// A failed send keeps the claim at the dispatch gate with an incremented
// attempt counter, so the next confirmation derives a fresh key while the
// failed record stays in the ledger for audit.
func (e *Engine) confirmDispatch(ctx context.Context, state *ClaimState, channel, key string) (*ClaimState, error) {
	if channel == "" {
		channel = e.cfg.Channel
	}
	if key == "" {
		key = dispatch.Key(state.ID, e.decisionOutcome(state), state.Draft, state.DispatchAttempt)
	}

	payload := dispatch.Payload{
		Recipient: e.recipient(state),
		Subject:   "Re: " + state.Raw.Subject,
		Body:      state.Draft,
	}

	rec, err := e.ledger.RecordAttempt(ctx, state.ID, key, channel, payload)
	if err != nil {
		return nil, err
	}

	state.DispatchOutcome = rec

	if !rec.Success {
		state.DispatchAttempt++
		if err := e.persist(ctx, state); err != nil {
			return nil, err
		}
		e.logger.Warn(
			"dispatch attempt failed",
			"claim_id", state.ID,
			"key", key,
			"error", rec.Error,
		)
		return state, nil
	}

	state.Stage = StageDispatched
	if err := e.persist(ctx, state); err != nil {
		return nil, err
	}

	state.Stage = StageFinalized
	if err := e.persist(ctx, state); err != nil {
		return nil, err
	}

	e.logger.Info("claim dispatched", "claim_id", state.ID, "key", key, "channel", channel)
	return state, nil
}

func (e *Engine) decisionOutcome(state *ClaimState) string {
	if state.HumanDecision != nil {
		return state.HumanDecision.Outcome
	}
	return DecisionNeedInfo
}

func (e *Engine) recipient(state *ClaimState) string {
	if state.Extracted != nil && state.Extracted.CustomerEmail != "" {
		return state.Extracted.CustomerEmail
	}
	return state.Raw.Sender
}

func (e *Engine) load(ctx context.Context, id uuid.UUID) (*ClaimState, error) {
	cp, err := e.store.Latest(ctx, id)
	if err != nil {
		if errors.Is(err, checkpoints.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load claim %s: %w", id, err)
	}

	var state ClaimState
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("decode claim %s: %w", id, err)
	}

	state.Seq = cp.Seq
	return &state, nil
}

func (e *Engine) persist(ctx context.Context, state *ClaimState) error {
	state.UpdatedAt = e.now()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode claim %s: %w", state.ID, err)
	}

	seq, err := e.store.Append(ctx, state.ID, string(state.Stage), data)
	if err != nil {
		return fmt.Errorf("checkpoint claim %s: %w", state.ID, err)
	}

	state.Seq = seq
	return nil
}

// gatewayContext bounds a reasoning or retrieval call so a stalled provider
// surfaces as a timeout failure instead of an indefinite hang.
func (e *Engine) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.GatewayTimeoutDuration())
}
