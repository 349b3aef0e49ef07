package checkpoints

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/pkg/repository"
)

type store struct {
	db       *sql.DB
	logger   *slog.Logger
	terminal []string
}

// New creates a Postgres-backed checkpoint store. terminalStages lists the
// stage names whose claims ListResumable must exclude.
func New(db *sql.DB, logger *slog.Logger, terminalStages []string) System {
	return &store{
		db:       db,
		logger:   logger.With("system", "checkpoints"),
		terminal: terminalStages,
	}
}

// Append serializes writers per claim with a transaction-scoped advisory lock
// keyed on the claim identifier, then inserts the snapshot with the next
// sequence number. The UNIQUE(claim_id, seq) constraint backs the lock.
func (s *store) Append(
	ctx context.Context,
	claimID uuid.UUID,
	stage string,
	state json.RawMessage,
) (int64, error) {
	seq, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (int64, error) {
		if _, err := tx.ExecContext(
			ctx,
			"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
			claimID.String(),
		); err != nil {
			return 0, fmt.Errorf("acquire claim lock: %w", err)
		}

		q := `
			INSERT INTO checkpoints(claim_id, seq, stage, state)
			SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3
			FROM checkpoints WHERE claim_id = $1
			RETURNING seq`

		return repository.QueryOne(ctx, tx, q, []any{claimID, stage, state}, scanSeq)
	})
	if err != nil {
		return 0, fmt.Errorf("append checkpoint: %w", err)
	}

	s.logger.Info("checkpoint appended", "claim_id", claimID, "seq", seq, "stage", stage)
	return seq, nil
}

func (s *store) Latest(ctx context.Context, claimID uuid.UUID) (*Checkpoint, error) {
	q := `
		SELECT claim_id, seq, stage, state, created_at
		FROM checkpoints
		WHERE claim_id = $1
		ORDER BY seq DESC
		LIMIT 1`

	cp, err := repository.QueryOne(ctx, s.db, q, []any{claimID}, scanCheckpoint)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &cp, nil
}

func (s *store) History(ctx context.Context, claimID uuid.UUID) ([]Checkpoint, error) {
	q := `
		SELECT claim_id, seq, stage, state, created_at
		FROM checkpoints
		WHERE claim_id = $1
		ORDER BY seq ASC`

	history, err := repository.QueryMany(ctx, s.db, q, []any{claimID}, scanCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("query checkpoint history: %w", err)
	}
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	return history, nil
}

func (s *store) ListResumable(ctx context.Context) ([]uuid.UUID, error) {
	q := `
		SELECT head.claim_id FROM (
			SELECT DISTINCT ON (claim_id) claim_id, stage
			FROM checkpoints
			ORDER BY claim_id, seq DESC
		) head
		WHERE NOT (head.stage = ANY($1))
		ORDER BY head.claim_id`

	ids, err := repository.QueryMany(ctx, s.db, q, []any{s.terminal}, scanClaimID)
	if err != nil {
		return nil, fmt.Errorf("query resumable claims: %w", err)
	}
	return ids, nil
}

func scanSeq(sc repository.Scanner) (int64, error) {
	var seq int64
	err := sc.Scan(&seq)
	return seq, err
}

func scanClaimID(sc repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := sc.Scan(&id)
	return id, err
}

func scanCheckpoint(sc repository.Scanner) (Checkpoint, error) {
	var cp Checkpoint
	err := sc.Scan(&cp.ClaimID, &cp.Seq, &cp.Stage, &cp.State, &cp.CreatedAt)
	return cp, err
}
