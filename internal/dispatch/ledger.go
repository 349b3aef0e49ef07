package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/pkg/repository"
)

type ledger struct {
	db       *sql.DB
	channels map[string]Channel
	logger   *slog.Logger
}

// New creates a Postgres-backed dispatch ledger over the given channel registry.
func New(db *sql.DB, channels map[string]Channel, logger *slog.Logger) System {
	return &ledger{
		db:       db,
		channels: channels,
		logger:   logger.With("system", "dispatch"),
	}
}

// RecordAttempt delivers the payload through the named channel at most once
// for the given idempotency key. The key lookup, the send, and the outcome
// write happen under a transaction-scoped advisory lock on the key, so a
// concurrent replay either blocks until the first attempt commits or observes
// the finished outcome. A second send for the same key cannot occur.
func (l *ledger) RecordAttempt(
	ctx context.Context,
	claimID uuid.UUID,
	key, channel string,
	payload Payload,
) (*Record, error) {
	ch, ok := l.channels[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	record, err := repository.WithTx(ctx, l.db, func(tx *sql.Tx) (Record, error) {
		if _, err := tx.ExecContext(
			ctx,
			"SELECT pg_advisory_xact_lock(hashtextextended($1, 0))",
			key,
		); err != nil {
			return Record{}, fmt.Errorf("acquire key lock: %w", err)
		}

		existing, err := findByKey(ctx, tx, key)
		if err == nil {
			existing.Duplicate = true
			return *existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Record{}, err
		}

		r := Record{
			ID:             uuid.New(),
			ClaimID:        claimID,
			IdempotencyKey: key,
			Channel:        channel,
			Recipient:      payload.Recipient,
		}

		messageID, sendErr := ch.Send(ctx, payload)
		if sendErr != nil {
			r.Error = sendErr.Error()
		} else {
			r.Success = true
			r.ProviderMessageID = messageID
		}

		q := `
			INSERT INTO dispatch_records(id, claim_id, idempotency_key, channel, recipient, success, provider_message_id, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, claim_id, idempotency_key, channel, recipient, success, provider_message_id, error, created_at`

		insertArgs := []any{
			r.ID, r.ClaimID, r.IdempotencyKey, r.Channel,
			r.Recipient, r.Success, r.ProviderMessageID, r.Error,
		}

		return repository.QueryOne(ctx, tx, q, insertArgs, scanRecord)
	})
	if err != nil {
		return nil, fmt.Errorf("record dispatch attempt: %w", err)
	}

	l.logger.Info(
		"dispatch attempt recorded",
		"claim_id", claimID,
		"key", key,
		"channel", channel,
		"success", record.Success,
		"duplicate", record.Duplicate,
	)
	return &record, nil
}

func (l *ledger) Find(ctx context.Context, key string) (*Record, error) {
	return findByKey(ctx, l.db, key)
}

func (l *ledger) List(ctx context.Context, claimID uuid.UUID) ([]Record, error) {
	q := `
		SELECT id, claim_id, idempotency_key, channel, recipient, success, provider_message_id, error, created_at
		FROM dispatch_records
		WHERE claim_id = $1
		ORDER BY created_at ASC`

	records, err := repository.QueryMany(ctx, l.db, q, []any{claimID}, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query dispatch records: %w", err)
	}
	return records, nil
}

func findByKey(ctx context.Context, q repository.Querier, key string) (*Record, error) {
	query := `
		SELECT id, claim_id, idempotency_key, channel, recipient, success, provider_message_id, error, created_at
		FROM dispatch_records
		WHERE idempotency_key = $1`

	r, err := repository.QueryOne(ctx, q, query, []any{key}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &r, nil
}

func scanRecord(sc repository.Scanner) (Record, error) {
	var r Record
	err := sc.Scan(
		&r.ID,
		&r.ClaimID,
		&r.IdempotencyKey,
		&r.Channel,
		&r.Recipient,
		&r.Success,
		&r.ProviderMessageID,
		&r.Error,
		&r.CreatedAt,
	)
	return r, err
}
