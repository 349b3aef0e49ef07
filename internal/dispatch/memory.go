package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory System used by tests and offline runs. It
// preserves the ledger contract: at most one send per idempotency key, with
// the stored outcome returned on replay.
type MemoryLedger struct {
	mu       sync.Mutex
	channels map[string]Channel
	byKey    map[string]Record
	byClaim  map[uuid.UUID][]Record
}

// NewMemory creates an empty in-memory dispatch ledger over the given
// channel registry.
func NewMemory(channels map[string]Channel) *MemoryLedger {
	return &MemoryLedger{
		channels: channels,
		byKey:    make(map[string]Record),
		byClaim:  make(map[uuid.UUID][]Record),
	}
}

func (l *MemoryLedger) RecordAttempt(
	ctx context.Context,
	claimID uuid.UUID,
	key, channel string,
	payload Payload,
) (*Record, error) {
	ch, ok := l.channels[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byKey[key]; ok {
		existing.Duplicate = true
		return &existing, nil
	}

	r := Record{
		ID:             uuid.New(),
		ClaimID:        claimID,
		IdempotencyKey: key,
		Channel:        channel,
		Recipient:      payload.Recipient,
		CreatedAt:      time.Now(),
	}

	messageID, err := ch.Send(ctx, payload)
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Success = true
		r.ProviderMessageID = messageID
	}

	l.byKey[key] = r
	l.byClaim[claimID] = append(l.byClaim[claimID], r)

	return &r, nil
}

func (l *MemoryLedger) Find(ctx context.Context, key string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (l *MemoryLedger) List(ctx context.Context, claimID uuid.UUID) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := make([]Record, len(l.byClaim[claimID]))
	copy(records, l.byClaim[claimID])
	return records, nil
}
