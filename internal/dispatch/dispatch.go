// Package dispatch implements the idempotent delivery ledger for outbound
// claim responses. Every attempted send is recorded exactly once per
// idempotency key; replays with a known key return the stored outcome without
// touching the delivery channel.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Payload is the material a channel delivers.
type Payload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Record is one ledger entry: the outcome of a single logical delivery
// attempt. Records are never overwritten; a failed attempt stays in the
// ledger for audit and a retry uses a new key. Duplicate is set on replayed
// lookups and is not persisted.
type Record struct {
	ID                uuid.UUID `json:"id"`
	ClaimID           uuid.UUID `json:"claim_id"`
	IdempotencyKey    string    `json:"idempotency_key"`
	Channel           string    `json:"channel"`
	Recipient         string    `json:"recipient"`
	Success           bool      `json:"success"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	Error             string    `json:"error,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Duplicate         bool      `json:"duplicate,omitempty"`
}

// System defines the dispatch ledger contract. RecordAttempt performs the
// external send at most once per idempotency key.
type System interface {
	RecordAttempt(ctx context.Context, claimID uuid.UUID, key, channel string, payload Payload) (*Record, error)
	Find(ctx context.Context, key string) (*Record, error)
	List(ctx context.Context, claimID uuid.UUID) ([]Record, error)
}

// Ledger errors.
var (
	ErrNotFound       = errors.New("dispatch record not found")
	ErrUnknownChannel = errors.New("unknown dispatch channel")
	ErrInvalidPayload = errors.New("invalid dispatch payload")
)

// MapHTTPStatus maps dispatch errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnknownChannel) || errors.Is(err, ErrInvalidPayload) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Key derives the idempotency key for one logical delivery attempt:
// claim identifier, decision outcome, a digest of the content, and the
// attempt counter. A retry after a failed send increments attempt and
// therefore produces a distinct key.
func Key(claimID uuid.UUID, decision, content string, attempt int) string {
	digest := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s:%s:%s:%d", claimID, decision, hex.EncodeToString(digest[:])[:12], attempt)
}
