package checkpoints

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory System used by tests and offline runs.
// It preserves the store contract: append-only history, monotonic sequence
// numbers, and per-claim writer serialization.
type MemoryStore struct {
	mu       sync.Mutex
	logs     map[uuid.UUID][]Checkpoint
	terminal []string
}

// NewMemory creates an empty in-memory checkpoint store.
func NewMemory(terminalStages []string) *MemoryStore {
	return &MemoryStore{
		logs:     make(map[uuid.UUID][]Checkpoint),
		terminal: terminalStages,
	}
}

func (s *MemoryStore) Append(
	ctx context.Context,
	claimID uuid.UUID,
	stage string,
	state json.RawMessage,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := int64(len(s.logs[claimID])) + 1
	s.logs[claimID] = append(s.logs[claimID], Checkpoint{
		ClaimID:   claimID,
		Seq:       seq,
		Stage:     stage,
		State:     slices.Clone(state),
		CreatedAt: time.Now(),
	})

	return seq, nil
}

func (s *MemoryStore) Latest(ctx context.Context, claimID uuid.UUID) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[claimID]
	if len(log) == 0 {
		return nil, ErrNotFound
	}

	cp := log[len(log)-1]
	return &cp, nil
}

func (s *MemoryStore) History(ctx context.Context, claimID uuid.UUID) ([]Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[claimID]
	if len(log) == 0 {
		return nil, ErrNotFound
	}

	return slices.Clone(log), nil
}

func (s *MemoryStore) ListResumable(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, log := range s.logs {
		head := log[len(log)-1]
		if !slices.Contains(s.terminal, head.Stage) {
			ids = append(ids, id)
		}
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return ids, nil
}
