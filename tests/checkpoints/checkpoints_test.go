package checkpoints_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jmcalloway/claimward/internal/checkpoints"
)

var terminal = []string{"FINALIZED", "ARCHIVED_SPAM"}

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	for i := 1; i <= 3; i++ {
		seq, err := store.Append(ctx, id, "INGESTED", json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if seq != int64(i) {
			t.Errorf("append %d: got seq %d", i, seq)
		}
	}
}

func TestLatestReturnsHead(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	stages := []string{"INGESTED", "TRIAGED", "EXTRACTED"}
	for _, stage := range stages {
		if _, err := store.Append(ctx, id, stage, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("append %s: %v", stage, err)
		}
	}

	cp, err := store.Latest(ctx, id)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if cp.Stage != "EXTRACTED" {
		t.Errorf("latest stage: got %s, want EXTRACTED", cp.Stage)
	}
	if cp.Seq != 3 {
		t.Errorf("latest seq: got %d, want 3", cp.Seq)
	}
}

func TestLatestUnknownClaim(t *testing.T) {
	store := checkpoints.NewMemory(terminal)

	_, err := store.Latest(context.Background(), uuid.New())
	if !errors.Is(err, checkpoints.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestHistoryPreservesEveryTransition(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	stages := []string{"INGESTED", "TRIAGED", "EXTRACTED", "TRIAGED"}
	for _, stage := range stages {
		if _, err := store.Append(ctx, id, stage, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("append %s: %v", stage, err)
		}
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != len(stages) {
		t.Fatalf("history length: got %d, want %d", len(history), len(stages))
	}
	for i, cp := range history {
		if cp.Stage != stages[i] {
			t.Errorf("history[%d] stage: got %s, want %s", i, cp.Stage, stages[i])
		}
		if cp.Seq != int64(i+1) {
			t.Errorf("history[%d] seq: got %d, want %d", i, cp.Seq, i+1)
		}
	}
}

func TestStateIsIsolatedFromCallerBuffer(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	buf := []byte(`{"stage":"INGESTED"}`)
	if _, err := store.Append(ctx, id, "INGESTED", buf); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Mutating the caller's buffer must not reach the stored snapshot.
	copy(buf, []byte(`{"stage":"XXXXXXXX"}`))

	cp, err := store.Latest(ctx, id)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if string(cp.State) != `{"stage":"INGESTED"}` {
		t.Errorf("stored state mutated: %s", cp.State)
	}
}

func TestListResumableExcludesTerminal(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()

	suspended := uuid.New()
	finalized := uuid.New()
	archived := uuid.New()

	appendStages(t, store, suspended, "INGESTED", "AWAITING_HUMAN_REVIEW")
	appendStages(t, store, finalized, "INGESTED", "FINALIZED")
	appendStages(t, store, archived, "INGESTED", "ARCHIVED_SPAM")

	ids, err := store.ListResumable(ctx)
	if err != nil {
		t.Fatalf("list resumable: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("resumable: got %d ids, want 1", len(ids))
	}
	if ids[0] != suspended {
		t.Errorf("resumable id: got %s, want %s", ids[0], suspended)
	}
}

func TestListResumableUsesHeadStageOnly(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	// Earlier non-terminal stages do not matter once the head is terminal.
	appendStages(t, store, id, "INGESTED", "TRIAGED", "FINALIZED")

	ids, err := store.ListResumable(ctx)
	if err != nil {
		t.Fatalf("list resumable: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("resumable: got %v, want empty", ids)
	}
}

func TestConcurrentAppendsStaySequential(t *testing.T) {
	store := checkpoints.NewMemory(terminal)
	ctx := context.Background()
	id := uuid.New()

	const writers = 16
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Append(ctx, id, "TRIAGED", json.RawMessage(`{}`)); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != writers {
		t.Fatalf("history length: got %d, want %d", len(history), writers)
	}
	for i, cp := range history {
		if cp.Seq != int64(i+1) {
			t.Errorf("history[%d] seq: got %d, want %d", i, cp.Seq, i+1)
		}
	}
}

func appendStages(t *testing.T, store *checkpoints.MemoryStore, id uuid.UUID, stages ...string) {
	t.Helper()
	for _, stage := range stages {
		if _, err := store.Append(context.Background(), id, stage, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("append %s: %v", stage, err)
		}
	}
}
