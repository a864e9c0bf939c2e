package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"staking-reward-ledger/internal/storage"
)

func TestAuditEventStore_AppendAndGet(t *testing.T) {
	store := NewAuditEventStore()
	ctx := context.Background()

	kinds := []string{storage.AuditRoundCreated, storage.AuditRoundParked, storage.AuditRoundFinalized}
	for _, kind := range kinds {
		err := store.Append(ctx, &storage.AuditEvent{
			RoundID: "r1",
			Kind:    kind,
			Actor:   "system",
			At:      time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Append(%s) failed: %v", kind, err)
		}
	}

	events, err := store.GetByRound(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRound failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, kind := range kinds {
		if events[i].Kind != kind {
			t.Errorf("events[%d].Kind = %s, want %s (insertion order)", i, events[i].Kind, kind)
		}
	}
}

func TestAuditEventStore_IsolatedPerRound(t *testing.T) {
	store := NewAuditEventStore()
	ctx := context.Background()

	_ = store.Append(ctx, &storage.AuditEvent{RoundID: "r1", Kind: storage.AuditRoundCreated, Actor: "system", At: time.Now()})
	events, err := store.GetByRound(ctx, "r2")
	if err != nil {
		t.Fatalf("GetByRound failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events for unrelated round, want 0", len(events))
	}
}

func TestAuditEventStore_InvalidInput(t *testing.T) {
	store := NewAuditEventStore()
	ctx := context.Background()

	if err := store.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil event: err = %v, want ErrInvalidInput", err)
	}
	if err := store.Append(ctx, &storage.AuditEvent{RoundID: "r1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing kind: err = %v, want ErrInvalidInput", err)
	}
}
