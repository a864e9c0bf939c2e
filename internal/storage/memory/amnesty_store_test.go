package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

func testGrant(a domain.Address, roundID string) *domain.AmnestyGrant {
	return &domain.AmnestyGrant{
		Address:   a,
		RoundID:   roundID,
		Operator:  "ops@example.com",
		GrantedAt: time.Now().UTC(),
		Reason:    "exchange outage on day 12",
	}
}

func TestAmnestyStore_InsertAndGet(t *testing.T) {
	store := NewAmnestyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testGrant(addr(2), "r1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testGrant(addr(1), "r1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testGrant(addr(1), "r2")); err != nil {
		t.Fatalf("Insert for other round failed: %v", err)
	}

	grants, err := store.GetByRound(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByRound failed: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("got %d grants, want 2", len(grants))
	}
	if grants[0].Address != addr(1) || grants[1].Address != addr(2) {
		t.Error("grants not ordered by address")
	}
}

func TestAmnestyStore_DuplicateGrant(t *testing.T) {
	store := NewAmnestyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testGrant(addr(1), "r1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, testGrant(addr(1), "r1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestAmnestyStore_InvalidInput(t *testing.T) {
	store := NewAmnestyStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil grant: err = %v, want ErrInvalidInput", err)
	}
	g := testGrant(addr(1), "r1")
	g.Operator = ""
	if err := store.Insert(ctx, g); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("missing operator: err = %v, want ErrInvalidInput", err)
	}
}
