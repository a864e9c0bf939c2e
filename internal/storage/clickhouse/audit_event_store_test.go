package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-reward-ledger/internal/storage"
)

func TestAuditEventStore_AppendAndGetByRound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditEventStore(conn)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	kinds := []string{storage.AuditRoundCreated, storage.AuditRoundParked, storage.AuditRoundFinalized}
	for i, kind := range kinds {
		err := store.Append(ctx, &storage.AuditEvent{
			RoundID: "round-001",
			Kind:    kind,
			Actor:   "system",
			At:      base.Add(time.Duration(i) * time.Second),
			Detail:  "lifecycle",
		})
		require.NoError(t, err)
	}

	events, err := store.GetByRound(ctx, "round-001")
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Ordered by time ASC
	for i, kind := range kinds {
		assert.Equal(t, kind, events[i].Kind)
		assert.Equal(t, "system", events[i].Actor)
	}
}

func TestAuditEventStore_AppendBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditEventStore(conn)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	events := []*storage.AuditEvent{
		{RoundID: "round-001", Kind: storage.AuditFlagResolved, Actor: "ops@example.com", At: base, Detail: "flag 1"},
		{RoundID: "round-001", Kind: storage.AuditFlagResolved, Actor: "ops@example.com", At: base.Add(time.Second), Detail: "flag 2"},
		{RoundID: "round-002", Kind: storage.AuditRoundCreated, Actor: "system", At: base, Detail: ""},
	}
	require.NoError(t, store.AppendBulk(ctx, events))

	got, err := store.GetByRound(ctx, "round-001")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "flag 1", got[0].Detail)
	assert.Equal(t, "flag 2", got[1].Detail)

	got, err = store.GetByRound(ctx, "round-002")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAuditEventStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditEventStore(conn)
	ctx := context.Background()

	err := store.Append(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Append(ctx, &storage.AuditEvent{RoundID: "round-001"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestAuditEventStore_EmptyRound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditEventStore(conn)
	events, err := store.GetByRound(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, events)
}
