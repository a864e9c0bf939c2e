package storage

import (
	"context"
	"time"

	"staking-reward-ledger/internal/domain"
)

// RoundStore persists distribution rounds and performs the atomic commit.
type RoundStore interface {
	// BeginRound inserts a new round in DRAFT status.
	// Returns ErrDuplicateKey if the round id exists.
	BeginRound(ctx context.Context, round *domain.DistributionRound) error

	// GetRound retrieves a round by id. Returns ErrNotFound if not exists.
	GetRound(ctx context.Context, id string) (*domain.DistributionRound, error)

	// SetRoundStatus moves a round from one status to another. Returns
	// ErrConflict if the round's current status is not `from`
	// (compare-and-swap semantics).
	SetRoundStatus(ctx context.Context, id string, from, to domain.RoundStatus) error

	// CommitRound finalizes a round atomically: the FINALIZED status, all
	// allocation rows, and all resolved flags become visible together or not
	// at all. Returns ErrConflict if the round is not in PENDING_DUPLICATES,
	// ErrDuplicateKey if an (address, round) allocation row already exists.
	CommitRound(ctx context.Context, roundID string, allocations []*domain.RewardAllocation, flags []*domain.DuplicateFlag) error

	// AbortRound marks a round ABORTED. Aborted rounds are never retried in
	// place. Returns ErrConflict if the round is already FINALIZED.
	AbortRound(ctx context.Context, id string) error
}

// PriorPayment is one historical PAID allocation, annotated with how many
// finalized rounds ago it happened (1 = the most recent finalized round).
type PriorPayment struct {
	Allocation *domain.RewardAllocation
	RoundsAgo  int
}

// AllocationStore reads committed allocation rows.
// Rows exist only for FINALIZED rounds, so readers never observe a partial round.
type AllocationStore interface {
	// AllocationsByRound retrieves all allocations of a finalized round,
	// ordered by address.
	AllocationsByRound(ctx context.Context, roundID string) ([]*domain.RewardAllocation, error)

	// PriorPaid retrieves PAID allocations from the last lookbackRounds
	// finalized rounds, most recent first.
	PriorPaid(ctx context.Context, lookbackRounds int) ([]PriorPayment, error)

	// SetAllocationStatus updates one allocation's payment status (e.g.
	// APPROVED -> PAID once the external payout executes). Returns
	// ErrNotFound if no row exists.
	SetAllocationStatus(ctx context.Context, addr domain.Address, roundID string, status domain.AllocationStatus) error
}

// AmnestyStore persists operator-issued amnesty grants.
type AmnestyStore interface {
	// Insert records a grant. Returns ErrDuplicateKey if a grant already
	// exists for the (address, round) pair.
	Insert(ctx context.Context, grant *domain.AmnestyGrant) error

	// GetByRound retrieves all grants issued for a round.
	GetByRound(ctx context.Context, roundID string) ([]domain.AmnestyGrant, error)
}

// FlagStore reads duplicate flags of committed rounds.
type FlagStore interface {
	// FlagsByRound retrieves all flags recorded for a finalized round.
	FlagsByRound(ctx context.Context, roundID string) ([]*domain.DuplicateFlag, error)
}

// AuditEvent is one entry in the append-only round audit log.
type AuditEvent struct {
	RoundID string
	Kind    string // e.g. "round_created", "flag_resolved", "round_finalized"
	Actor   string
	At      time.Time
	Detail  string
}

// Audit event kinds.
const (
	AuditRoundCreated    = "round_created"
	AuditRoundClassified = "round_classified"
	AuditRoundParked     = "round_pending_duplicates"
	AuditFlagResolved    = "flag_resolved"
	AuditBulkDirective   = "bulk_directive"
	AuditRoundFinalized  = "round_finalized"
	AuditRoundAborted    = "round_aborted"
	AuditAmnestyGranted  = "amnesty_granted"
)

// AuditEventStore is the append-only audit trail of round lifecycle events.
type AuditEventStore interface {
	// Append records one event. Events are never updated or deleted.
	Append(ctx context.Context, event *AuditEvent) error

	// GetByRound retrieves all events for a round, ordered by time ASC.
	GetByRound(ctx context.Context, roundID string) ([]*AuditEvent, error)
}
