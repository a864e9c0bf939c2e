package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// LedgerStore implements storage.RoundStore, storage.AllocationStore, and
// storage.FlagStore using PostgreSQL. CommitRound runs in a single
// transaction so a finalized round is visible all at once or not at all.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface checks.
var (
	_ storage.RoundStore      = (*LedgerStore)(nil)
	_ storage.AllocationStore = (*LedgerStore)(nil)
	_ storage.FlagStore       = (*LedgerStore)(nil)
)

// BeginRound inserts a new round in DRAFT status. Returns ErrDuplicateKey if
// the round id exists.
func (s *LedgerStore) BeginRound(ctx context.Context, round *domain.DistributionRound) error {
	if round == nil || round.ID == "" {
		return storage.ErrInvalidInput
	}

	multipliers, err := encodeMultipliers(round.Multipliers)
	if err != nil {
		return fmt.Errorf("encode multipliers: %w", err)
	}

	query := `
		INSERT INTO distribution_rounds (
			round_id, period_start, period_end, total_pool, multipliers, status, supersedes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		round.ID,
		round.PeriodStart,
		round.PeriodEnd,
		encodeAmount(round.TotalPool),
		multipliers,
		string(domain.RoundDraft),
		round.Supersedes,
		round.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// GetRound retrieves a round by id. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetRound(ctx context.Context, id string) (*domain.DistributionRound, error) {
	query := `
		SELECT round_id, period_start, period_end, total_pool, multipliers, status, supersedes, created_at, finalized_at
		FROM distribution_rounds
		WHERE round_id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	r, err := scanRound(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get round by id: %w", err)
	}
	return r, nil
}

// SetRoundStatus moves a round from one status to another with
// compare-and-swap semantics: the update only applies if the current status
// matches `from`, otherwise ErrConflict.
func (s *LedgerStore) SetRoundStatus(ctx context.Context, id string, from, to domain.RoundStatus) error {
	query := `
		UPDATE distribution_rounds
		SET status = $3
		WHERE round_id = $1 AND status = $2
	`

	tag, err := s.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("set round status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing round from a status mismatch.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM distribution_rounds WHERE round_id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check round exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// CommitRound finalizes a round atomically: status flip, allocation rows, and
// resolved flags land in one transaction. The round row is locked first so
// concurrent finalize attempts serialize; the loser sees ErrConflict.
func (s *LedgerStore) CommitRound(ctx context.Context, roundID string, allocations []*domain.RewardAllocation, flags []*domain.DuplicateFlag) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM distribution_rounds WHERE round_id = $1 FOR UPDATE`, roundID).Scan(&status)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock round for commit: %w", err)
	}
	if domain.RoundStatus(status) != domain.RoundPendingDuplicates {
		return storage.ErrConflict
	}

	for _, a := range allocations {
		if a.RoundID != roundID {
			return storage.ErrInvalidInput
		}
		if err := insertAllocation(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, f := range flags {
		if err := insertFlag(ctx, tx, f); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE distribution_rounds
		SET status = $2, finalized_at = $3
		WHERE round_id = $1
	`, roundID, string(domain.RoundFinalized), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finalize round: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit round transaction: %w", err)
	}
	return nil
}

// AbortRound marks a round ABORTED. Returns ErrConflict if already FINALIZED.
func (s *LedgerStore) AbortRound(ctx context.Context, id string) error {
	query := `
		UPDATE distribution_rounds
		SET status = $2
		WHERE round_id = $1 AND status <> $3
	`

	tag, err := s.pool.Exec(ctx, query, id, string(domain.RoundAborted), string(domain.RoundFinalized))
	if err != nil {
		return fmt.Errorf("abort round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM distribution_rounds WHERE round_id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check round exists: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// AllocationsByRound retrieves all allocations of a round, ordered by address.
func (s *LedgerStore) AllocationsByRound(ctx context.Context, roundID string) ([]*domain.RewardAllocation, error) {
	query := `
		SELECT address, round_id, raw_score, applied_multiplier, amount, status
		FROM reward_allocations
		WHERE round_id = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("get allocations by round: %w", err)
	}
	defer rows.Close()

	return scanAllocations(rows)
}

// PriorPaid retrieves PAID allocations from the last lookbackRounds finalized
// rounds, most recent round first, addresses ascending within a round.
func (s *LedgerStore) PriorPaid(ctx context.Context, lookbackRounds int) ([]storage.PriorPayment, error) {
	query := `
		WITH recent AS (
			SELECT round_id,
			       ROW_NUMBER() OVER (ORDER BY finalized_at DESC, round_id DESC) AS rounds_ago
			FROM distribution_rounds
			WHERE status = $1
			ORDER BY finalized_at DESC, round_id DESC
			LIMIT $2
		)
		SELECT a.address, a.round_id, a.raw_score, a.applied_multiplier, a.amount, a.status, r.rounds_ago
		FROM reward_allocations a
		JOIN recent r ON r.round_id = a.round_id
		WHERE a.status = $3
		ORDER BY r.rounds_ago ASC, a.address ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.RoundFinalized), lookbackRounds, string(domain.AllocationPaid))
	if err != nil {
		return nil, fmt.Errorf("get prior paid allocations: %w", err)
	}
	defer rows.Close()

	var result []storage.PriorPayment
	for rows.Next() {
		var (
			addrStr, rawScore, multiplier, amountStr, statusStr string
			roundID                                             string
			roundsAgo                                           int64
		)
		if err := rows.Scan(&addrStr, &roundID, &rawScore, &multiplier, &amountStr, &statusStr, &roundsAgo); err != nil {
			return nil, fmt.Errorf("scan prior payment row: %w", err)
		}
		a, err := buildAllocation(addrStr, roundID, rawScore, multiplier, amountStr, statusStr)
		if err != nil {
			return nil, err
		}
		result = append(result, storage.PriorPayment{Allocation: a, RoundsAgo: int(roundsAgo)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prior payment rows: %w", err)
	}
	return result, nil
}

// SetAllocationStatus updates one allocation's payment status.
func (s *LedgerStore) SetAllocationStatus(ctx context.Context, addr domain.Address, roundID string, status domain.AllocationStatus) error {
	query := `
		UPDATE reward_allocations
		SET status = $3
		WHERE address = $1 AND round_id = $2
	`

	tag, err := s.pool.Exec(ctx, query, addr.Hex(), roundID, string(status))
	if err != nil {
		return fmt.Errorf("set allocation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// FlagsByRound retrieves the flags recorded for a round, ordered by address.
func (s *LedgerStore) FlagsByRound(ctx context.Context, roundID string) ([]*domain.DuplicateFlag, error) {
	query := `
		SELECT address, round_id, risk, reasons, prior_payments, decision, decided_by, decided_at
		FROM duplicate_flags
		WHERE round_id = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("get flags by round: %w", err)
	}
	defer rows.Close()

	var flags []*domain.DuplicateFlag
	for rows.Next() {
		var (
			addrStr, rID, risk, decision, decidedBy string
			reasons                                 []string
			priorData                               []byte
			decidedAt                               *time.Time
		)
		if err := rows.Scan(&addrStr, &rID, &risk, &reasons, &priorData, &decision, &decidedBy, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan flag row: %w", err)
		}
		addr, err := domain.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("parse flag address: %w", err)
		}
		prior, err := decodePriorPayments(priorData)
		if err != nil {
			return nil, err
		}
		f := &domain.DuplicateFlag{
			Address:       addr,
			RoundID:       rID,
			Risk:          domain.RiskLevel(risk),
			Reasons:       reasons,
			PriorPayments: prior,
			Decision:      domain.FlagDecision(decision),
			DecidedBy:     decidedBy,
		}
		if decidedAt != nil {
			f.DecidedAt = *decidedAt
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flag rows: %w", err)
	}
	return flags, nil
}

// insertAllocation writes one allocation row inside the commit transaction.
func insertAllocation(ctx context.Context, tx pgx.Tx, a *domain.RewardAllocation) error {
	query := `
		INSERT INTO reward_allocations (
			address, round_id, raw_score, applied_multiplier, amount, status
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := tx.Exec(ctx, query,
		a.Address.Hex(),
		a.RoundID,
		encodeRat(a.RawScore),
		encodeRat(a.AppliedMultiplier),
		encodeAmount(a.Amount),
		string(a.Status),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// insertFlag writes one resolved flag row inside the commit transaction.
func insertFlag(ctx context.Context, tx pgx.Tx, f *domain.DuplicateFlag) error {
	prior, err := encodePriorPayments(f.PriorPayments)
	if err != nil {
		return fmt.Errorf("encode prior payments: %w", err)
	}

	query := `
		INSERT INTO duplicate_flags (
			address, round_id, risk, reasons, prior_payments, decision, decided_by, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var decidedAt *time.Time
	if !f.DecidedAt.IsZero() {
		t := f.DecidedAt
		decidedAt = &t
	}

	_, err = tx.Exec(ctx, query,
		f.Address.Hex(),
		f.RoundID,
		string(f.Risk),
		f.Reasons,
		prior,
		string(f.Decision),
		f.DecidedBy,
		decidedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert flag: %w", err)
	}
	return nil
}

// scanRound scans a single row into a DistributionRound.
func scanRound(row pgx.Row) (*domain.DistributionRound, error) {
	var (
		r               domain.DistributionRound
		poolStr, status string
		multiplierData  []byte
		finalizedAt     *time.Time
	)

	err := row.Scan(
		&r.ID,
		&r.PeriodStart,
		&r.PeriodEnd,
		&poolStr,
		&multiplierData,
		&status,
		&r.Supersedes,
		&r.CreatedAt,
		&finalizedAt,
	)
	if err != nil {
		return nil, err
	}

	r.TotalPool, err = decodeAmount(poolStr)
	if err != nil {
		return nil, err
	}
	r.Multipliers, err = decodeMultipliers(multiplierData)
	if err != nil {
		return nil, err
	}
	r.Status = domain.RoundStatus(status)
	if finalizedAt != nil {
		r.FinalizedAt = *finalizedAt
	}
	return &r, nil
}

// scanAllocations scans multiple rows into a slice of RewardAllocation.
func scanAllocations(rows pgx.Rows) ([]*domain.RewardAllocation, error) {
	var allocations []*domain.RewardAllocation

	for rows.Next() {
		var addrStr, roundID, rawScore, multiplier, amountStr, statusStr string
		if err := rows.Scan(&addrStr, &roundID, &rawScore, &multiplier, &amountStr, &statusStr); err != nil {
			return nil, fmt.Errorf("scan allocation row: %w", err)
		}
		a, err := buildAllocation(addrStr, roundID, rawScore, multiplier, amountStr, statusStr)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allocation rows: %w", err)
	}
	return allocations, nil
}

// buildAllocation converts one scanned row's text columns into the domain type.
func buildAllocation(addrStr, roundID, rawScore, multiplier, amountStr, statusStr string) (*domain.RewardAllocation, error) {
	addr, err := domain.ParseAddress(addrStr)
	if err != nil {
		return nil, fmt.Errorf("parse allocation address: %w", err)
	}
	score, err := decodeRat(rawScore)
	if err != nil {
		return nil, fmt.Errorf("decode raw score: %w", err)
	}
	mult, err := decodeRat(multiplier)
	if err != nil {
		return nil, fmt.Errorf("decode applied multiplier: %w", err)
	}
	amount, err := decodeAmount(amountStr)
	if err != nil {
		return nil, fmt.Errorf("decode allocation amount: %w", err)
	}
	return &domain.RewardAllocation{
		Address:           addr,
		RoundID:           roundID,
		RawScore:          score,
		AppliedMultiplier: mult,
		Amount:            amount,
		Status:            domain.AllocationStatus(statusStr),
	}, nil
}
