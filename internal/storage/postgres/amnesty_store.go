package postgres

import (
	"context"
	"fmt"

	"staking-reward-ledger/internal/domain"
	"staking-reward-ledger/internal/storage"
)

// AmnestyStore implements storage.AmnestyStore using PostgreSQL.
type AmnestyStore struct {
	pool *Pool
}

// NewAmnestyStore creates a new AmnestyStore.
func NewAmnestyStore(pool *Pool) *AmnestyStore {
	return &AmnestyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AmnestyStore = (*AmnestyStore)(nil)

// Insert records a grant. Returns ErrDuplicateKey if a grant already exists
// for the (address, round) pair.
func (s *AmnestyStore) Insert(ctx context.Context, grant *domain.AmnestyGrant) error {
	if grant == nil || grant.RoundID == "" || grant.Operator == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO amnesty_grants (
			address, round_id, operator, reason, granted_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		grant.Address.Hex(),
		grant.RoundID,
		grant.Operator,
		grant.Reason,
		grant.GrantedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert amnesty grant: %w", err)
	}
	return nil
}

// GetByRound retrieves all grants for a round, ordered by address.
func (s *AmnestyStore) GetByRound(ctx context.Context, roundID string) ([]domain.AmnestyGrant, error) {
	query := `
		SELECT address, round_id, operator, reason, granted_at
		FROM amnesty_grants
		WHERE round_id = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("get amnesty grants by round: %w", err)
	}
	defer rows.Close()

	var grants []domain.AmnestyGrant
	for rows.Next() {
		var (
			g       domain.AmnestyGrant
			addrStr string
		)
		if err := rows.Scan(&addrStr, &g.RoundID, &g.Operator, &g.Reason, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan amnesty grant row: %w", err)
		}
		g.Address, err = domain.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("parse amnesty grant address: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate amnesty grant rows: %w", err)
	}
	return grants, nil
}
