package stub

import (
	"context"
	"errors"
	"time"

	"staking-reward-ledger/internal/chain"
	"staking-reward-ledger/internal/domain"
)

// ActivitySource returns fixed in-memory activity for testing.
// Implements chain.ActivitySource.
type ActivitySource struct {
	Activity map[domain.Address][]domain.DailyActivity
	Balances map[domain.Address]domain.Amount

	// Unavailable lists addresses whose data should fail with DataUnavailableError.
	Unavailable map[domain.Address]bool
}

// NewActivitySource creates an empty stub source.
func NewActivitySource() *ActivitySource {
	return &ActivitySource{
		Activity:    make(map[domain.Address][]domain.DailyActivity),
		Balances:    make(map[domain.Address]domain.Amount),
		Unavailable: make(map[domain.Address]bool),
	}
}

// Compile-time interface check.
var _ chain.ActivitySource = (*ActivitySource)(nil)

// GetDailyActivity returns recorded activity within [periodStart, periodEnd).
// A zero periodStart means "from the beginning of history".
func (s *ActivitySource) GetDailyActivity(_ context.Context, addr domain.Address, periodStart, periodEnd time.Time) ([]domain.DailyActivity, error) {
	if s.Unavailable[addr] {
		return nil, &chain.DataUnavailableError{Address: addr, Cause: errors.New("stub: marked unavailable")}
	}

	var result []domain.DailyActivity
	for _, a := range s.Activity[addr] {
		if !periodStart.IsZero() && a.Day.Before(periodStart) {
			continue
		}
		if !periodEnd.IsZero() && !a.Day.Before(periodEnd) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// GetCurrentBalance returns the recorded balance, zero if none.
func (s *ActivitySource) GetCurrentBalance(_ context.Context, addr domain.Address) (domain.Amount, error) {
	if s.Unavailable[addr] {
		return domain.Amount{}, &chain.DataUnavailableError{Address: addr, Cause: errors.New("stub: marked unavailable")}
	}
	return s.Balances[addr], nil
}
