// Package chain defines the narrow read interface the ledger core consumes
// from the external blockchain-data collaborator. The core never issues chain
// writes and never manages connections, retries, or batching; those policies
// live entirely behind this interface.
package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staking-reward-ledger/internal/domain"
)

// ErrDataUnavailable signals that activity data could not be fetched for an
// address. Recoverable: the caller classifies the affected days as
// non-compliant instead of aborting the batch.
var ErrDataUnavailable = errors.New("activity data unavailable")

// DataUnavailableError wraps ErrDataUnavailable with the affected address.
type DataUnavailableError struct {
	Address domain.Address
	Cause   error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("activity data unavailable for %s: %v", e.Address.Hex(), e.Cause)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// ActivitySource provides read-only access to per-address daily activity.
type ActivitySource interface {
	// GetDailyActivity returns activity for [periodStart, periodEnd),
	// ordered by day ASC. Days without activity are simply absent.
	// When the address's full history is needed (sale detection), callers
	// pass a zero periodStart.
	GetDailyActivity(ctx context.Context, addr domain.Address, periodStart, periodEnd time.Time) ([]domain.DailyActivity, error)

	// GetCurrentBalance returns the address's current token balance.
	GetCurrentBalance(ctx context.Context, addr domain.Address) (domain.Amount, error)
}
